package s3

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ares-labs/aresvec/blobstore"
)

func commitItem(version, archive string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"scope":   &types.AttributeValueMemberS{Value: "s3://bucket/kb"},
		"version": &types.AttributeValueMemberN{Value: version},
		"archive": &types.AttributeValueMemberS{Value: archive},
	}
}

func TestCommitFirstVersion(t *testing.T) {
	mockClient := new(MockCommitClient)
	cs := NewCommitStore(mockClient, "commits", "s3://bucket/kb")

	mockClient.On("Query", mock.Anything, mock.MatchedBy(func(input *dynamodb.QueryInput) bool {
		return *input.TableName == "commits" && !*input.ScanIndexForward
	})).Return(&dynamodb.QueryOutput{}, nil).Once()

	mockClient.On("PutItem", mock.Anything, mock.MatchedBy(func(input *dynamodb.PutItemInput) bool {
		version := input.Item["version"].(*types.AttributeValueMemberN)
		archive := input.Item["archive"].(*types.AttributeValueMemberS)
		return version.Value == "1" && archive.Value == "backups/kb/0001.avsz" &&
			*input.ConditionExpression == "attribute_not_exists(version)"
	})).Return(&dynamodb.PutItemOutput{}, nil).Once()

	require.NoError(t, cs.Commit(context.Background(), "backups/kb/0001.avsz"))
	mockClient.AssertExpectations(t)
}

func TestCommitIncrementsVersion(t *testing.T) {
	mockClient := new(MockCommitClient)
	cs := NewCommitStore(mockClient, "commits", "s3://bucket/kb")

	mockClient.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{commitItem("7", "backups/kb/0007.avsz")},
	}, nil).Once()

	mockClient.On("PutItem", mock.Anything, mock.MatchedBy(func(input *dynamodb.PutItemInput) bool {
		version := input.Item["version"].(*types.AttributeValueMemberN)
		return version.Value == "8"
	})).Return(&dynamodb.PutItemOutput{}, nil).Once()

	require.NoError(t, cs.Commit(context.Background(), "backups/kb/0008.avsz"))
	mockClient.AssertExpectations(t)
}

func TestCommitConflictIsDetected(t *testing.T) {
	mockClient := new(MockCommitClient)
	cs := NewCommitStore(mockClient, "commits", "s3://bucket/kb")

	mockClient.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil).Once()
	mockClient.On("PutItem", mock.Anything, mock.Anything).
		Return(nil, &types.ConditionalCheckFailedException{}).Once()

	err := cs.Commit(context.Background(), "backups/kb/0001.avsz")
	assert.ErrorIs(t, err, ErrConcurrentCommit)
}

func TestLatest(t *testing.T) {
	t.Run("returns newest archive", func(t *testing.T) {
		mockClient := new(MockCommitClient)
		cs := NewCommitStore(mockClient, "commits", "s3://bucket/kb")

		mockClient.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{
			Items: []map[string]types.AttributeValue{commitItem("42", "backups/kb/0042.avsz")},
		}, nil).Once()

		name, err := cs.Latest(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "backups/kb/0042.avsz", name)
	})

	t.Run("nothing committed", func(t *testing.T) {
		mockClient := new(MockCommitClient)
		cs := NewCommitStore(mockClient, "commits", "s3://bucket/kb")

		mockClient.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil).Once()

		_, err := cs.Latest(context.Background())
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("malformed item", func(t *testing.T) {
		mockClient := new(MockCommitClient)
		cs := NewCommitStore(mockClient, "commits", "s3://bucket/kb")

		mockClient.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{
			Items: []map[string]types.AttributeValue{{
				"scope": &types.AttributeValueMemberS{Value: "s3://bucket/kb"},
			}},
		}, nil).Once()

		_, err := cs.Latest(context.Background())
		assert.Error(t, err)
	})
}
