package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ares-labs/aresvec/blobstore"
)

// ErrConcurrentCommit is returned when another writer published a backup
// for the same scope at the same time.
var ErrConcurrentCommit = errors.New("s3: concurrent backup commit")

// CommitClient is the subset of the DynamoDB API the commit store uses.
// *dynamodb.Client satisfies it.
type CommitClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// CommitStore records which backup archives are published, using DynamoDB
// conditional writes for the atomic visibility S3 lacks. A backup is
// restorable only after its commit item exists.
//
// Table schema:
//   - Partition key: scope (string), one scope per collection or engine
//   - Sort key: version (number), monotonically increasing
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name aresvec-commits \
//	  --attribute-definitions AttributeName=scope,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=scope,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type CommitStore struct {
	client CommitClient
	table  string
	scope  string
}

// NewCommitStore creates a commit store over the given table and scope.
func NewCommitStore(client CommitClient, table, scope string) *CommitStore {
	return &CommitStore{
		client: client,
		table:  table,
		scope:  scope,
	}
}

// Commit publishes name as the newest backup of this scope.
func (s *CommitStore) Commit(ctx context.Context, name string) error {
	version, _, err := s.latest(ctx)
	if err != nil {
		return err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]types.AttributeValue{
			"scope":   &types.AttributeValueMemberS{Value: s.scope},
			"version": &types.AttributeValueMemberN{Value: strconv.FormatUint(version+1, 10)},
			"archive": &types.AttributeValueMemberS{Value: name},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return ErrConcurrentCommit
		}
		return fmt.Errorf("s3: commit backup version: %w", err)
	}

	return nil
}

// Latest returns the newest published backup name. It returns
// blobstore.ErrNotFound when nothing has been committed yet.
func (s *CommitStore) Latest(ctx context.Context) (string, error) {
	version, name, err := s.latest(ctx)
	if err != nil {
		return "", err
	}
	if version == 0 {
		return "", blobstore.ErrNotFound
	}
	return name, nil
}

func (s *CommitStore) latest(ctx context.Context) (uint64, string, error) {
	resp, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("#s = :scope"),
		ExpressionAttributeNames: map[string]string{
			"#s": "scope",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":scope": &types.AttributeValueMemberS{Value: s.scope},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("s3: query backup commits: %w", err)
	}

	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("s3: commit item missing version attribute")
	}
	archiveAttr, ok := item["archive"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("s3: commit item missing archive attribute")
	}

	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("s3: parse commit version: %w", err)
	}

	return version, archiveAttr.Value, nil
}
