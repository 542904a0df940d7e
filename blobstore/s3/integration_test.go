package s3

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ares-labs/aresvec/blobstore"
)

func TestIntegrationS3Store(t *testing.T) {
	bucket := os.Getenv("ARESVEC_S3_BUCKET")
	if bucket == "" {
		t.Skip("skipping S3 integration test: ARESVEC_S3_BUCKET not set")
	}

	ctx := context.Background()
	cfg, err := config.LoadDefaultConfig(ctx)
	require.NoError(t, err)

	client := s3.NewFromConfig(cfg)
	prefix := fmt.Sprintf("aresvec-it-%d/", time.Now().UnixNano())
	store := NewStore(client, bucket, prefix)

	name := "backups/it/0001.avsz"
	data := make([]byte, 1<<20)
	_, err = rand.Read(data)
	require.NoError(t, err)

	w, err := store.Create(ctx, name)
	require.NoError(t, err)
	n, err := w.Write(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	require.NoError(t, w.Close())

	defer func() {
		assert.NoError(t, store.Delete(ctx, name))
	}()

	names, err := store.List(ctx, "backups/")
	require.NoError(t, err)
	assert.Contains(t, names, name)

	b, err := store.Open(ctx, name)
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, int64(len(data)), b.Size())

	buf := make([]byte, 256)
	_, err = b.ReadAt(ctx, buf, 512)
	require.NoError(t, err)
	assert.Equal(t, data[512:768], buf)

	_, err = store.Open(ctx, "backups/it/none.avsz")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
