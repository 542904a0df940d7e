package minio

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ares-labs/aresvec/blobstore"
)

// TestIntegrationMinioStore requires a MinIO instance on localhost:9000
// with the default credentials and skips otherwise.
func TestIntegrationMinioStore(t *testing.T) {
	client, err := minio.New("localhost:9000", &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("minio client creation failed: %v", err)
	}

	ctx := context.Background()

	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("minio not available: %v", err)
	}

	bucket := "aresvec-it"
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, fmt.Sprintf("run-%d/", time.Now().UnixNano()))

	name := "backups/kb/0001.avsz"
	data := []byte("minio archive payload for the round trip")

	require.NoError(t, blobstore.WriteBlob(ctx, store, name, data))
	defer func() {
		assert.NoError(t, store.Delete(ctx, name))
	}()

	names, err := store.List(ctx, "backups/")
	require.NoError(t, err)
	assert.Equal(t, []string{name}, names)

	b, err := store.Open(ctx, name)
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, int64(len(data)), b.Size())

	got, err := blobstore.ReadAll(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	buf := make([]byte, 7)
	n, err := b.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	assert.Equal(t, "archive", string(buf[:n]))

	_, err = store.Open(ctx, "backups/kb/none.avsz")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
