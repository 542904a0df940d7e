package backup

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ares-labs/aresvec/blobstore"
	"github.com/ares-labs/aresvec/codec"
	"github.com/ares-labs/aresvec/collection"
	"github.com/ares-labs/aresvec/distance"
	"github.com/ares-labs/aresvec/model"
	"github.com/ares-labs/aresvec/resource"
	"github.com/ares-labs/aresvec/testutil"
)

const testDim = 8

func buildCollection(t *testing.T, name string, n int) *collection.Collection {
	t.Helper()

	seed := int64(42)
	col, err := collection.New(name, testDim, distance.Cosine, func(o *collection.Options) {
		o.Graph.RandomSeed = &seed
	})
	require.NoError(t, err)

	rng := testutil.NewRNG(7)
	vecs := rng.UnitVectors(n, testDim)
	records := make([]model.VectorRecord, n)
	for i := range records {
		records[i] = model.VectorRecord{
			ID:        fmt.Sprintf("doc-%03d", i),
			Embedding: vecs[i],
			Metadata: map[string]any{
				model.ContentKey: fmt.Sprintf("stored document number %d", i),
				"shard":          fmt.Sprintf("s%d", i%3),
			},
		}
	}

	report, err := col.Upsert(records)
	require.NoError(t, err)
	require.Empty(t, report.Failures)

	return col
}

func newTestManager(t *testing.T, store blobstore.Store, optFns ...func(o *Options)) *Manager {
	t.Helper()

	m, err := NewManager(store, optFns...)
	require.NoError(t, err)
	return m
}

func requireSameRecords(t *testing.T, want, got *collection.Collection) {
	t.Helper()

	require.Equal(t, want.Count(), got.Count())
	require.Equal(t, want.Dimension(), got.Dimension())
	require.Equal(t, want.Metric(), got.Metric())

	for i := range want.Count() {
		id := fmt.Sprintf("doc-%03d", i)
		wantRec, ok := want.Get(id)
		require.True(t, ok)
		gotRec, ok := got.Get(id)
		require.True(t, ok, "record %s missing after restore", id)
		assert.Equal(t, wantRec, gotRec)
	}
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemory()
	col := buildCollection(t, "kb", 40)

	m := newTestManager(t, store)

	manifest, err := m.Backup(ctx, col)
	require.NoError(t, err)

	assert.Equal(t, ManifestVersion, manifest.FormatVersion)
	assert.Equal(t, "kb", manifest.Collection)
	assert.Equal(t, testDim, manifest.Dimension)
	assert.Equal(t, "cosine", manifest.Metric)
	assert.Equal(t, 40, manifest.Count)
	assert.Equal(t, CompressionZstd, manifest.Compression)
	assert.Positive(t, manifest.ArchiveBytes)
	assert.Positive(t, manifest.RawBytes)
	assert.True(t, strings.HasPrefix(manifest.Archive, "collections/kb/"))

	// Both the archive and its manifest are in the store.
	names, err := store.List(ctx, "collections/kb/")
	require.NoError(t, err)
	require.Len(t, names, 2)

	restored, err := m.Restore(ctx, "kb")
	require.NoError(t, err)
	requireSameRecords(t, col, restored)

	// The restored graph answers searches.
	rec, ok := restored.Get("doc-007")
	require.True(t, ok)
	matches, err := restored.SearchVector(rec.Embedding, 1, 50, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "doc-007", matches[0].ID)
}

func TestBackupCompressionVariants(t *testing.T) {
	ctx := context.Background()

	for _, comp := range []Compression{CompressionZstd, CompressionLZ4, CompressionNone} {
		t.Run(string(comp), func(t *testing.T) {
			store := blobstore.NewMemory()
			col := buildCollection(t, "kb", 15)

			m := newTestManager(t, store, func(o *Options) {
				o.Compression = comp
			})

			manifest, err := m.Backup(ctx, col)
			require.NoError(t, err)
			assert.Equal(t, comp, manifest.Compression)

			if comp == CompressionNone {
				assert.Equal(t, manifest.RawBytes, manifest.ArchiveBytes)
			}

			restored, err := m.Restore(ctx, "kb")
			require.NoError(t, err)
			requireSameRecords(t, col, restored)
		})
	}
}

func TestRestorePicksNewestBackup(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemory()
	col := buildCollection(t, "kb", 10)

	m := newTestManager(t, store)

	_, err := m.Backup(ctx, col)
	require.NoError(t, err)

	// Distinct nanosecond stamps order the backups.
	time.Sleep(5 * time.Millisecond)

	_, err = col.Upsert([]model.VectorRecord{{
		ID:        "doc-999",
		Embedding: testutil.NewRNG(9).UnitVector(testDim),
		Metadata:  map[string]any{model.ContentKey: "added between backups"},
	}})
	require.NoError(t, err)

	_, err = m.Backup(ctx, col)
	require.NoError(t, err)

	restored, err := m.Restore(ctx, "kb")
	require.NoError(t, err)

	assert.Equal(t, 11, restored.Count())
	_, ok := restored.Get("doc-999")
	assert.True(t, ok)
}

func TestRestoreVerifiesChecksum(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemory()
	m := newTestManager(t, store)

	manifest, err := m.Backup(ctx, buildCollection(t, "kb", 10))
	require.NoError(t, err)

	// Flip one byte in the stored archive.
	blob, err := store.Open(ctx, manifest.Archive)
	require.NoError(t, err)
	data, err := blobstore.ReadAll(ctx, blob)
	require.NoError(t, err)
	require.NoError(t, blob.Close())

	data[len(data)/2] ^= 0xFF
	require.NoError(t, blobstore.WriteBlob(ctx, store, manifest.Archive, data))

	_, err = m.Restore(ctx, "kb")
	assert.ErrorIs(t, err, ErrVerifyFailed)
}

func TestRestoreVerifiesArchiveSize(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemory()
	m := newTestManager(t, store)

	manifest, err := m.Backup(ctx, buildCollection(t, "kb", 10))
	require.NoError(t, err)

	blob, err := store.Open(ctx, manifest.Archive)
	require.NoError(t, err)
	data, err := blobstore.ReadAll(ctx, blob)
	require.NoError(t, err)
	require.NoError(t, blob.Close())

	require.NoError(t, blobstore.WriteBlob(ctx, store, manifest.Archive, data[:len(data)-4]))

	_, err = m.Restore(ctx, "kb")
	assert.ErrorIs(t, err, ErrVerifyFailed)
}

func TestRestoreWithoutBackups(t *testing.T) {
	m := newTestManager(t, blobstore.NewMemory())

	_, err := m.Restore(context.Background(), "kb")
	assert.ErrorIs(t, err, ErrNoBackup)
}

func TestRestoreRejectsUnknownCompression(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemory()
	m := newTestManager(t, store)

	_, err := m.Backup(ctx, buildCollection(t, "kb", 5))
	require.NoError(t, err)

	names, err := store.List(ctx, "collections/kb/")
	require.NoError(t, err)

	var manifestName string
	for _, name := range names {
		if strings.HasSuffix(name, ".json") {
			manifestName = name
		}
	}
	require.NotEmpty(t, manifestName)

	blob, err := store.Open(ctx, manifestName)
	require.NoError(t, err)
	data, err := blobstore.ReadAll(ctx, blob)
	require.NoError(t, err)
	require.NoError(t, blob.Close())

	var manifest Manifest
	require.NoError(t, codec.Default.Unmarshal(data, &manifest))
	manifest.Compression = "brotli"
	data, err = codec.Default.Marshal(&manifest)
	require.NoError(t, err)
	require.NoError(t, blobstore.WriteBlob(ctx, store, manifestName, data))

	_, err = m.Restore(ctx, "kb")
	assert.ErrorContains(t, err, "unsupported compression")
}

// fakeCommitter records published names in order.
type fakeCommitter struct {
	names []string
}

func (f *fakeCommitter) Commit(_ context.Context, name string) error {
	f.names = append(f.names, name)
	return nil
}

func (f *fakeCommitter) Latest(_ context.Context) (string, error) {
	if len(f.names) == 0 {
		return "", blobstore.ErrNotFound
	}
	return f.names[len(f.names)-1], nil
}

func TestCommitterGatesRestore(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemory()
	committer := &fakeCommitter{}
	col := buildCollection(t, "kb", 10)

	m := newTestManager(t, store, func(o *Options) {
		o.Committer = committer
	})

	manifest1, err := m.Backup(ctx, col)
	require.NoError(t, err)
	require.Len(t, committer.names, 1)

	time.Sleep(5 * time.Millisecond)

	_, err = col.Upsert([]model.VectorRecord{{
		ID:        "doc-999",
		Embedding: testutil.NewRNG(9).UnitVector(testDim),
		Metadata:  map[string]any{model.ContentKey: "newer state"},
	}})
	require.NoError(t, err)

	_, err = m.Backup(ctx, col)
	require.NoError(t, err)
	require.Len(t, committer.names, 2)

	// Roll the marker back to the first backup: Restore must follow the
	// marker, not the store listing.
	committer.names = committer.names[:1]

	restored, err := m.Restore(ctx, "kb")
	require.NoError(t, err)
	assert.Equal(t, manifest1.Count, restored.Count())
	_, ok := restored.Get("doc-999")
	assert.False(t, ok)
}

func TestCommitterEmptyMeansNoBackup(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemory()

	m := newTestManager(t, store, func(o *Options) {
		o.Committer = &fakeCommitter{}
	})

	// A manifest in the store does not count until committed.
	other := newTestManager(t, store)
	_, err := other.Backup(ctx, buildCollection(t, "kb", 5))
	require.NoError(t, err)

	_, err = m.Restore(ctx, "kb")
	assert.ErrorIs(t, err, ErrNoBackup)
}

func TestBackupHonorsResourceController(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemory()
	ctl := resource.NewController(resource.Config{
		MemoryBudgetBytes: 64 << 20,
		MaxBackgroundJobs: 1,
		IOBytesPerSec:     8 << 20,
	})

	m := newTestManager(t, store, func(o *Options) {
		o.Controller = ctl
	})

	col := buildCollection(t, "kb", 20)
	_, err := m.Backup(ctx, col)
	require.NoError(t, err)

	restored, err := m.Restore(ctx, "kb")
	require.NoError(t, err)
	requireSameRecords(t, col, restored)

	// All reservations returned.
	assert.Zero(t, ctl.MemoryInUse())
	assert.True(t, ctl.TryAcquireJob())
	ctl.ReleaseJob()
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil)
	require.Error(t, err)

	_, err = NewManager(blobstore.NewMemory(), func(o *Options) {
		o.Compression = "rar"
	})
	require.ErrorContains(t, err, "unsupported compression")
}
