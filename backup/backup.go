// Package backup archives collection snapshots into a blob store and
// restores them. Each backup is one compressed archive plus one manifest
// describing it; restores always verify size and checksum before
// decompressing.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/ares-labs/aresvec/blobstore"
	"github.com/ares-labs/aresvec/codec"
	"github.com/ares-labs/aresvec/collection"
	"github.com/ares-labs/aresvec/internal/hash"
	"github.com/ares-labs/aresvec/persistence"
	"github.com/ares-labs/aresvec/resource"
)

// ManifestVersion is the current manifest format version.
const ManifestVersion = 1

var (
	// ErrNoBackup is returned by Restore when no backup exists for the
	// collection.
	ErrNoBackup = errors.New("backup: no published backup")

	// ErrVerifyFailed marks an archive whose size or checksum does not
	// match its manifest.
	ErrVerifyFailed = errors.New("backup: archive verification failed")
)

// Committer publishes backups atomically. A committed manifest name is the
// only thing Restore trusts when a Committer is configured.
type Committer interface {
	// Commit publishes name as the newest backup.
	Commit(ctx context.Context, name string) error

	// Latest returns the newest published name, or an error satisfying
	// errors.Is(err, blobstore.ErrNotFound) when nothing is published.
	Latest(ctx context.Context) (string, error)
}

// Manifest describes one archived snapshot.
type Manifest struct {
	FormatVersion int         `json:"format_version"`
	CreatedAt     time.Time   `json:"created_at"`
	Collection    string      `json:"collection"`
	Dimension     int         `json:"dimension"`
	Metric        string      `json:"metric"`
	Count         int         `json:"count"`
	Compression   Compression `json:"compression"`
	Archive       string      `json:"archive"`
	ArchiveBytes  int64       `json:"archive_bytes"`
	RawBytes      int64       `json:"raw_bytes"`
	Checksum      uint32      `json:"checksum_crc32c"`
}

// Options configures a Manager.
type Options struct {
	// Compression selects the archive codec.
	Compression Compression

	// Codec marshals manifests and record metadata.
	Codec codec.Codec

	// Controller bounds job concurrency, restore memory, and IO
	// throughput. Nil disables all limits.
	Controller *resource.Controller

	// Committer adds atomic publish markers. Nil means the newest
	// manifest in the store wins.
	Committer Committer

	// Logger receives backup and restore events.
	Logger *slog.Logger
}

// DefaultOptions are the options used by NewManager unless overridden.
var DefaultOptions = Options{
	Compression: CompressionZstd,
}

// Manager backs up collections into one blob store.
type Manager struct {
	store       blobstore.Store
	compression Compression
	codec       codec.Codec
	ctl         *resource.Controller
	committer   Committer
	logger      *slog.Logger
	now         func() time.Time
}

// NewManager creates a backup manager over store.
func NewManager(store blobstore.Store, optFns ...func(o *Options)) (*Manager, error) {
	if store == nil {
		return nil, errors.New("backup: store is nil")
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if !opts.Compression.valid() {
		return nil, fmt.Errorf("backup: unsupported compression %q", opts.Compression)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	return &Manager{
		store:       store,
		compression: opts.Compression,
		codec:       opts.Codec,
		ctl:         opts.Controller,
		committer:   opts.Committer,
		logger:      opts.Logger,
		now:         time.Now,
	}, nil
}

// archivePrefix returns the store prefix holding one collection's backups.
func archivePrefix(collectionName string) string {
	return path.Join("collections", collectionName) + "/"
}

// Backup archives a snapshot of col and returns its manifest. The write
// stream is compressed, checksummed, and throttled; the manifest is
// written only after the archive upload commits.
func (m *Manager) Backup(ctx context.Context, col *collection.Collection) (*Manifest, error) {
	if col == nil {
		return nil, errors.New("backup: collection is nil")
	}

	if err := m.ctl.AcquireJob(ctx); err != nil {
		return nil, err
	}
	defer m.ctl.ReleaseJob()

	snap := col.Snapshot()
	stamp := fmt.Sprintf("%020d", m.now().UnixNano())
	archiveName := archivePrefix(col.Name()) + stamp + ".avsz"

	blobW, err := m.store.Create(ctx, archiveName)
	if err != nil {
		return nil, err
	}

	crc := hash.NewCRC32C()
	archived := &countingWriter{w: io.MultiWriter(m.ctl.ThrottleWriter(ctx, blobW), crc)}

	enc, err := newCompressor(archived, m.compression)
	if err != nil {
		_ = blobW.Close()
		return nil, err
	}

	raw := &countingWriter{w: enc}
	if err := persistence.WriteSnapshot(raw, snap, m.codec); err != nil {
		_ = enc.Close()
		_ = blobW.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		_ = blobW.Close()
		return nil, err
	}
	if err := blobW.Close(); err != nil {
		return nil, err
	}

	manifest := &Manifest{
		FormatVersion: ManifestVersion,
		CreatedAt:     m.now().UTC(),
		Collection:    col.Name(),
		Dimension:     col.Dimension(),
		Metric:        col.Metric().String(),
		Count:         len(snap.Records),
		Compression:   m.compression,
		Archive:       archiveName,
		ArchiveBytes:  archived.n,
		RawBytes:      raw.n,
		Checksum:      crc.Sum32(),
	}

	manifestName := archivePrefix(col.Name()) + stamp + ".json"
	data, err := m.codec.Marshal(manifest)
	if err != nil {
		return nil, err
	}
	if err := blobstore.WriteBlob(ctx, m.store, manifestName, data); err != nil {
		return nil, err
	}

	if m.committer != nil {
		if err := m.committer.Commit(ctx, manifestName); err != nil {
			return nil, err
		}
	}

	m.logger.Info("backup complete",
		slog.String("collection", col.Name()),
		slog.String("archive", archiveName),
		slog.Int("records", manifest.Count),
		slog.Int64("archive_bytes", manifest.ArchiveBytes),
		slog.Int64("raw_bytes", manifest.RawBytes),
	)

	return manifest, nil
}

// Restore rebuilds the named collection from its newest backup. The
// archive must match the manifest's size and CRC32C checksum exactly.
func (m *Manager) Restore(ctx context.Context, collectionName string, optFns ...func(o *collection.Options)) (*collection.Collection, error) {
	if err := m.ctl.AcquireJob(ctx); err != nil {
		return nil, err
	}
	defer m.ctl.ReleaseJob()

	manifestName, err := m.newestManifest(ctx, collectionName)
	if err != nil {
		return nil, err
	}

	manifest, err := m.readManifest(ctx, manifestName)
	if err != nil {
		return nil, err
	}
	if manifest.FormatVersion != ManifestVersion {
		return nil, fmt.Errorf("backup: unsupported manifest version %d", manifest.FormatVersion)
	}
	if !manifest.Compression.valid() {
		return nil, fmt.Errorf("backup: unsupported compression %q", manifest.Compression)
	}

	// Archive plus decompressed snapshot live in memory while restoring.
	budget := manifest.ArchiveBytes + manifest.RawBytes
	if err := m.ctl.ReserveMemory(ctx, budget); err != nil {
		return nil, err
	}
	defer m.ctl.ReleaseMemory(budget)

	blob, err := m.store.Open(ctx, manifest.Archive)
	if err != nil {
		return nil, err
	}
	defer func() { _ = blob.Close() }()

	if blob.Size() != manifest.ArchiveBytes {
		return nil, fmt.Errorf("%w: archive is %d bytes, manifest says %d",
			ErrVerifyFailed, blob.Size(), manifest.ArchiveBytes)
	}

	if err := m.ctl.WaitIO(ctx, int(manifest.ArchiveBytes)); err != nil {
		return nil, err
	}
	data, err := blobstore.ReadAll(ctx, blob)
	if err != nil {
		return nil, err
	}

	if sum := hash.CRC32C(data); sum != manifest.Checksum {
		return nil, fmt.Errorf("%w: checksum %08x, manifest says %08x",
			ErrVerifyFailed, sum, manifest.Checksum)
	}

	rawData, err := decompress(data, manifest.Compression, manifest.RawBytes)
	if err != nil {
		return nil, err
	}
	if int64(len(rawData)) != manifest.RawBytes {
		return nil, fmt.Errorf("%w: decompressed to %d bytes, manifest says %d",
			ErrVerifyFailed, len(rawData), manifest.RawBytes)
	}

	snap, err := persistence.ReadSnapshot(rawData, m.codec)
	if err != nil {
		return nil, err
	}

	col, err := collection.FromSnapshot(manifest.Collection, snap, optFns...)
	if err != nil {
		return nil, err
	}

	m.logger.Info("restore complete",
		slog.String("collection", manifest.Collection),
		slog.String("archive", manifest.Archive),
		slog.Int("records", manifest.Count),
	)

	return col, nil
}

// newestManifest resolves the manifest to restore from: the committed one
// when a Committer is configured, otherwise the newest in the store.
func (m *Manager) newestManifest(ctx context.Context, collectionName string) (string, error) {
	if m.committer != nil {
		name, err := m.committer.Latest(ctx)
		if errors.Is(err, blobstore.ErrNotFound) {
			return "", ErrNoBackup
		}
		return name, err
	}

	names, err := m.store.List(ctx, archivePrefix(collectionName))
	if err != nil {
		return "", err
	}

	// Stamps are zero-padded, so the lexically largest manifest is the
	// newest.
	newest := ""
	for _, name := range names {
		if strings.HasSuffix(name, ".json") && name > newest {
			newest = name
		}
	}
	if newest == "" {
		return "", ErrNoBackup
	}
	return newest, nil
}

func (m *Manager) readManifest(ctx context.Context, name string) (*Manifest, error) {
	blob, err := m.store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = blob.Close() }()

	data, err := blobstore.ReadAll(ctx, blob)
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := m.codec.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("backup: decode manifest %s: %w", name, err)
	}
	return &manifest, nil
}

// countingWriter tracks bytes forwarded to the wrapped writer.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
