package aresvec

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives one callback per engine operation. Implement it
// to bridge into a monitoring system; callbacks must be safe for concurrent
// use and should not block.
type MetricsCollector interface {
	// RecordUpsert is called after each document ingest batch.
	RecordUpsert(docs, chunks int, duration time.Duration, err error)

	// RecordSearch is called after each search. k is the requested
	// result count.
	RecordSearch(k int, duration time.Duration, err error)

	// RecordDelete is called after each delete batch. removed is the
	// number of records actually deleted.
	RecordDelete(removed int, duration time.Duration, err error)

	// RecordEmbed is called after each embedding pass on the ingest
	// path. texts is the number of inputs.
	RecordEmbed(texts int, duration time.Duration, err error)

	// RecordSave is called after each collection save.
	RecordSave(duration time.Duration, err error)

	// RecordLoad is called after each collection load.
	RecordLoad(duration time.Duration, err error)

	// RecordBackup is called after each backup. bytes is the archive
	// size, zero on failure.
	RecordBackup(bytes int64, duration time.Duration, err error)

	// RecordRestore is called after each restore.
	RecordRestore(duration time.Duration, err error)
}

// NoopMetricsCollector discards all metrics.
type NoopMetricsCollector struct{}

var _ MetricsCollector = NoopMetricsCollector{}

func (NoopMetricsCollector) RecordUpsert(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordDelete(int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordEmbed(int, time.Duration, error)       {}
func (NoopMetricsCollector) RecordSave(time.Duration, error)             {}
func (NoopMetricsCollector) RecordLoad(time.Duration, error)             {}
func (NoopMetricsCollector) RecordBackup(int64, time.Duration, error)    {}
func (NoopMetricsCollector) RecordRestore(time.Duration, error)          {}

// BasicMetricsCollector keeps in-memory counters. Useful for tests and
// basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	UpsertCount      atomic.Int64
	UpsertDocs       atomic.Int64
	UpsertChunks     atomic.Int64
	UpsertErrors     atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	DeleteCount      atomic.Int64
	DeleteRemoved    atomic.Int64
	EmbedCount       atomic.Int64
	EmbedTexts       atomic.Int64
	EmbedErrors      atomic.Int64
	EmbedTotalNanos  atomic.Int64
	SaveCount        atomic.Int64
	SaveErrors       atomic.Int64
	LoadCount        atomic.Int64
	LoadErrors       atomic.Int64
	BackupCount      atomic.Int64
	BackupBytes      atomic.Int64
	BackupErrors     atomic.Int64
	RestoreCount     atomic.Int64
	RestoreErrors    atomic.Int64
}

var _ MetricsCollector = (*BasicMetricsCollector)(nil)

// RecordUpsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpsert(docs, chunks int, duration time.Duration, err error) {
	b.UpsertCount.Add(1)
	b.UpsertDocs.Add(int64(docs))
	b.UpsertChunks.Add(int64(chunks))
	if err != nil {
		b.UpsertErrors.Add(1)
	}
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(k int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(removed int, duration time.Duration, err error) {
	b.DeleteCount.Add(1)
	b.DeleteRemoved.Add(int64(removed))
}

// RecordEmbed implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEmbed(texts int, duration time.Duration, err error) {
	b.EmbedCount.Add(1)
	b.EmbedTexts.Add(int64(texts))
	b.EmbedTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.EmbedErrors.Add(1)
	}
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(duration time.Duration, err error) {
	b.SaveCount.Add(1)
	if err != nil {
		b.SaveErrors.Add(1)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(duration time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// RecordBackup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBackup(bytes int64, duration time.Duration, err error) {
	b.BackupCount.Add(1)
	b.BackupBytes.Add(bytes)
	if err != nil {
		b.BackupErrors.Add(1)
	}
}

// RecordRestore implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRestore(duration time.Duration, err error) {
	b.RestoreCount.Add(1)
	if err != nil {
		b.RestoreErrors.Add(1)
	}
}

// GetStats returns a consistent-enough snapshot of the counters.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		UpsertCount:    b.UpsertCount.Load(),
		UpsertDocs:     b.UpsertDocs.Load(),
		UpsertChunks:   b.UpsertChunks.Load(),
		UpsertErrors:   b.UpsertErrors.Load(),
		SearchCount:    b.SearchCount.Load(),
		SearchErrors:   b.SearchErrors.Load(),
		SearchAvgNanos: avgNanos(&b.SearchTotalNanos, &b.SearchCount),
		DeleteCount:    b.DeleteCount.Load(),
		DeleteRemoved:  b.DeleteRemoved.Load(),
		EmbedCount:     b.EmbedCount.Load(),
		EmbedTexts:     b.EmbedTexts.Load(),
		EmbedErrors:    b.EmbedErrors.Load(),
		EmbedAvgNanos:  avgNanos(&b.EmbedTotalNanos, &b.EmbedCount),
		SaveCount:      b.SaveCount.Load(),
		SaveErrors:     b.SaveErrors.Load(),
		LoadCount:      b.LoadCount.Load(),
		LoadErrors:     b.LoadErrors.Load(),
		BackupCount:    b.BackupCount.Load(),
		BackupBytes:    b.BackupBytes.Load(),
		BackupErrors:   b.BackupErrors.Load(),
		RestoreCount:   b.RestoreCount.Load(),
		RestoreErrors:  b.RestoreErrors.Load(),
	}
}

func avgNanos(total, count *atomic.Int64) int64 {
	n := count.Load()
	if n == 0 {
		return 0
	}
	return total.Load() / n
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector counters.
type BasicMetricsStats struct {
	UpsertCount    int64
	UpsertDocs     int64
	UpsertChunks   int64
	UpsertErrors   int64
	SearchCount    int64
	SearchErrors   int64
	SearchAvgNanos int64
	DeleteCount    int64
	DeleteRemoved  int64
	EmbedCount     int64
	EmbedTexts     int64
	EmbedErrors    int64
	EmbedAvgNanos  int64
	SaveCount      int64
	SaveErrors     int64
	LoadCount      int64
	LoadErrors     int64
	BackupCount    int64
	BackupBytes    int64
	BackupErrors   int64
	RestoreCount   int64
	RestoreErrors  int64
}
