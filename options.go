package aresvec

import (
	"time"

	"github.com/ares-labs/aresvec/backup"
	"github.com/ares-labs/aresvec/blobstore"
	"github.com/ares-labs/aresvec/chunker"
	"github.com/ares-labs/aresvec/codec"
	"github.com/ares-labs/aresvec/embedding"
	"github.com/ares-labs/aresvec/hnsw"
	"github.com/ares-labs/aresvec/rerank"
	"github.com/ares-labs/aresvec/resource"
	"github.com/ares-labs/aresvec/search"
)

// DefaultCacheBudget is the embedding cache byte budget used unless
// overridden.
const DefaultCacheBudget = 64 << 20

// Options configures an Engine. Zero values fall back to the defaults noted
// per field.
type Options struct {
	// DataDir is the directory for saved collection files
	// (<name>.avec). Save and load fail until it is set.
	DataDir string

	// Codec marshals record metadata and backup manifests. Nil means
	// codec.Default.
	Codec codec.Codec

	// Logger receives operation logs. Nil discards them.
	Logger *Logger

	// Metrics receives operation callbacks. Nil discards them.
	Metrics MetricsCollector

	// Model is a pre-built embedding model, registered under its own
	// name and used as the default unless ModelName says otherwise.
	Model embedding.Model

	// ModelLoader resolves model names on first use. Concurrent first
	// loads of one name share a single call.
	ModelLoader embedding.Loader

	// ModelName is the default model. Required when only a loader is
	// configured; defaults to Model's name otherwise.
	ModelName string

	// EmbedBatchSize caps texts per model call. Zero means the
	// embedding service default.
	EmbedBatchSize int

	// EmbedWorkers sizes the shared inference pool. Zero means
	// GOMAXPROCS.
	EmbedWorkers int

	// CacheBudgetBytes bounds the embedding cache. Zero means
	// DefaultCacheBudget.
	CacheBudgetBytes int64

	// CacheTTL expires cached embeddings. Zero means no expiry.
	CacheTTL time.Duration

	// DisableCache turns the embedding cache off entirely.
	DisableCache bool

	// Splitter cuts documents into chunks. Nil means a Fixed splitter
	// with the chunker package defaults.
	Splitter chunker.Splitter

	// ChunkMinWords drops chunks shorter than this many words, except a
	// document's only chunk. Zero disables the filter.
	ChunkMinWords int

	// Search configures strategy weights, fusion, rerank headroom, and
	// graph beam width for queries.
	Search search.Options

	// RerankModel enables reranking when set.
	RerankModel rerank.Model

	// RerankTimeout bounds each rerank pass. Zero means the rerank
	// package default.
	RerankTimeout time.Duration

	// Graph configures the proximity graph of every collection this
	// engine creates, loads, or restores.
	Graph hnsw.Options

	// Controller bounds backup and restore resources. Nil disables the
	// limits.
	Controller *resource.Controller

	// BackupStore enables Backup and Restore when set.
	BackupStore blobstore.Store

	// BackupOptions tune the backup manager (compression, committer).
	BackupOptions []func(o *backup.Options)
}

// DefaultOptions are the options used by New unless overridden.
var DefaultOptions = Options{
	CacheBudgetBytes: DefaultCacheBudget,
	Search:           search.DefaultOptions,
	Graph:            hnsw.DefaultOptions,
}

// WithDataDir sets the directory for saved collection files.
func WithDataDir(dir string) func(o *Options) {
	return func(o *Options) { o.DataDir = dir }
}

// WithModel registers a pre-built embedding model and makes it the default.
func WithModel(m embedding.Model) func(o *Options) {
	return func(o *Options) { o.Model = m }
}

// WithModelLoader sets the loader resolving name to its default model.
func WithModelLoader(name string, loader embedding.Loader) func(o *Options) {
	return func(o *Options) {
		o.ModelName = name
		o.ModelLoader = loader
	}
}

// WithLogger sets the operation logger.
func WithLogger(logger *Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(mc MetricsCollector) func(o *Options) {
	return func(o *Options) { o.Metrics = mc }
}

// WithCodec sets the metadata and manifest codec.
func WithCodec(c codec.Codec) func(o *Options) {
	return func(o *Options) { o.Codec = c }
}

// WithCache sets the embedding cache budget and TTL.
func WithCache(budgetBytes int64, ttl time.Duration) func(o *Options) {
	return func(o *Options) {
		o.CacheBudgetBytes = budgetBytes
		o.CacheTTL = ttl
	}
}

// WithReranker enables reranking with m and the given per-call timeout.
func WithReranker(m rerank.Model, timeout time.Duration) func(o *Options) {
	return func(o *Options) {
		o.RerankModel = m
		o.RerankTimeout = timeout
	}
}

// WithController sets the resource controller for backup and restore.
func WithController(ctl *resource.Controller) func(o *Options) {
	return func(o *Options) { o.Controller = ctl }
}

// WithBackupStore enables Backup and Restore against store.
func WithBackupStore(store blobstore.Store, optFns ...func(o *backup.Options)) func(o *Options) {
	return func(o *Options) {
		o.BackupStore = store
		o.BackupOptions = optFns
	}
}
