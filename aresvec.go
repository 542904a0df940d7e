// Package aresvec is a local vector indexing and retrieval engine: named
// collections of embeddings behind an HNSW proximity graph, with keyword,
// fuzzy, and hybrid search strategies, optional reranking, a byte-budgeted
// embedding cache, single-file snapshot persistence, and remote backups.
package aresvec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ares-labs/aresvec/backup"
	"github.com/ares-labs/aresvec/cache"
	"github.com/ares-labs/aresvec/chunker"
	"github.com/ares-labs/aresvec/codec"
	"github.com/ares-labs/aresvec/collection"
	"github.com/ares-labs/aresvec/distance"
	"github.com/ares-labs/aresvec/embedding"
	"github.com/ares-labs/aresvec/hnsw"
	"github.com/ares-labs/aresvec/internal/pool"
	"github.com/ares-labs/aresvec/model"
	"github.com/ares-labs/aresvec/persistence"
	"github.com/ares-labs/aresvec/rerank"
	"github.com/ares-labs/aresvec/search"
)

// collectionFileExt is the suffix of saved collection files under DataDir.
const collectionFileExt = ".avec"

// Engine is the top-level entry point: a registry of named collections plus
// the shared embedding, search, and backup machinery. All methods are safe
// for concurrent use.
type Engine struct {
	mu          sync.RWMutex
	collections map[string]*collection.Collection

	registry *embedding.Registry
	defModel embedding.Model
	embedder *embedding.Service
	pool     *pool.WorkerPool
	cache    cache.Cache
	searcher *search.Engine
	splitter chunker.Splitter
	minWords int
	backups  *backup.Manager

	dataDir   string
	cdc       codec.Codec
	logger    *Logger
	metrics   MetricsCollector
	graphOpts hnsw.Options

	closed atomic.Bool
}

// New creates an Engine. An embedding model is required: either a pre-built
// Options.Model or an Options.ModelLoader plus ModelName, resolved once
// here so that configuration mistakes surface at construction rather than
// on the first query.
func New(optFns ...func(o *Options)) (*Engine, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = NoopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = NoopMetricsCollector{}
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}

	registry := embedding.NewRegistry(opts.ModelLoader)
	if opts.Model != nil {
		registry.Register(opts.Model)
		if opts.ModelName == "" {
			opts.ModelName = opts.Model.Name()
		}
	}
	if opts.ModelName == "" {
		return nil, errors.New("aresvec: an embedding model or a model loader with a model name is required")
	}

	mdl, err := registry.Get(context.Background(), opts.ModelName)
	opts.Logger.LogModelLoad(context.Background(), opts.ModelName, err)
	if err != nil {
		return nil, translateError(err)
	}

	var c cache.Cache
	if opts.DisableCache {
		c = cache.NoOp{}
	} else {
		budget := opts.CacheBudgetBytes
		if budget <= 0 {
			budget = DefaultCacheBudget
		}
		c = cache.NewLRU(budget)
	}

	wp := pool.New(opts.EmbedWorkers)

	embedder, err := embedding.NewService(mdl, c, func(o *embedding.Options) {
		o.BatchSize = opts.EmbedBatchSize
		o.CacheTTL = opts.CacheTTL
		o.Pool = wp
	})
	if err != nil {
		wp.Close()
		return nil, err
	}

	var reranker *rerank.Reranker
	if opts.RerankModel != nil {
		reranker, err = rerank.New(opts.RerankModel, func(o *rerank.Options) {
			o.Timeout = opts.RerankTimeout
			o.Logger = opts.Logger.Logger
		})
		if err != nil {
			wp.Close()
			return nil, err
		}
	}

	searcher, err := search.NewEngine(embedder, reranker, func(o *search.Options) {
		*o = opts.Search
	})
	if err != nil {
		wp.Close()
		return nil, translateError(err)
	}

	splitter := opts.Splitter
	if splitter == nil {
		splitter, err = chunker.NewFixed(chunker.DefaultSize, chunker.DefaultOverlap)
		if err != nil {
			wp.Close()
			return nil, err
		}
	}

	var backups *backup.Manager
	if opts.BackupStore != nil {
		backupOptFns := append([]func(o *backup.Options){func(o *backup.Options) {
			o.Codec = opts.Codec
			o.Controller = opts.Controller
			o.Logger = opts.Logger.Logger
		}}, opts.BackupOptions...)

		backups, err = backup.NewManager(opts.BackupStore, backupOptFns...)
		if err != nil {
			wp.Close()
			return nil, err
		}
	}

	return &Engine{
		collections: make(map[string]*collection.Collection),
		registry:    registry,
		defModel:    mdl,
		embedder:    embedder,
		pool:        wp,
		cache:       c,
		searcher:    searcher,
		splitter:    splitter,
		minWords:    opts.ChunkMinWords,
		backups:     backups,
		dataDir:     opts.DataDir,
		cdc:         opts.Codec,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		graphOpts:   opts.Graph,
	}, nil
}

// collection resolves name under a read lock.
func (e *Engine) collection(name string) (*collection.Collection, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	col, ok := e.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %q: %w", name, ErrCollectionNotFound)
	}
	return col, nil
}

// register adds col under its name, rejecting duplicates.
func (e *Engine) register(col *collection.Collection) error {
	if e.closed.Load() {
		return ErrClosed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	name := col.Name()
	if _, ok := e.collections[name]; ok {
		return fmt.Errorf("collection %q: %w", name, ErrCollectionExists)
	}
	e.collections[name] = col
	return nil
}

// collectionPath maps a collection name to its file under DataDir.
func (e *Engine) collectionPath(name string) (string, error) {
	if e.dataDir == "" {
		return "", errors.New("aresvec: data dir not configured")
	}
	return filepath.Join(e.dataDir, name+collectionFileExt), nil
}

// validateCollectionName rejects names that cannot double as file names and
// blob prefixes.
func validateCollectionName(name string) error {
	if name == "" {
		return errors.New("collection name is empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("collection name %q contains path elements", name)
	}
	return nil
}

// CreateCollection registers a new empty collection. Dimension and metric are
// immutable after creation; the graph parameters come from the engine options.
func (e *Engine) CreateCollection(name string, dimension int, metric distance.Metric) error {
	if err := validateCollectionName(name); err != nil {
		return err
	}

	col, err := collection.New(name, dimension, metric, func(o *collection.Options) {
		o.Graph = e.graphOpts
	})
	if err != nil {
		return translateError(err)
	}
	return e.register(col)
}

// ListCollections describes every registered collection, sorted by name.
func (e *Engine) ListCollections() []model.CollectionInfo {
	e.mu.RLock()
	infos := make([]model.CollectionInfo, 0, len(e.collections))
	for _, col := range e.collections {
		infos = append(infos, col.Info())
	}
	e.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// DeleteCollection destroys the named collection: it is dropped from the
// engine and its saved file under DataDir, if any, is removed.
func (e *Engine) DeleteCollection(name string) error {
	if e.closed.Load() {
		return ErrClosed
	}

	e.mu.Lock()
	_, ok := e.collections[name]
	delete(e.collections, name)
	e.mu.Unlock()

	if !ok {
		return fmt.Errorf("collection %q: %w", name, ErrCollectionNotFound)
	}

	if path, err := e.collectionPath(name); err == nil {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("collection %q: removing %s: %w", name, path, err)
		}
	}
	return nil
}

// CollectionStats reports the record count, dimension, and estimated memory
// footprint of the named collection.
func (e *Engine) CollectionStats(name string) (model.CollectionStats, error) {
	col, err := e.collection(name)
	if err != nil {
		return model.CollectionStats{}, err
	}
	return col.Stats(), nil
}

// Search runs one query against the named collection. An empty index or a
// blank query yields an empty result, not an error.
func (e *Engine) Search(ctx context.Context, collectionName, query string, params search.Params) ([]model.SearchResult, error) {
	start := time.Now()

	results, err := e.runSearch(ctx, collectionName, query, params)
	e.metrics.RecordSearch(params.TopK, time.Since(start), err)
	e.logger.LogSearch(ctx, collectionName, params.Strategy.String(), params.TopK, len(results), err)
	return results, err
}

func (e *Engine) runSearch(ctx context.Context, collectionName, query string, params search.Params) ([]model.SearchResult, error) {
	col, err := e.collection(collectionName)
	if err != nil {
		return nil, err
	}

	results, err := e.searcher.Search(ctx, col, query, params)
	if err != nil {
		return nil, translateError(err)
	}
	return results, nil
}

// Upsert chunks docs, embeds every chunk, and writes the resulting records
// into the named collection. Chunk record ids are <docID>#<index>, so
// re-upserting a document replaces its previous chunks in place. Per-document
// failures are reported in the IngestReport; embedding failures abort the
// whole call before anything is written.
func (e *Engine) Upsert(ctx context.Context, collectionName string, docs []model.Document) (*model.IngestReport, error) {
	start := time.Now()

	col, err := e.collection(collectionName)
	if err != nil {
		e.metrics.RecordUpsert(len(docs), 0, time.Since(start), err)
		e.logger.LogUpsert(ctx, collectionName, len(docs), 0, 0, err)
		return nil, err
	}

	report := &model.IngestReport{Documents: len(docs)}

	var chunks []chunker.Chunk
	for _, doc := range docs {
		chunks = append(chunks, chunker.Chunks(doc, e.splitter, e.minWords)...)
	}
	report.Chunks = len(chunks)

	if len(chunks) == 0 {
		e.metrics.RecordUpsert(len(docs), 0, time.Since(start), nil)
		e.logger.LogUpsert(ctx, collectionName, len(docs), 0, 0, nil)
		return report, nil
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	embedStart := time.Now()
	vecs, err := e.embedder.Embed(ctx, texts)
	e.metrics.RecordEmbed(len(texts), time.Since(embedStart), err)
	if err != nil {
		err = translateError(err)
		e.metrics.RecordUpsert(len(docs), report.Chunks, time.Since(start), err)
		e.logger.LogUpsert(ctx, collectionName, len(docs), report.Chunks, 0, err)
		return nil, err
	}

	records := make([]model.VectorRecord, len(chunks))
	sources := make(map[string]string, len(chunks))
	for i, ch := range chunks {
		meta := ch.Metadata
		meta[model.ContentKey] = ch.Text

		id := ch.ID()
		sources[id] = ch.SourceID
		records[i] = model.VectorRecord{
			ID:        id,
			Embedding: vecs[i],
			Metadata:  meta,
		}
	}

	res, err := col.Upsert(records)
	if err != nil {
		err = translateError(err)
		e.metrics.RecordUpsert(len(docs), report.Chunks, time.Since(start), err)
		e.logger.LogUpsert(ctx, collectionName, len(docs), report.Chunks, 0, err)
		return nil, err
	}

	report.Upserted = res.Upserted
	for recordID, ferr := range res.Failures {
		if report.Failures == nil {
			report.Failures = make(map[string]error)
		}
		docID := sources[recordID]
		if docID == "" {
			docID = recordID
		}
		report.Failures[docID] = ferr
	}

	e.metrics.RecordUpsert(len(docs), report.Chunks, time.Since(start), nil)
	e.logger.LogUpsert(ctx, collectionName, len(docs), report.Chunks, report.Upserted, nil)
	return report, nil
}

// UpsertVectors writes pre-embedded records directly, bypassing the chunker
// and the embedding service.
func (e *Engine) UpsertVectors(ctx context.Context, collectionName string, records []model.VectorRecord) (*collection.UpsertResult, error) {
	start := time.Now()

	col, err := e.collection(collectionName)
	if err != nil {
		e.metrics.RecordUpsert(0, len(records), time.Since(start), err)
		e.logger.LogUpsert(ctx, collectionName, 0, len(records), 0, err)
		return nil, err
	}

	res, err := col.Upsert(records)
	err = translateError(err)
	upserted := 0
	if res != nil {
		upserted = res.Upserted
	}
	e.metrics.RecordUpsert(0, len(records), time.Since(start), err)
	e.logger.LogUpsert(ctx, collectionName, 0, len(records), upserted, err)
	return res, err
}

// Get returns the record stored under id.
func (e *Engine) Get(collectionName, id string) (model.VectorRecord, error) {
	col, err := e.collection(collectionName)
	if err != nil {
		return model.VectorRecord{}, err
	}

	rec, ok := col.Get(id)
	if !ok {
		return model.VectorRecord{}, fmt.Errorf("record %q: %w", id, ErrNotFound)
	}
	return rec, nil
}

// Delete removes records by id and returns how many existed. Unknown ids
// are ignored.
func (e *Engine) Delete(ctx context.Context, collectionName string, ids ...string) (int, error) {
	start := time.Now()

	col, err := e.collection(collectionName)
	if err != nil {
		e.metrics.RecordDelete(0, time.Since(start), err)
		e.logger.LogDelete(ctx, collectionName, 0, err)
		return 0, err
	}

	removed := col.Delete(ids...)
	e.metrics.RecordDelete(removed, time.Since(start), nil)
	e.logger.LogDelete(ctx, collectionName, removed, nil)
	return removed, nil
}

// SaveCollection writes the named collection to <DataDir>/<name>.avec
// through the atomic snapshot writer.
func (e *Engine) SaveCollection(ctx context.Context, name string) error {
	start := time.Now()

	col, err := e.collection(name)
	if err == nil {
		var path string
		path, err = e.collectionPath(name)
		if err == nil {
			err = col.Save(path, e.cdc)
		}
		e.metrics.RecordSave(time.Since(start), err)
		e.logger.LogSave(ctx, name, path, err)
		return err
	}

	e.metrics.RecordSave(time.Since(start), err)
	e.logger.LogSave(ctx, name, "", err)
	return err
}

// LoadCollection reads <DataDir>/<name>.avec and registers the collection.
// A missing file reports ErrCollectionNotFound; a name already in use
// reports ErrCollectionExists.
func (e *Engine) LoadCollection(ctx context.Context, name string) error {
	start := time.Now()
	err := e.loadCollection(name)
	e.metrics.RecordLoad(time.Since(start), err)

	path, _ := e.collectionPath(name)
	e.logger.LogLoad(ctx, name, path, err)
	return err
}

func (e *Engine) loadCollection(name string) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if err := validateCollectionName(name); err != nil {
		return err
	}
	path, err := e.collectionPath(name)
	if err != nil {
		return err
	}

	snap, err := persistence.LoadSnapshot(path, e.cdc)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("collection %q has no file at %s: %w", name, path, ErrCollectionNotFound)
	}
	if err != nil {
		return err
	}

	col, err := collection.FromSnapshot(name, snap, func(o *collection.Options) {
		o.Graph = e.graphOpts
	})
	if err != nil {
		return err
	}

	return e.register(col)
}

// Backup archives the named collection into the configured backup store.
func (e *Engine) Backup(ctx context.Context, name string) (*backup.Manifest, error) {
	start := time.Now()

	manifest, err := e.runBackup(ctx, name)
	var archiveBytes int64
	archive := ""
	if manifest != nil {
		archiveBytes = manifest.ArchiveBytes
		archive = manifest.Archive
	}
	e.metrics.RecordBackup(archiveBytes, time.Since(start), err)
	e.logger.LogBackup(ctx, name, archive, err)
	return manifest, err
}

func (e *Engine) runBackup(ctx context.Context, name string) (*backup.Manifest, error) {
	if e.backups == nil {
		return nil, errors.New("aresvec: no backup store configured")
	}
	col, err := e.collection(name)
	if err != nil {
		return nil, err
	}
	return e.backups.Backup(ctx, col)
}

// Restore rebuilds the named collection from its newest backup and registers
// it. A name already in use reports ErrCollectionExists; delete the live
// collection first to restore over it.
func (e *Engine) Restore(ctx context.Context, name string) error {
	start := time.Now()
	err := e.runRestore(ctx, name)
	e.metrics.RecordRestore(time.Since(start), err)
	e.logger.LogRestore(ctx, name, err)
	return err
}

func (e *Engine) runRestore(ctx context.Context, name string) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if e.backups == nil {
		return errors.New("aresvec: no backup store configured")
	}
	if err := validateCollectionName(name); err != nil {
		return err
	}

	col, err := e.backups.Restore(ctx, name, func(o *collection.Options) {
		o.Graph = e.graphOpts
	})
	if err != nil {
		return err
	}

	return e.register(col)
}

// CacheStats reports the embedding cache: entries, bytes, and hit/miss
// counters since construction.
func (e *Engine) CacheStats() (entries int, sizeBytes int64, hits, misses int64) {
	hits, misses = e.cache.Stats()
	return e.cache.Len(), e.cache.SizeBytes(), hits, misses
}

// Models returns the names of all loaded embedding models.
func (e *Engine) Models() []string {
	return e.registry.Loaded()
}

// Close stops the inference pool and closes the default model if it holds
// resources. Close is idempotent; collection operations after Close fail
// with ErrClosed.
func (e *Engine) Close() error {
	if e == nil || !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	e.embedder.Close()
	e.pool.Close()

	if closer, ok := e.defModel.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
