package embedding

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ares-labs/aresvec/cache"
	"github.com/ares-labs/aresvec/internal/pool"
	"github.com/ares-labs/aresvec/model"
)

// Options configures a Service.
type Options struct {
	// BatchSize caps the number of texts per model call.
	BatchSize int

	// Workers sizes the inference pool when no Pool is supplied. Zero
	// defaults to GOMAXPROCS.
	Workers int

	// CacheTTL is the lifetime of cached embeddings. Zero means no expiry.
	CacheTTL time.Duration

	// Pool, when set, is shared with other services and not closed by
	// Close.
	Pool *pool.WorkerPool
}

// DefaultOptions are the options used by NewService unless overridden.
var DefaultOptions = Options{
	BatchSize: 32,
}

// Service computes embeddings through a Model, consulting the cache first
// and batching the misses onto a bounded worker pool. All methods are safe
// for concurrent use.
type Service struct {
	model     Model
	cache     cache.Cache
	pool      *pool.WorkerPool
	ownsPool  bool
	batchSize int
	ttl       time.Duration
}

// NewService wraps m with caching and batching. A nil cache disables
// caching without changing Embed's observable behavior.
func NewService(m Model, c cache.Cache, optFns ...func(o *Options)) (*Service, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if m == nil {
		return nil, fmt.Errorf("embedding model is nil")
	}
	if c == nil {
		c = cache.NoOp{}
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultOptions.BatchSize
	}

	s := &Service{
		model:     m,
		cache:     c,
		batchSize: opts.BatchSize,
		ttl:       opts.CacheTTL,
	}

	if opts.Pool != nil {
		s.pool = opts.Pool
	} else {
		s.pool = pool.New(opts.Workers)
		s.ownsPool = true
	}

	return s, nil
}

// Model returns the underlying model.
func (s *Service) Model() Model { return s.model }

// Close releases the inference pool. Shared pools passed in via Options are
// left running. Cached embeddings remain readable after Close.
func (s *Service) Close() {
	if s.ownsPool {
		s.pool.Close()
	}
}

// Embed returns one vector per text, index-aligned with the input. Cached
// texts are served without touching the model; the rest are batched and run
// concurrently on the pool. On any error nothing is cached, so a failed call
// never leaves partial state behind.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	name := s.model.Name()
	out := make([][]float32, len(texts))

	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if vec, ok := s.cache.Get(name, text); ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missIdx) == 0 {
		return out, nil
	}

	vecs, err := runBatches(ctx, s.pool, missTexts, s.batchSize,
		func(ctx context.Context, batch []string) ([][]float32, error) {
			return s.model.Embed(ctx, batch)
		})
	if err != nil {
		return nil, &ComputeError{Model: name, cause: err}
	}

	dim := s.model.Dimensions()
	for _, vec := range vecs {
		if len(vec) != dim {
			return nil, &ComputeError{Model: name,
				cause: fmt.Errorf("embedding has %d dimensions, want %d", len(vec), dim)}
		}
	}

	for j, idx := range missIdx {
		s.cache.Set(name, missTexts[j], vecs[j], s.ttl)
		out[idx] = vecs[j]
	}

	return out, nil
}

// EmbedSparse is Embed for sparse vectors. It returns ErrSparseNotSupported
// when the model lacks the SparseModel capability. Sparse entries live in
// their own cache key space, so dense and sparse embeddings of the same text
// never collide.
func (s *Service) EmbedSparse(ctx context.Context, texts []string) ([]model.SparseVector, error) {
	sm, ok := s.model.(SparseModel)
	if !ok {
		return nil, ErrSparseNotSupported
	}
	if len(texts) == 0 {
		return nil, nil
	}

	// NUL cannot appear in a model name, which keeps this key space
	// disjoint from the dense one.
	name := s.model.Name() + "\x00sparse"
	out := make([]model.SparseVector, len(texts))

	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if payload, ok := s.cache.Get(name, text); ok {
			if sv, ok := decodeSparse(payload); ok {
				out[i] = sv
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missIdx) == 0 {
		return out, nil
	}

	svs, err := runBatches(ctx, s.pool, missTexts, s.batchSize,
		func(ctx context.Context, batch []string) ([]model.SparseVector, error) {
			return sm.EmbedSparse(ctx, batch)
		})
	if err != nil {
		return nil, &ComputeError{Model: s.model.Name(), cause: err}
	}

	for j, idx := range missIdx {
		s.cache.Set(name, missTexts[j], encodeSparse(svs[j]), s.ttl)
		out[idx] = svs[j]
	}

	return out, nil
}

// runBatches splits texts into size-bounded batches, runs fn for each on the
// worker pool, and reassembles results index-aligned with texts. The first
// failure cancels the remaining batches; a context abort abandons outstanding
// work without waiting for it.
func runBatches[T any](ctx context.Context, wp *pool.WorkerPool, texts []string, size int, fn func(ctx context.Context, batch []string) ([]T, error)) ([]T, error) {
	out := make([]T, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		batch := texts[start:end]

		g.Go(func() error {
			done := make(chan struct{})
			var vals []T
			var err error

			if serr := wp.Submit(gctx, func() {
				defer close(done)
				vals, err = fn(gctx, batch)
			}); serr != nil {
				return serr
			}

			select {
			case <-done:
			case <-gctx.Done():
				return gctx.Err()
			}

			if err != nil {
				return err
			}
			if len(vals) != len(batch) {
				return fmt.Errorf("model returned %d results for %d inputs", len(vals), len(batch))
			}

			copy(out[start:end], vals)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}
