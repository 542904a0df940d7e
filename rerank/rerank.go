// Package rerank reorders search results with a cross-encoder style scoring
// model. Reranking is best-effort: on model failure, timeout, or
// cancellation the original order is returned and the search still succeeds.
package rerank

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ares-labs/aresvec/model"
)

// DefaultTimeout bounds one scoring call unless overridden.
const DefaultTimeout = 5 * time.Second

// Model scores query/passage pairs. Higher means more relevant.
// Implementations must be safe for concurrent use.
type Model interface {
	// Name identifies the model in logs.
	Name() string

	// Score returns one score per passage, index-aligned.
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}

// Options configures a Reranker.
type Options struct {
	// Timeout bounds each Rerank call. Zero or negative falls back to
	// DefaultTimeout.
	Timeout time.Duration

	// Logger receives degradation warnings. Nil discards them.
	Logger *slog.Logger
}

// DefaultOptions are the options used by New unless overridden.
var DefaultOptions = Options{
	Timeout: DefaultTimeout,
}

// Reranker applies a Model to search results.
type Reranker struct {
	model   Model
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a reranker around m.
func New(m Model, optFns ...func(o *Options)) (*Reranker, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if m == nil {
		return nil, fmt.Errorf("rerank model is nil")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	return &Reranker{
		model:   m,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}, nil
}

// Model returns the underlying scoring model.
func (r *Reranker) Model() Model { return r.model }

type scoreReply struct {
	scores []float64
	err    error
}

// Rerank reorders results descending by model score, ties ascending by
// document id, and attaches each score as RerankScore. The input slice is
// not modified. If scoring fails or exceeds the timeout, the input order is
// returned unchanged with no scores attached; reranking never fails a
// search.
func (r *Reranker) Rerank(ctx context.Context, query string, results []model.SearchResult) []model.SearchResult {
	if len(results) == 0 {
		return results
	}

	passages := make([]string, len(results))
	for i := range results {
		passages[i] = results[i].Document.Content
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// Score runs in its own goroutine so a model that ignores its context
	// cannot hold the search past the deadline. The buffered channel lets
	// an abandoned call finish without leaking.
	replyCh := make(chan scoreReply, 1)
	go func() {
		scores, err := r.model.Score(ctx, query, passages)
		replyCh <- scoreReply{scores: scores, err: err}
	}()

	var reply scoreReply
	select {
	case reply = <-replyCh:
	case <-ctx.Done():
		reply = scoreReply{err: ctx.Err()}
	}

	if reply.err != nil {
		r.logger.Warn("rerank degraded to original order",
			slog.String("model", r.model.Name()),
			slog.Any("error", reply.err),
		)
		return results
	}
	if len(reply.scores) != len(results) {
		r.logger.Warn("rerank degraded to original order",
			slog.String("model", r.model.Name()),
			slog.Int("scores", len(reply.scores)),
			slog.Int("results", len(results)),
		)
		return results
	}

	out := make([]model.SearchResult, len(results))
	copy(out, results)
	for i := range out {
		score := reply.scores[i]
		out[i].RerankScore = &score
	}

	sort.Slice(out, func(i, j int) bool {
		si, sj := *out[i].RerankScore, *out[j].RerankScore
		if si != sj {
			return si > sj
		}
		return out[i].Document.ID < out[j].Document.ID
	})

	return out
}
