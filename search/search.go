// Package search runs multi-strategy retrieval over a collection: semantic
// (graph), keyword (BM25), fuzzy (edit distance), and hybrid (semantic plus
// keyword fused by weights or reciprocal ranks), with optional reranking.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ares-labs/aresvec/collection"
	"github.com/ares-labs/aresvec/embedding"
	"github.com/ares-labs/aresvec/model"
	"github.com/ares-labs/aresvec/rerank"
)

var (
	// ErrInvalidTopK is returned when a search asks for fewer than one
	// result.
	ErrInvalidTopK = errors.New("top k must be positive")

	// ErrInvalidWeights is returned at construction when the hybrid
	// weights are negative or do not sum to 1.0.
	ErrInvalidWeights = errors.New("hybrid weights must be non-negative and sum to 1.0")
)

// weightTolerance absorbs float rounding when validating the weight sum.
const weightTolerance = 1e-9

// Strategy selects how a query is matched against the collection.
type Strategy uint8

const (
	// StrategySemantic embeds the query and searches the proximity graph.
	StrategySemantic Strategy = iota

	// StrategyKeyword ranks by BM25 over the lexical index.
	StrategyKeyword

	// StrategyFuzzy ranks by per-token edit-distance similarity, for typo
	// tolerance. It is standalone and never blended into hybrid scores.
	StrategyFuzzy

	// StrategyHybrid fuses semantic and keyword signals.
	StrategyHybrid
)

func (s Strategy) String() string {
	switch s {
	case StrategySemantic:
		return "semantic"
	case StrategyKeyword:
		return "keyword"
	case StrategyFuzzy:
		return "fuzzy"
	case StrategyHybrid:
		return "hybrid"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// ParseStrategy converts a config string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "semantic":
		return StrategySemantic, nil
	case "keyword", "bm25":
		return StrategyKeyword, nil
	case "fuzzy":
		return StrategyFuzzy, nil
	case "hybrid":
		return StrategyHybrid, nil
	default:
		return 0, fmt.Errorf("unsupported strategy %q", s)
	}
}

// Fusion selects how hybrid combines the two strategy rankings.
type Fusion uint8

const (
	// FusionWeighted sums the weighted normalized scores; documents
	// missing from one ranking contribute zero for that signal.
	FusionWeighted Fusion = iota

	// FusionRRF sums weighted reciprocal ranks instead of scores, which
	// is robust when the two score distributions are not comparable.
	FusionRRF
)

// ParseFusion converts a config string into a Fusion.
func ParseFusion(s string) (Fusion, error) {
	switch s {
	case "weighted":
		return FusionWeighted, nil
	case "rrf":
		return FusionRRF, nil
	default:
		return 0, fmt.Errorf("unsupported fusion %q", s)
	}
}

// Options configures an Engine.
type Options struct {
	// SemanticWeight and KeywordWeight blend the hybrid signals. They
	// must be non-negative and sum to 1.0.
	SemanticWeight float64
	KeywordWeight  float64

	// Fusion picks the hybrid combiner.
	Fusion Fusion

	// RerankMultiplier widens the candidate fetch to TopK*RerankMultiplier
	// when reranking, giving the reranker headroom to promote.
	RerankMultiplier int

	// EfSearch is the graph beam width. Searches asking for more than
	// EfSearch results use their own k as the beam.
	EfSearch int

	// FuzzyMinSimilarity drops fuzzy candidates scoring below it.
	FuzzyMinSimilarity float64
}

// DefaultOptions are the options used by NewEngine unless overridden.
var DefaultOptions = Options{
	SemanticWeight:     0.7,
	KeywordWeight:      0.3,
	Fusion:             FusionWeighted,
	RerankMultiplier:   3,
	EfSearch:           100,
	FuzzyMinSimilarity: 0.3,
}

// Params shapes a single Search call.
type Params struct {
	// Strategy selects the matching method.
	Strategy Strategy

	// TopK caps the number of results.
	TopK int

	// Rerank routes candidates through the reranker before truncation.
	// It is ignored when the engine has no reranker.
	Rerank bool

	// Filter restricts results to records whose metadata matches.
	Filter *collection.Filter
}

// Engine executes searches. It is stateless apart from its configuration
// and safe for concurrent use.
type Engine struct {
	embedder *embedding.Service
	reranker *rerank.Reranker
	opts     Options
}

// NewEngine creates a search engine. The reranker may be nil, in which case
// Params.Rerank is ignored. Weight validation happens here, never at query
// time.
func NewEngine(embedder *embedding.Service, reranker *rerank.Reranker, optFns ...func(o *Options)) (*Engine, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if embedder == nil {
		return nil, errors.New("embedding service is nil")
	}
	if opts.SemanticWeight < 0 || opts.KeywordWeight < 0 ||
		math.Abs(opts.SemanticWeight+opts.KeywordWeight-1) > weightTolerance {
		return nil, fmt.Errorf("%w: semantic=%v keyword=%v",
			ErrInvalidWeights, opts.SemanticWeight, opts.KeywordWeight)
	}
	if opts.RerankMultiplier < 1 {
		opts.RerankMultiplier = DefaultOptions.RerankMultiplier
	}
	if opts.EfSearch < 1 {
		opts.EfSearch = DefaultOptions.EfSearch
	}
	if opts.FuzzyMinSimilarity < 0 || opts.FuzzyMinSimilarity > 1 {
		opts.FuzzyMinSimilarity = DefaultOptions.FuzzyMinSimilarity
	}

	return &Engine{
		embedder: embedder,
		reranker: reranker,
		opts:     opts,
	}, nil
}

// Search runs one query against col. No matches is not an error: the result
// is an empty slice. Blank queries match nothing by definition.
func (e *Engine) Search(ctx context.Context, col *collection.Collection, query string, params Params) ([]model.SearchResult, error) {
	if col == nil {
		return nil, errors.New("collection is nil")
	}
	if params.TopK < 1 {
		return nil, ErrInvalidTopK
	}
	if strings.TrimSpace(query) == "" {
		return []model.SearchResult{}, nil
	}

	rerankRequested := params.Rerank && e.reranker != nil
	fetch := params.TopK
	if rerankRequested {
		fetch *= e.opts.RerankMultiplier
	}

	var cands []scored
	var err error
	switch params.Strategy {
	case StrategySemantic:
		cands, err = e.semantic(ctx, col, query, fetch, params.Filter)
	case StrategyKeyword:
		cands = e.keyword(col, query, fetch, params.Filter)
	case StrategyFuzzy:
		cands = e.fuzzy(col, query, fetch, params.Filter)
	case StrategyHybrid:
		cands, err = e.hybrid(ctx, col, query, fetch, params.Filter)
	default:
		return nil, fmt.Errorf("unsupported strategy %q", params.Strategy)
	}
	if err != nil {
		return nil, err
	}

	results := toResults(col, cands)
	if rerankRequested {
		results = e.reranker.Rerank(ctx, query, results)
	}
	if len(results) > params.TopK {
		results = results[:params.TopK]
	}
	if results == nil {
		results = []model.SearchResult{}
	}

	return results, nil
}
