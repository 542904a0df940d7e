package rerank

import (
	"context"

	"github.com/ares-labs/aresvec/lexical"
)

// TokenOverlapModel scores passages by Jaccard overlap between the query's
// and the passage's token sets. It is the built-in scorer for setups without
// a real cross-encoder: deterministic, instant, and dependency-free.
type TokenOverlapModel struct{}

var _ Model = TokenOverlapModel{}

// NewTokenOverlapModel returns the overlap scorer.
func NewTokenOverlapModel() TokenOverlapModel { return TokenOverlapModel{} }

// Name implements Model.
func (TokenOverlapModel) Name() string { return "token-overlap" }

// Score implements Model.
func (TokenOverlapModel) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	queryTokens := tokenSet(query)

	scores := make([]float64, len(passages))
	for i, passage := range passages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scores[i] = jaccard(queryTokens, tokenSet(passage))
	}

	return scores, nil
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range lexical.Tokenize(text) {
		set[tok] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}

	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
