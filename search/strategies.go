package search

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/ares-labs/aresvec/collection"
	"github.com/ares-labs/aresvec/distance"
	"github.com/ares-labs/aresvec/lexical"
	"github.com/ares-labs/aresvec/model"
)

// scored pairs a document id with a strategy score in [0,1].
type scored struct {
	id    string
	score float64
}

// sortScored orders by score descending, ties ascending by id so equal
// scores rank deterministically.
func sortScored(s []scored) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].score != s[j].score {
			return s[i].score > s[j].score
		}
		return s[i].id < s[j].id
	})
}

func truncate(s []scored, n int) []scored {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// scoreFromDistance maps a graph distance to a similarity in [0,1].
// Euclidean and cosine distances are non-negative, so 1/(1+d) works
// directly; the dot metric's negated products span both signs and get a
// sigmoid instead.
func scoreFromDistance(m distance.Metric, d float32) float64 {
	if m == distance.Dot {
		return 1 / (1 + math.Exp(float64(d)))
	}
	return 1 / (1 + float64(d))
}

// semantic embeds the query and searches the proximity graph.
func (e *Engine) semantic(ctx context.Context, col *collection.Collection, query string, fetch int, filter *collection.Filter) ([]scored, error) {
	vecs, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedding service returned %d vectors for one query", len(vecs))
	}

	ef := max(e.opts.EfSearch, fetch)
	matches, err := col.SearchVector(vecs[0], fetch, ef, filter)
	if err != nil {
		return nil, err
	}

	metric := col.Metric()
	out := make([]scored, len(matches))
	for i, m := range matches {
		out[i] = scored{id: m.ID, score: scoreFromDistance(metric, m.Distance)}
	}
	sortScored(out)

	return out, nil
}

// keyword ranks by BM25 and min-max normalizes the surviving candidate set
// to [0,1]. With a single candidate, or all raw scores equal, every score
// normalizes to 1.
func (e *Engine) keyword(col *collection.Collection, query string, fetch int, filter *collection.Filter) []scored {
	raw := col.Lexical().Search(query)
	if len(raw) == 0 {
		return nil
	}

	cands := make([]scored, 0, len(raw))
	lo, hi := math.Inf(1), math.Inf(-1)
	for id, score := range raw {
		if !col.MatchesFilter(id, filter) {
			continue
		}
		cands = append(cands, scored{id: id, score: score})
		lo = math.Min(lo, score)
		hi = math.Max(hi, score)
	}

	for i := range cands {
		if hi > lo {
			cands[i].score = (cands[i].score - lo) / (hi - lo)
		} else {
			cands[i].score = 1
		}
	}
	sortScored(cands)

	return truncate(cands, fetch)
}

// fuzzy scores each document by the best edit-distance similarity of every
// query token against the document's terms, averaged over the query tokens.
func (e *Engine) fuzzy(col *collection.Collection, query string, fetch int, filter *collection.Filter) []scored {
	queryTokens := lexical.Tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	var cands []scored
	col.Lexical().ForEachDoc(func(id string, terms []string) bool {
		if !col.MatchesFilter(id, filter) {
			return true
		}

		var sum float64
		for _, qt := range queryTokens {
			best := 0.0
			for _, term := range terms {
				if s := lexical.Similarity(qt, term); s > best {
					best = s
					if best == 1 {
						break
					}
				}
			}
			sum += best
		}

		if score := sum / float64(len(queryTokens)); score >= e.opts.FuzzyMinSimilarity {
			cands = append(cands, scored{id: id, score: score})
		}
		return true
	})
	sortScored(cands)

	return truncate(cands, fetch)
}

// toResults resolves candidate ids into full documents. Records deleted
// between ranking and resolution are skipped. The reserved content entry is
// lifted out of the metadata map.
func toResults(col *collection.Collection, cands []scored) []model.SearchResult {
	results := make([]model.SearchResult, 0, len(cands))
	for _, c := range cands {
		rec, ok := col.Get(c.id)
		if !ok {
			continue
		}

		content := rec.Content()
		meta := rec.Metadata
		if meta != nil {
			delete(meta, model.ContentKey)
			if len(meta) == 0 {
				meta = nil
			}
		}

		results = append(results, model.SearchResult{
			Document: model.Document{
				ID:       c.id,
				Content:  content,
				Metadata: meta,
			},
			Score: c.score,
		})
	}

	return results
}
