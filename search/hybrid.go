package search

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ares-labs/aresvec/collection"
)

// rrfK is the standard reciprocal rank fusion damping constant.
const rrfK = 60

// hybrid runs the semantic and keyword strategies concurrently and fuses
// their rankings. Candidates are the union of both top-N sets; a document
// missing from one ranking contributes nothing for that signal.
func (e *Engine) hybrid(ctx context.Context, col *collection.Collection, query string, fetch int, filter *collection.Filter) ([]scored, error) {
	var sem, kw []scored

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sem, err = e.semantic(gctx, col, query, fetch, filter)
		return err
	})
	g.Go(func() error {
		kw = e.keyword(col, query, fetch, filter)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var fused map[string]float64
	switch e.opts.Fusion {
	case FusionRRF:
		fused = fuseRRF(sem, kw, e.opts.SemanticWeight, e.opts.KeywordWeight)
	default:
		fused = fuseWeighted(sem, kw, e.opts.SemanticWeight, e.opts.KeywordWeight)
	}

	out := make([]scored, 0, len(fused))
	for id, score := range fused {
		out = append(out, scored{id: id, score: score})
	}
	sortScored(out)

	return truncate(out, fetch), nil
}

// fuseWeighted sums the weighted normalized scores per document.
func fuseWeighted(sem, kw []scored, semWeight, kwWeight float64) map[string]float64 {
	fused := make(map[string]float64, len(sem)+len(kw))
	for _, s := range sem {
		fused[s.id] += semWeight * s.score
	}
	for _, s := range kw {
		fused[s.id] += kwWeight * s.score
	}

	return fused
}

// fuseRRF sums weighted reciprocal ranks. Scores are scaled so a document
// ranked first in both lists lands exactly at 1.
func fuseRRF(sem, kw []scored, semWeight, kwWeight float64) map[string]float64 {
	fused := make(map[string]float64, len(sem)+len(kw))
	for rank, s := range sem {
		fused[s.id] += semWeight / float64(rrfK+rank+1)
	}
	for rank, s := range kw {
		fused[s.id] += kwWeight / float64(rrfK+rank+1)
	}

	if best := (semWeight + kwWeight) / float64(rrfK+1); best > 0 {
		for id := range fused {
			fused[id] /= best
		}
	}

	return fused
}
