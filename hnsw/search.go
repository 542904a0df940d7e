package hnsw

import (
	"sort"

	"github.com/ares-labs/aresvec/internal/queue"
)

// Search returns the k nearest candidates to query, sorted by ascending
// distance with ties broken by ascending id. The beam width is max(ef, k).
// An empty graph yields an empty result. A non-nil filter drops nodes from
// the result set without stopping the traversal through them.
func (g *Graph) Search(query []float32, k, ef int, filter func(uint32) bool) ([]Candidate, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	if len(query) != g.dimension {
		return nil, &DimensionMismatchError{Expected: g.dimension, Actual: len(query)}
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.nodes) == 0 {
		return nil, nil
	}

	if ef < k {
		ef = k
	}

	ep := g.entryPoint
	epDist := g.distanceFn(query, g.nodes[ep].vector)

	for l := g.maxLevel; l > 0; l-- {
		ep, epDist = g.greedyStep(query, ep, epDist, l)
	}

	sc := acquireSearchContext(len(g.nodes))
	defer releaseSearchContext(sc)

	found := g.searchLayer(sc, query, ep, epDist, ef, 0, filter)
	if len(found) > k {
		found = found[:k]
	}

	return found, nil
}

// greedyStep moves the entry point to its closest neighbor on one level,
// repeating until no neighbor improves on it.
func (g *Graph) greedyStep(query []float32, ep uint32, epDist float32, level int) (uint32, float32) {
	for {
		improved := false

		for _, nb := range g.nodes[ep].neighbors[level] {
			if d := g.distanceFn(query, g.nodes[nb].vector); d < epDist {
				ep, epDist = nb, d
				improved = true
			}
		}

		if !improved {
			return ep, epDist
		}
	}
}

// searchLayer runs a beam search of width ef across one level and returns
// the nodes it settled on, sorted by ascending (distance, id). Filtered-out
// nodes are still traversed; they just never enter the result set.
func (g *Graph) searchLayer(sc *searchContext, query []float32, ep uint32, epDist float32, ef, level int, filter func(uint32) bool) []Candidate {
	sc.reset(len(g.nodes))
	sc.markVisited(ep)

	sc.candidates.Push(queue.Item{ID: ep, Distance: epDist})
	if filter == nil || filter(ep) {
		sc.results.Push(queue.Item{ID: ep, Distance: epDist})
	}

	for sc.candidates.Len() > 0 {
		curr, _ := sc.candidates.Pop()

		if sc.results.Len() >= ef {
			if worst, ok := sc.results.Peek(); ok && curr.Distance > worst.Distance {
				break
			}
		}

		for _, nb := range g.nodes[curr.ID].neighbors[level] {
			if sc.markVisited(nb) {
				continue
			}

			d := g.distanceFn(query, g.nodes[nb].vector)

			if sc.results.Len() >= ef {
				if worst, _ := sc.results.Peek(); d >= worst.Distance {
					continue
				}
			}

			sc.candidates.Push(queue.Item{ID: nb, Distance: d})

			if filter == nil || filter(nb) {
				sc.results.Push(queue.Item{ID: nb, Distance: d})
				if sc.results.Len() > ef {
					sc.results.Pop()
				}
			}
		}
	}

	// Drain the max-heap back to front for an ascending ordering.
	out := make([]Candidate, sc.results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		it, _ := sc.results.Pop()
		out[i] = Candidate{ID: it.ID, Distance: it.Distance}
	}

	return out
}

// selectNeighbors picks up to m connection targets using the diversity
// heuristic: walking candidates from closest to farthest, a candidate is
// kept only if no already-kept node is closer to it than the base vector
// is. Rejected candidates backfill remaining slots so dense regions keep
// their full degree.
func (g *Graph) selectNeighbors(base []float32, candidates []Candidate, m int) []uint32 {
	if len(candidates) == 0 || m < 1 {
		return nil
	}

	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Distance != sorted[j].Distance {
			return sorted[i].Distance < sorted[j].Distance
		}
		return sorted[i].ID < sorted[j].ID
	})

	if len(sorted) <= m {
		out := make([]uint32, len(sorted))
		for i, c := range sorted {
			out[i] = c.ID
		}
		return out
	}

	selected := make([]uint32, 0, m)
	rejected := make([]uint32, 0, len(sorted)-m)

	for _, c := range sorted {
		if len(selected) >= m {
			break
		}

		diverse := true
		for _, s := range selected {
			if g.distanceFn(g.nodes[c.ID].vector, g.nodes[s].vector) < c.Distance {
				diverse = false
				break
			}
		}

		if diverse {
			selected = append(selected, c.ID)
		} else {
			rejected = append(rejected, c.ID)
		}
	}

	for _, r := range rejected {
		if len(selected) >= m {
			break
		}
		selected = append(selected, r)
	}

	return selected
}
