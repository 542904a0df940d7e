package collection

// VectorMatch is one proximity hit mapped back to its external id.
type VectorMatch struct {
	ID       string
	Distance float32
}

// SearchVector runs a graph search and resolves internal ids to external
// ones. An optional filter restricts results to records whose metadata
// matches; filtered-out nodes are traversed but never returned. An empty
// collection or an unmatchable filter yields an empty result, nil error.
func (c *Collection) SearchVector(query []float32, k, ef int, filter *Filter) ([]VectorMatch, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var pred func(uint32) bool

	if filter != nil {
		bm := c.bitmapForLocked(filter)
		if bm == nil || bm.IsEmpty() {
			return nil, nil
		}
		pred = bm.Contains
	}

	candidates, err := c.graph.Search(query, k, ef, pred)
	if err != nil {
		return nil, err
	}

	out := make([]VectorMatch, len(candidates))
	for i, cand := range candidates {
		out[i] = VectorMatch{
			ID:       c.ids[cand.ID],
			Distance: cand.Distance,
		}
	}

	return out, nil
}
