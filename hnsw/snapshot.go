package hnsw

import (
	"fmt"

	"github.com/ares-labs/aresvec/distance"
)

// GraphData is a deep copy of a graph's vectors and link structure,
// detached from the graph's lock. Node order follows internal ids.
type GraphData struct {
	Dimension int
	Metric    distance.Metric
	Vectors   [][]float32
	Levels    []uint8
	Neighbors [][][]uint32
}

// Snapshot copies the graph's full state under a read lock. Writers are not
// blocked longer than the copy takes.
func (g *Graph) Snapshot() *GraphData {
	g.mu.RLock()
	defer g.mu.RUnlock()

	data := &GraphData{
		Dimension: g.dimension,
		Metric:    g.metric,
		Vectors:   make([][]float32, len(g.nodes)),
		Levels:    make([]uint8, len(g.nodes)),
		Neighbors: make([][][]uint32, len(g.nodes)),
	}

	for i := range g.nodes {
		n := &g.nodes[i]

		vec := make([]float32, len(n.vector))
		copy(vec, n.vector)
		data.Vectors[i] = vec

		data.Levels[i] = uint8(n.level)

		levels := make([][]uint32, len(n.neighbors))
		for l, links := range n.neighbors {
			cp := make([]uint32, len(links))
			copy(cp, links)
			levels[l] = cp
		}
		data.Neighbors[i] = levels
	}

	return data
}

// FromData rebuilds a graph from snapshot data, taking ownership of the
// contained slices. The entry point is recomputed as the highest-level node,
// ties resolved toward the lowest id.
func FromData(data *GraphData, optFns ...func(o *Options)) (*Graph, error) {
	g, err := New(data.Dimension, data.Metric, optFns...)
	if err != nil {
		return nil, err
	}

	n := len(data.Vectors)
	if len(data.Levels) != n || len(data.Neighbors) != n {
		return nil, fmt.Errorf("inconsistent snapshot: %d vectors, %d levels, %d adjacency sets",
			n, len(data.Levels), len(data.Neighbors))
	}

	g.nodes = make([]node, n)
	top, topLevel := uint32(0), -1

	for i := range data.Vectors {
		if len(data.Vectors[i]) != data.Dimension {
			return nil, &DimensionMismatchError{Expected: data.Dimension, Actual: len(data.Vectors[i])}
		}

		level := int(data.Levels[i])
		neighbors := data.Neighbors[i]
		if len(neighbors) != level+1 {
			return nil, fmt.Errorf("node %d: %d adjacency levels for level %d", i, len(neighbors), level)
		}

		for l, links := range neighbors {
			for _, nb := range links {
				if int(nb) >= n {
					return nil, fmt.Errorf("node %d: neighbor %d out of range at level %d", i, nb, l)
				}
			}
		}

		g.nodes[i] = node{
			vector:    data.Vectors[i],
			level:     level,
			neighbors: neighbors,
		}

		if level > topLevel {
			top, topLevel = uint32(i), level
		}
	}

	if topLevel >= 0 {
		g.entryPoint = top
		g.maxLevel = topLevel
	}

	return g, nil
}

// Level returns a node's top level.
func (g *Graph) Level(id uint32) (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if int(id) >= len(g.nodes) {
		return 0, ErrInvalidNode
	}

	return g.nodes[id].level, nil
}

// Neighbors returns a copy of a node's adjacency list at one level.
func (g *Graph) Neighbors(id uint32, level int) ([]uint32, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if int(id) >= len(g.nodes) {
		return nil, ErrInvalidNode
	}
	if level < 0 || level > g.nodes[id].level {
		return nil, fmt.Errorf("node %d has no level %d", id, level)
	}

	links := g.nodes[id].neighbors[level]
	out := make([]uint32, len(links))
	copy(out, links)

	return out, nil
}
