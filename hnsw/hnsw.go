package hnsw

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/ares-labs/aresvec/distance"
)

const (
	// DefaultM is the default number of bidirectional links per node per
	// level.
	DefaultM = 16

	// DefaultEfConstruction is the default beam width during insertion.
	DefaultEfConstruction = 200

	// mmax0Multiplier doubles the connection bound at layer 0.
	mmax0Multiplier = 2

	// minimumM keeps the level multiplier 1/ln(M) finite.
	minimumM = 2

	// maxLevelCap bounds node levels so they fit the snapshot's uint8
	// level field.
	maxLevelCap = 255
)

var (
	// ErrInvalidK is returned when a search asks for fewer than one result.
	ErrInvalidK = errors.New("k must be at least 1")

	// ErrInvalidNode is returned when an internal node id is out of range.
	ErrInvalidNode = errors.New("invalid node id")
)

// DimensionMismatchError is returned when a vector's length does not match
// the graph dimension.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Candidate is one search hit: an internal node id and its distance to the
// query.
type Candidate struct {
	ID       uint32
	Distance float32
}

// node is one arena slot. neighbors[l] holds the adjacency list for level l;
// the slice exists for every level <= the node's level.
type node struct {
	vector    []float32
	level     int
	neighbors [][]uint32
}

// Options configures a Graph.
type Options struct {
	// M is the number of established connections per node per level.
	// Layer 0 allows 2*M. The range 12-48 suits most embedding workloads.
	M int

	// EfConstruction is the candidate beam width while inserting. Larger
	// values improve graph quality at the cost of slower builds.
	EfConstruction int

	// RandomSeed pins the level generator for reproducible graphs.
	// Nil seeds from the clock.
	RandomSeed *int64
}

// DefaultOptions are the options used by New unless overridden.
var DefaultOptions = Options{
	M:              DefaultM,
	EfConstruction: DefaultEfConstruction,
}

// Graph is an HNSW index over fixed-dimension float32 vectors. The graph
// owns its vectors; callers address nodes by the dense uint32 ids Insert
// hands out. Ids are unstable across Delete (the last node moves into the
// freed slot), so callers tracking external ids must follow the move that
// Delete reports.
type Graph struct {
	mu sync.RWMutex

	dimension  int
	metric     distance.Metric
	distanceFn distance.Func

	mmax            int
	mmax0           int
	layerMultiplier float64
	efConstruction  int

	entryPoint uint32
	maxLevel   int

	nodes []node

	rng *rand.Rand
}

// New creates an empty graph for vectors of the given dimension under the
// given metric.
func New(dimension int, metric distance.Metric, optFns ...func(o *Options)) (*Graph, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if dimension < 1 {
		return nil, fmt.Errorf("dimension must be at least 1, got %d", dimension)
	}

	distanceFn, err := distance.Provider(metric)
	if err != nil {
		return nil, err
	}

	if opts.M < minimumM {
		opts.M = minimumM
	}

	if opts.EfConstruction < opts.M {
		opts.EfConstruction = DefaultEfConstruction
	}

	var rng *rand.Rand
	if opts.RandomSeed != nil {
		rng = rand.New(rand.NewSource(*opts.RandomSeed)) //nolint:gosec
	} else {
		rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec
	}

	return &Graph{
		dimension:       dimension,
		metric:          metric,
		distanceFn:      distanceFn,
		mmax:            opts.M,
		mmax0:           mmax0Multiplier * opts.M,
		layerMultiplier: 1 / math.Log(float64(opts.M)),
		efConstruction:  opts.EfConstruction,
		rng:             rng,
	}, nil
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.nodes)
}

// Dimension returns the vector dimension.
func (g *Graph) Dimension() int { return g.dimension }

// Metric returns the distance metric.
func (g *Graph) Metric() distance.Metric { return g.metric }

// Vector returns the stored vector of a node. The returned slice is owned by
// the graph and must not be modified.
func (g *Graph) Vector(id uint32) ([]float32, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if int(id) >= len(g.nodes) {
		return nil, ErrInvalidNode
	}

	return g.nodes[id].vector, nil
}

// Insert adds a vector and returns its internal id, which is always the
// current node count (dense append).
func (g *Graph) Insert(v []float32) (uint32, error) {
	if len(v) != g.dimension {
		return 0, &DimensionMismatchError{Expected: g.dimension, Actual: len(v)}
	}

	vec := make([]float32, len(v))
	copy(vec, v)

	g.mu.Lock()
	defer g.mu.Unlock()

	id := uint32(len(g.nodes))
	level := g.randomLevel()

	g.nodes = append(g.nodes, node{
		vector:    vec,
		level:     level,
		neighbors: make([][]uint32, level+1),
	})

	// First node becomes the entry point with no links.
	if len(g.nodes) == 1 {
		g.entryPoint = id
		g.maxLevel = level
		return id, nil
	}

	ep := g.entryPoint
	epDist := g.distanceFn(vec, g.nodes[ep].vector)

	// Greedy single-best descent through the levels above the new node.
	for l := g.maxLevel; l > level; l-- {
		ep, epDist = g.greedyStep(vec, ep, epDist, l)
	}

	// Connect on every shared level, reusing the closest candidate set as
	// the entry for the level below.
	sc := acquireSearchContext(len(g.nodes))
	defer releaseSearchContext(sc)

	for l := min(level, g.maxLevel); l >= 0; l-- {
		found := g.searchLayer(sc, vec, ep, epDist, g.efConstruction, l, nil)

		selected := g.selectNeighbors(vec, found, g.mmax)
		for _, n := range selected {
			g.addEdge(id, n, l)
		}

		if len(found) > 0 {
			ep, epDist = found[0].ID, found[0].Distance
		}
	}

	if level > g.maxLevel {
		g.entryPoint = id
		g.maxLevel = level
	}

	return id, nil
}

// Replace swaps the vector stored at id, keeping the node's links untouched.
// Neighbor-pruning quality is not re-optimized after repeated replacement;
// heavily updated collections should be rebuilt periodically.
func (g *Graph) Replace(id uint32, v []float32) error {
	if len(v) != g.dimension {
		return &DimensionMismatchError{Expected: g.dimension, Actual: len(v)}
	}

	vec := make([]float32, len(v))
	copy(vec, v)

	g.mu.Lock()
	defer g.mu.Unlock()

	if int(id) >= len(g.nodes) {
		return ErrInvalidNode
	}

	g.nodes[id].vector = vec

	return nil
}

// Delete removes a node, repairs its former neighbors, and relocates the
// last arena node into the freed slot so ids stay dense. It returns the
// previous id of the relocated node (equal to id when nothing moved) so
// callers can remap their own lookup state.
func (g *Graph) Delete(id uint32) (moved uint32, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if int(id) >= len(g.nodes) {
		return 0, ErrInvalidNode
	}

	victim := g.nodes[id]

	for l := victim.level; l >= 0; l-- {
		former := append([]uint32(nil), victim.neighbors[l]...)

		// Detach the victim completely before repairing.
		for _, f := range former {
			g.removeDirectedEdge(f, id, l)
		}
		g.nodes[id].neighbors[l] = nil

		// Repair each former neighbor from its remaining connections
		// plus bridges through the victim's other neighbors.
		for _, f := range former {
			g.repairNode(f, former, l)
		}
	}

	last := uint32(len(g.nodes) - 1)
	if id != last {
		g.relocate(last, id)
	}
	g.nodes[len(g.nodes)-1] = node{}
	g.nodes = g.nodes[:len(g.nodes)-1]

	g.resetEntryPoint(id, last)

	return last, nil
}

// randomLevel draws a node level from the geometric distribution that keeps
// the expected graph height logarithmic in the node count.
func (g *Graph) randomLevel() int {
	l := int(math.Floor(-math.Log(g.rng.Float64()) * g.layerMultiplier))
	if l > maxLevelCap {
		l = maxLevelCap
	}
	return l
}

// maxConnections is the per-level degree bound.
func (g *Graph) maxConnections(level int) int {
	if level == 0 {
		return g.mmax0
	}
	return g.mmax
}

// addEdge links a and b on the given level in both directions and prunes
// whichever side exceeds its bound.
func (g *Graph) addEdge(a, b uint32, level int) {
	if a == b {
		return
	}

	g.addDirectedEdge(a, b, level)
	g.addDirectedEdge(b, a, level)

	bound := g.maxConnections(level)
	if len(g.nodes[a].neighbors[level]) > bound {
		g.pruneNode(a, level)
	}
	if len(g.nodes[b].neighbors[level]) > bound {
		g.pruneNode(b, level)
	}
}

func (g *Graph) addDirectedEdge(from, to uint32, level int) {
	links := g.nodes[from].neighbors[level]
	for _, n := range links {
		if n == to {
			return
		}
	}
	g.nodes[from].neighbors[level] = append(links, to)
}

func (g *Graph) removeDirectedEdge(from, to uint32, level int) {
	if int(from) >= len(g.nodes) || level >= len(g.nodes[from].neighbors) {
		return
	}

	links := g.nodes[from].neighbors[level]
	for i, n := range links {
		if n == to {
			g.nodes[from].neighbors[level] = append(links[:i], links[i+1:]...)
			return
		}
	}
}

// pruneNode shrinks a node's adjacency list back to the level bound using the
// diversity heuristic, removing dropped edges from both sides.
func (g *Graph) pruneNode(id uint32, level int) {
	n := &g.nodes[id]

	candidates := make([]Candidate, 0, len(n.neighbors[level]))
	for _, nb := range n.neighbors[level] {
		candidates = append(candidates, Candidate{
			ID:       nb,
			Distance: g.distanceFn(n.vector, g.nodes[nb].vector),
		})
	}

	selected := g.selectNeighbors(n.vector, candidates, g.maxConnections(level))

	keep := make(map[uint32]struct{}, len(selected))
	for _, s := range selected {
		keep[s] = struct{}{}
	}

	for _, nb := range n.neighbors[level] {
		if _, ok := keep[nb]; !ok {
			g.removeDirectedEdge(nb, id, level)
		}
	}

	n.neighbors[level] = selected
}

// repairNode rebuilds one node's adjacency list after a delete. The candidate
// pool is its remaining connections plus the deleted node's other former
// neighbors, re-selected with the same heuristic used during insertion.
func (g *Graph) repairNode(id uint32, bridges []uint32, level int) {
	n := &g.nodes[id]
	if level >= len(n.neighbors) {
		return
	}

	pool := make(map[uint32]struct{}, len(n.neighbors[level])+len(bridges))
	for _, nb := range n.neighbors[level] {
		pool[nb] = struct{}{}
	}
	for _, b := range bridges {
		if b != id && g.nodes[b].level >= level {
			pool[b] = struct{}{}
		}
	}

	candidates := make([]Candidate, 0, len(pool))
	for nb := range pool {
		candidates = append(candidates, Candidate{
			ID:       nb,
			Distance: g.distanceFn(n.vector, g.nodes[nb].vector),
		})
	}

	selected := g.selectNeighbors(n.vector, candidates, g.maxConnections(level))

	old := n.neighbors[level]
	keep := make(map[uint32]struct{}, len(selected))
	for _, s := range selected {
		keep[s] = struct{}{}
	}

	for _, nb := range old {
		if _, ok := keep[nb]; !ok {
			g.removeDirectedEdge(nb, id, level)
		}
	}

	n.neighbors[level] = selected

	bound := g.maxConnections(level)
	for _, s := range selected {
		g.addDirectedEdge(s, id, level)
		if len(g.nodes[s].neighbors[level]) > bound {
			g.pruneNode(s, level)
		}
	}
}

// relocate moves the node at index from into slot to and rewrites the
// references held by its neighbors. Strict edge symmetry guarantees those are
// the only references in the graph.
func (g *Graph) relocate(from, to uint32) {
	moved := g.nodes[from]

	for l := 0; l <= moved.level; l++ {
		for _, nb := range moved.neighbors[l] {
			links := g.nodes[nb].neighbors[l]
			for i, n := range links {
				if n == from {
					links[i] = to
				}
			}
		}
	}

	g.nodes[to] = moved
}

// resetEntryPoint re-establishes the entry point after the node at deleted
// was removed and the node previously at last was relocated into its slot.
func (g *Graph) resetEntryPoint(deleted, last uint32) {
	if len(g.nodes) == 0 {
		g.entryPoint = 0
		g.maxLevel = 0
		return
	}

	switch {
	case g.entryPoint == deleted:
		// The entry point itself was deleted. Its slot now holds the
		// relocated node (if any), which may not reach the top level,
		// so fall through to the check below.
	case g.entryPoint == last:
		// The entry point was the relocated node; follow it. Its level
		// is unchanged, so the max level still holds.
		g.entryPoint = deleted
		return
	default:
		return
	}

	if int(g.entryPoint) < len(g.nodes) && g.nodes[g.entryPoint].level >= g.maxLevel {
		return
	}

	top, topLevel := uint32(0), -1
	for i := range g.nodes {
		if g.nodes[i].level > topLevel {
			top, topLevel = uint32(i), g.nodes[i].level
		}
	}

	g.entryPoint = top
	g.maxLevel = topLevel
}
