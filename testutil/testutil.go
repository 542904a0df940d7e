package testutil

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/ares-labs/aresvec/distance"
)

// Neighbor is one ground-truth hit: an internal node id and its distance.
type Neighbor struct {
	ID       uint32
	Distance float32
}

// RNG is a seeded random number generator safe for concurrent use.
type RNG struct {
	mu   sync.Mutex
	rand *rand.Rand
	seed int64
}

// NewRNG creates a generator with the given seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), //nolint:gosec
		seed: seed,
	}
}

// Reset rewinds the generator to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rand = rand.New(rand.NewSource(r.seed)) //nolint:gosec
}

// Intn returns a non-negative pseudo-random number in [0, n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rand.Intn(n)
}

// Float32 returns a pseudo-random number in [0.0, 1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rand.Float32()
}

// FillUniform fills dst with values in [0, 1). It locks once per call.
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// UniformVectors generates num vectors with values in [0, 1), sharing one
// backing array.
func (r *RNG) UniformVectors(num, dim int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dim)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dim : (i+1)*dim]
		for j := range vec {
			vec[j] = r.rand.Float32()
		}
		vectors[i] = vec
	}

	return vectors
}

// UnitVectors generates num L2-normalized vectors drawn from a Gaussian,
// which distributes them uniformly on the hypersphere.
func (r *RNG) UnitVectors(num, dim int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dim)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dim : (i+1)*dim]
		r.fillUnitLocked(vec)
		vectors[i] = vec
	}

	return vectors
}

// UnitVector generates a single L2-normalized vector.
func (r *RNG) UnitVector(dim int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	vec := make([]float32, dim)
	r.fillUnitLocked(vec)

	return vec
}

func (r *RNG) fillUnitLocked(vec []float32) {
	var norm float64
	for j := range vec {
		v := r.rand.NormFloat64()
		vec[j] = float32(v)
		norm += v * v
	}

	if norm == 0 {
		norm = 1
	}

	invNorm := float32(1.0 / math.Sqrt(norm))
	for j := range vec {
		vec[j] *= invNorm
	}
}

// ClusteredVectors generates vectors grouped around random unit centroids
// with Gaussian noise of the given spread. Vector i belongs to cluster
// i%clusters.
func (r *RNG) ClusteredVectors(num, dim, clusters int, spread float32) [][]float32 {
	centroids := r.UnitVectors(clusters, dim)

	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dim)
	vectors := make([][]float32, num)

	for i := range num {
		centroid := centroids[i%clusters]
		vec := data[i*dim : (i+1)*dim]
		for j := range vec {
			vec[j] = centroid[j] + float32(r.rand.NormFloat64())*spread
		}
		vectors[i] = vec
	}

	return vectors
}

// ExactTopK scans all vectors with the given distance function and returns
// the k nearest to query, sorted by ascending distance with ties broken by
// ascending id.
func ExactTopK(fn distance.Func, vectors [][]float32, query []float32, k int) []Neighbor {
	results := make([]Neighbor, len(vectors))
	for i, v := range vectors {
		results[i] = Neighbor{ID: uint32(i), Distance: fn(query, v)}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > k {
		results = results[:k]
	}

	return results
}

// ComputeRecall compares approximate results against ground truth and
// returns the fraction of true neighbors found.
func ComputeRecall(groundTruth, approximate []Neighbor) float64 {
	if len(groundTruth) == 0 {
		return 1.0
	}
	if len(approximate) == 0 {
		return 0.0
	}

	k := min(len(approximate), len(groundTruth))

	truthSet := make(map[uint32]struct{}, k)
	for i := range k {
		truthSet[groundTruth[i].ID] = struct{}{}
	}

	hits := 0
	for _, n := range approximate {
		if _, ok := truthSet[n.ID]; ok {
			hits++
		}
	}

	return float64(hits) / float64(k)
}
