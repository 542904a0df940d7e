package embedding

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/ares-labs/aresvec/lexical"
	"github.com/ares-labs/aresvec/model"
)

// HashModel embeds text by hashing tokens into a fixed number of buckets and
// L2-normalizing the resulting count histogram. It is deterministic, loads
// instantly, and needs no external weights, which makes it the built-in
// model for local use. Texts sharing vocabulary land near each other under
// cosine distance.
type HashModel struct {
	name string
	dim  int
}

var _ SparseModel = (*HashModel)(nil)

// NewHashModel creates a hash embedder producing dim-length vectors.
func NewHashModel(name string, dim int) (*HashModel, error) {
	if dim < 1 {
		return nil, fmt.Errorf("hash model dimension must be positive, got %d", dim)
	}
	if name == "" {
		name = "hash"
	}

	return &HashModel{name: name, dim: dim}, nil
}

// Name implements Model.
func (m *HashModel) Name() string { return m.name }

// Dimensions implements Model.
func (m *HashModel) Dimensions() int { return m.dim }

// Embed implements Model.
func (m *HashModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		vec := make([]float32, m.dim)
		for _, tok := range lexical.Tokenize(text) {
			vec[m.bucket(tok)]++
		}
		normalize(vec)
		out[i] = vec
	}

	return out, nil
}

// EmbedSparse implements SparseModel. Indices are bucket ids, sorted
// ascending; values are the L2-normalized token counts.
func (m *HashModel) EmbedSparse(ctx context.Context, texts []string) ([]model.SparseVector, error) {
	out := make([]model.SparseVector, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		counts := make(map[uint32]float32)
		for _, tok := range lexical.Tokenize(text) {
			counts[m.bucket(tok)]++
		}

		indices := make([]uint32, 0, len(counts))
		for idx := range counts {
			indices = append(indices, idx)
		}
		slices.Sort(indices)

		values := make([]float32, len(indices))
		var sum float64
		for j, idx := range indices {
			values[j] = counts[idx]
			sum += float64(counts[idx]) * float64(counts[idx])
		}
		if sum > 0 {
			inv := float32(1 / math.Sqrt(sum))
			for j := range values {
				values[j] *= inv
			}
		}

		out[i] = model.SparseVector{Indices: indices, Values: values}
	}

	return out, nil
}

func (m *HashModel) bucket(token string) uint32 {
	return uint32(xxhash.Sum64String(token) % uint64(m.dim))
}

// normalize scales vec to unit L2 norm. Empty input produces no tokens; the
// zero vector is replaced by a fixed unit vector so cosine distance stays
// defined.
func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		vec[0] = 1
		return
	}

	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
}
