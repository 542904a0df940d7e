package embedding

import (
	"math"

	"github.com/ares-labs/aresvec/model"
)

// Sparse vectors ride through the embedding cache as flat float32 payloads:
// [count, index0, value0, index1, value1, ...]. Index slots carry raw uint32
// bits via Float32frombits; no arithmetic ever touches them, so the round
// trip is exact for all indices.

func encodeSparse(sv model.SparseVector) []float32 {
	buf := make([]float32, 1+2*len(sv.Indices))
	buf[0] = float32(len(sv.Indices))
	for i, idx := range sv.Indices {
		buf[1+2*i] = math.Float32frombits(idx)
		buf[2+2*i] = sv.Values[i]
	}

	return buf
}

func decodeSparse(buf []float32) (model.SparseVector, bool) {
	if len(buf) == 0 {
		return model.SparseVector{}, false
	}

	n := int(buf[0])
	if n < 0 || len(buf) != 1+2*n {
		return model.SparseVector{}, false
	}

	sv := model.SparseVector{
		Indices: make([]uint32, n),
		Values:  make([]float32, n),
	}
	for i := 0; i < n; i++ {
		sv.Indices[i] = math.Float32bits(buf[1+2*i])
		sv.Values[i] = buf[2+2*i]
	}

	return sv, true
}
