package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ares-labs/aresvec/model"
)

func TestSparsePayloadRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		sv   model.SparseVector
	}{
		{
			name: "empty",
			sv:   model.SparseVector{Indices: []uint32{}, Values: []float32{}},
		},
		{
			name: "small indices",
			sv: model.SparseVector{
				Indices: []uint32{0, 3, 17},
				Values:  []float32{0.5, -1.25, 3},
			},
		},
		{
			name: "indices beyond float32 integer precision",
			sv: model.SparseVector{
				Indices: []uint32{1<<24 + 3, 1 << 30, math.MaxUint32},
				Values:  []float32{1, 2, 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := decodeSparse(encodeSparse(tt.sv))
			require.True(t, ok)
			assert.Equal(t, tt.sv, got)
		})
	}
}

func TestDecodeSparseRejectsGarbage(t *testing.T) {
	_, ok := decodeSparse(nil)
	assert.False(t, ok)

	_, ok = decodeSparse([]float32{2, 1, 1}) // claims 2 pairs, holds 1
	assert.False(t, ok)

	_, ok = decodeSparse([]float32{-1})
	assert.False(t, ok)
}
