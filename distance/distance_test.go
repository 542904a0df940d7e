package distance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDotProduct(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Simple", []float32{1, 2, 3}, []float32{4, 5, 6}, 32},
		{"Zero", []float32{0, 0, 0}, []float32{0, 0, 0}, 0},
		{"Mixed", []float32{1, -1, 2}, []float32{1, 1, -2}, -4},
		{"Empty", []float32{}, []float32{}, 0},
		{"Single", []float32{2}, []float32{3}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DotProduct(tt.a, tt.b)
			assert.InDelta(t, tt.expected, got, 1e-5)
		})
	}
}

func TestSquaredL2(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Simple", []float32{1, 2, 3}, []float32{4, 5, 6}, 27},
		{"Identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"Negative", []float32{-1, -2}, []float32{1, 2}, 20},
		{"Empty", []float32{}, []float32{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SquaredL2(tt.a, tt.b)
			assert.InDelta(t, tt.expected, got, 1e-5)
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"Opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"Orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"ZeroNorm", []float32{0, 0}, []float32{1, 2}, 0},
		{"Scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.expected, got, 1e-5)
		})
	}
}

func TestNormalizeL2InPlace(t *testing.T) {
	t.Run("Unit norm after normalization", func(t *testing.T) {
		v := []float32{3, 4}
		require.True(t, NormalizeL2InPlace(v))
		assert.InDelta(t, 0.6, v[0], 1e-6)
		assert.InDelta(t, 0.8, v[1], 1e-6)
		assert.InDelta(t, 1.0, Magnitude(v), 1e-6)
	})

	t.Run("Zero vector is rejected", func(t *testing.T) {
		v := []float32{0, 0, 0}
		assert.False(t, NormalizeL2InPlace(v))
	})
}

func TestProvider(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}

	t.Run("Cosine", func(t *testing.T) {
		fn, err := Provider(Cosine)
		require.NoError(t, err)
		assert.InDelta(t, 1-CosineSimilarity(a, b), fn(a, b), 1e-6)
		assert.InDelta(t, 0, fn(a, a), 1e-6)
	})

	t.Run("Euclidean", func(t *testing.T) {
		fn, err := Provider(Euclidean)
		require.NoError(t, err)
		assert.InDelta(t, math.Sqrt(27), float64(fn(a, b)), 1e-5)
	})

	t.Run("Dot", func(t *testing.T) {
		fn, err := Provider(Dot)
		require.NoError(t, err)
		assert.InDelta(t, -32, fn(a, b), 1e-5)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := Provider(Metric(99))
		assert.Error(t, err)
	})

	t.Run("Smaller is closer for every metric", func(t *testing.T) {
		near := []float32{1, 2, 3.1}
		far := []float32{-5, 9, -4}

		for _, m := range []Metric{Cosine, Euclidean, Dot} {
			fn, err := Provider(m)
			require.NoError(t, err)
			assert.Less(t, fn(a, near), fn(a, far), "metric %v", m)
		}
	})
}

func TestParseMetric(t *testing.T) {
	tests := []struct {
		in       string
		expected Metric
		wantErr  bool
	}{
		{"cosine", Cosine, false},
		{"euclidean", Euclidean, false},
		{"l2", Euclidean, false},
		{"dot", Dot, false},
		{"inner", Dot, false},
		{"manhattan", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMetric(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMetricString(t *testing.T) {
	assert.Equal(t, "cosine", Cosine.String())
	assert.Equal(t, "euclidean", Euclidean.String())
	assert.Equal(t, "dot", Dot.String())
	assert.True(t, Dot.Valid())
	assert.False(t, Metric(7).Valid())
}
