package distance

import (
	"fmt"
	"math"
)

// Metric identifies the distance metric of a collection. The numeric values
// are part of the persisted file format and must not be reordered.
type Metric uint8

const (
	// Cosine measures angular distance: 1 - cosine similarity.
	Cosine Metric = iota

	// Euclidean measures the L2 norm of the difference.
	Euclidean

	// Dot measures the negated dot product, so larger inner products sort
	// first under the uniform "smaller is closer" convention.
	Dot
)

func (m Metric) String() string {
	switch m {
	case Cosine:
		return "cosine"
	case Euclidean:
		return "euclidean"
	case Dot:
		return "dot"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// Valid reports whether m is a known metric.
func (m Metric) Valid() bool {
	return m <= Dot
}

// ParseMetric converts a config string into a Metric.
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "cosine":
		return Cosine, nil
	case "euclidean", "l2":
		return Euclidean, nil
	case "dot", "inner":
		return Dot, nil
	default:
		return 0, fmt.Errorf("unsupported metric %q", s)
	}
}

// DotProduct calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func DotProduct(a, b []float32) float32 {
	var ret float32
	for i := range a {
		ret += a[i] * b[i]
	}

	return ret
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two
// vectors. Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	var ret float32
	for i := range a {
		d := a[i] - b[i]
		ret += d * d
	}

	return ret
}

// L2 calculates the L2 (Euclidean) distance between two vectors.
func L2(a, b []float32) float32 {
	return float32(math.Sqrt(float64(SquaredL2(a, b))))
}

// Magnitude calculates the L2 norm of v.
func Magnitude(v []float32) float32 {
	return float32(math.Sqrt(float64(DotProduct(v, v))))
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns 0 when either vector has zero norm.
func CosineSimilarity(a, b []float32) float32 {
	dot := DotProduct(a, b)

	magA := Magnitude(a)
	magB := Magnitude(b)

	if magA == 0 || magB == 0 {
		return 0
	}

	return dot / (magA * magB)
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm.
func NormalizeL2InPlace(v []float32) bool {
	norm := Magnitude(v)
	if norm == 0 {
		return false
	}

	inv := 1 / norm
	for i := range v {
		v[i] *= inv
	}

	return true
}

// Func computes a "smaller is closer" distance between two equal-length
// vectors.
type Func func(a, b []float32) float32

// CosineDistance is 1 - cosine similarity.
func CosineDistance(a, b []float32) float32 {
	return 1 - CosineSimilarity(a, b)
}

// NegatedDot is the negated dot product.
func NegatedDot(a, b []float32) float32 {
	return -DotProduct(a, b)
}

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case Cosine:
		return CosineDistance, nil
	case Euclidean:
		return L2, nil
	case Dot:
		return NegatedDot, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}
