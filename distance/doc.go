// Package distance provides the vector distance metrics used by the engine.
//
// # Supported Metrics
//
//   - Cosine: 1 - cosine similarity
//   - Euclidean: L2 norm of the difference
//   - Dot: negated dot product
//
// All three are exposed through Provider as "smaller is closer" distance
// functions so that index and search code never branch on the metric.
//
// # Usage
//
//	fn, err := distance.Provider(distance.Cosine)
//	d := fn(a, b)
package distance
