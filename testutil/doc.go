// Package testutil provides deterministic random data generators and
// brute-force ground-truth helpers shared by tests and benchmarks.
package testutil
