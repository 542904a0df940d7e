// Package embedding turns text into vectors. A Service fronts a Model with
// an LRU cache and a bounded worker pool so inference never runs on the
// caller's goroutine, and a Registry resolves model names to loaded models
// with per-name load deduplication.
package embedding
