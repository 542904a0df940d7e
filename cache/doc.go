// Package cache provides the embedding cache: a byte-budgeted LRU keyed by
// (model, text) with optional per-entry TTL.
//
// The LRU favors read concurrency over exact recency: lookups take a shared
// lock and bump an atomic access stamp, so concurrent readers never serialize
// on a recency list. Evictions scan for the smallest stamp under the write
// lock, which only insertions pay for.
package cache
