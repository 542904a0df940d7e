package cache

import (
	"time"

	"github.com/cespare/xxhash/v2"
)

// Cache stores computed embeddings keyed by (model, text).
type Cache interface {
	// Get returns the cached embedding. The returned slice is owned by the
	// cache and must not be modified.
	Get(model, text string) ([]float32, bool)

	// Set stores an embedding. A ttl of zero or less means no expiry.
	Set(model, text string, embedding []float32, ttl time.Duration)

	// Invalidate drops a single entry.
	Invalidate(model, text string)

	// Clear drops all entries.
	Clear()

	// Len returns the number of live entries.
	Len() int

	// SizeBytes returns the approximate memory held by entries.
	SizeBytes() int64

	// Stats returns the hit and miss counters.
	Stats() (hits, misses int64)
}

// entryOverheadBytes approximates the per-entry bookkeeping cost (map slot,
// entry header, slice headers).
const entryOverheadBytes = 112

// EntryCost returns the budget charge for one cached embedding, so callers
// can size budgets in whole entries.
func EntryCost(model, text string, dim int) int64 {
	return int64(len(model)) + int64(len(text)) + 4*int64(dim) + entryOverheadBytes
}

// key collapses (model, text) into the map key. The zero byte separates the
// parts so ("ab","c") and ("a","bc") stay distinct.
func key(model, text string) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(model)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(text)

	return h.Sum64()
}

// NoOp is a Cache that stores nothing. Every lookup misses, so call sites
// behave identically with caching disabled.
type NoOp struct{}

var _ Cache = NoOp{}

func (NoOp) Get(model, text string) ([]float32, bool) { return nil, false }

func (NoOp) Set(model, text string, embedding []float32, ttl time.Duration) {}

func (NoOp) Invalidate(model, text string) {}

func (NoOp) Clear() {}

func (NoOp) Len() int { return 0 }

func (NoOp) SizeBytes() int64 { return 0 }

func (NoOp) Stats() (hits, misses int64) { return 0, 0 }
