package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// entry is one cached embedding. The full key strings are kept so a hash
// collision can never hand back the wrong vector.
type entry struct {
	model     string
	text      string
	embedding []float32
	expiresAt int64 // unix nanos, 0 = never
	cost      int64

	lastAccess atomic.Int64
}

func (e *entry) expired(now int64) bool {
	return e.expiresAt != 0 && now >= e.expiresAt
}

// LRU is a byte-budgeted embedding cache. Lookups run under a shared lock
// and stamp the entry with an atomic access sequence; insertions evict the
// smallest stamp until the budget holds. Entries that alone exceed the
// budget are silently skipped.
type LRU struct {
	mu    sync.RWMutex
	items map[uint64]*entry
	size  int64

	budget int64

	// clock is a monotonic access sequence. It orders recency exactly even
	// when the wall clock is too coarse to separate two operations.
	clock atomic.Int64

	hits   atomic.Int64
	misses atomic.Int64
}

var _ Cache = (*LRU)(nil)

// NewLRU creates a cache bounded to budget bytes.
func NewLRU(budget int64) *LRU {
	return &LRU{
		items:  make(map[uint64]*entry),
		budget: budget,
	}
}

// Get returns the cached embedding for (model, text). Expired entries count
// as misses and are purged lazily.
func (c *LRU) Get(model, text string) ([]float32, bool) {
	k := key(model, text)
	now := time.Now().UnixNano()

	c.mu.RLock()
	ent, ok := c.items[k]
	if ok && ent.model == model && ent.text == text {
		if !ent.expired(now) {
			ent.lastAccess.Store(c.clock.Add(1))
			c.mu.RUnlock()
			c.hits.Add(1)

			return ent.embedding, true
		}
	} else {
		ent = nil
	}
	c.mu.RUnlock()

	c.misses.Add(1)

	if ent != nil {
		c.purgeExpired(k, ent)
	}

	return nil, false
}

// Set stores a copy of embedding under (model, text). A ttl of zero or less
// means no expiry.
func (c *LRU) Set(model, text string, embedding []float32, ttl time.Duration) {
	cost := EntryCost(model, text, len(embedding))
	if cost > c.budget {
		return
	}

	vec := make([]float32, len(embedding))
	copy(vec, embedding)

	now := time.Now()

	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixNano()
	}

	ent := &entry{
		model:     model,
		text:      text,
		embedding: vec,
		expiresAt: expiresAt,
		cost:      cost,
	}
	ent.lastAccess.Store(c.clock.Add(1))

	k := key(model, text)

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.items[k]; ok {
		c.size -= old.cost
	}
	c.items[k] = ent
	c.size += cost

	for c.size > c.budget {
		if !c.evictOldestLocked() {
			break
		}
	}
}

// Invalidate drops the entry for (model, text) if present.
func (c *LRU) Invalidate(model, text string) {
	k := key(model, text)

	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[k]; ok && ent.model == model && ent.text == text {
		c.removeLocked(k, ent)
	}
}

// Clear drops all entries. Counters keep their values.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[uint64]*entry)
	c.size = 0
}

// Len returns the number of live entries.
func (c *LRU) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// SizeBytes returns the approximate bytes held by live entries.
func (c *LRU) SizeBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.size
}

// Stats returns the hit and miss counters.
func (c *LRU) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// purgeExpired removes an entry observed expired during Get, rechecking
// under the write lock in case it was replaced meanwhile.
func (c *LRU) purgeExpired(k uint64, ent *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if curr, ok := c.items[k]; ok && curr == ent {
		c.removeLocked(k, ent)
	}
}

// evictOldestLocked removes the entry with the smallest access stamp. It
// reports whether anything was removed.
func (c *LRU) evictOldestLocked() bool {
	var (
		oldestKey uint64
		oldest    *entry
		oldestSeq int64
	)

	for k, ent := range c.items {
		if seq := ent.lastAccess.Load(); oldest == nil || seq < oldestSeq {
			oldestKey, oldest, oldestSeq = k, ent, seq
		}
	}

	if oldest == nil {
		return false
	}

	c.removeLocked(oldestKey, oldest)

	return true
}

func (c *LRU) removeLocked(k uint64, ent *entry) {
	delete(c.items, k)
	c.size -= ent.cost
}
