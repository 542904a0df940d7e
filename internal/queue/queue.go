// Package queue provides value-based binary heaps for graph traversal.
// Items are stored inline (no pointer indirection) so beam searches run
// without per-step allocations.
package queue

// Item is one heap entry: a node id and its distance to the query.
type Item struct {
	ID       uint32
	Distance float32
}

// Heap is a binary min- or max-heap of Items ordered by Distance.
// Equal distances order by ascending ID so traversal stays deterministic.
type Heap struct {
	max   bool
	items []Item
}

// NewMin returns a min-heap with the given initial capacity.
func NewMin(capacity int) *Heap {
	return &Heap{items: make([]Item, 0, capacity)}
}

// NewMax returns a max-heap with the given initial capacity.
func NewMax(capacity int) *Heap {
	return &Heap{max: true, items: make([]Item, 0, capacity)}
}

// Len returns the number of items in the heap.
func (h *Heap) Len() int { return len(h.items) }

// Push inserts an item while maintaining the heap invariant.
func (h *Heap) Push(item Item) {
	h.items = append(h.items, item)
	h.siftUp(len(h.items) - 1)
}

// Pop removes and returns the top item.
func (h *Heap) Pop() (Item, bool) {
	n := len(h.items)
	if n == 0 {
		return Item{}, false
	}

	root := h.items[0]
	last := h.items[n-1]
	h.items = h.items[:n-1]
	if n-1 > 0 {
		h.items[0] = last
		h.siftDown(0)
	}

	return root, true
}

// Peek returns the top item without removing it.
func (h *Heap) Peek() (Item, bool) {
	if len(h.items) == 0 {
		return Item{}, false
	}
	return h.items[0], true
}

// Min returns the item with the smallest distance. For min-heaps this is the
// top; for max-heaps it scans the backing slice.
func (h *Heap) Min() (Item, bool) {
	if len(h.items) == 0 {
		return Item{}, false
	}
	if !h.max {
		return h.items[0], true
	}

	m := h.items[0]
	for _, it := range h.items[1:] {
		if less(it, m) {
			m = it
		}
	}

	return m, true
}

// Items exposes the backing slice in heap order. Callers must not mutate it.
func (h *Heap) Items() []Item { return h.items }

// Reset clears the heap for reuse, keeping the backing capacity.
func (h *Heap) Reset() { h.items = h.items[:0] }

// less orders by ascending distance, then ascending id.
func less(a, b Item) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.ID < b.ID
}

func (h *Heap) before(i, j int) bool {
	if h.max {
		return less(h.items[j], h.items[i])
	}
	return less(h.items[i], h.items[j])
}

func (h *Heap) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !h.before(i, p) {
			return
		}
		h.items[i], h.items[p] = h.items[p], h.items[i]
		i = p
	}
}

func (h *Heap) siftDown(i int) {
	n := len(h.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && h.before(r, l) {
			best = r
		}
		if !h.before(best, i) {
			return
		}
		h.items[i], h.items[best] = h.items[best], h.items[i]
		i = best
	}
}
