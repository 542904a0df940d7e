package hnsw

import (
	"sync"

	"github.com/bits-and-blooms/bitset"

	"github.com/ares-labs/aresvec/internal/queue"
)

// searchContext carries the scratch state of one layer traversal: the
// visited set, the expansion frontier, and the running result set. Contexts
// are pooled so steady-state searches do not allocate.
type searchContext struct {
	visited    *bitset.BitSet
	candidates *queue.Heap
	results    *queue.Heap
}

var searchContextPool = sync.Pool{
	New: func() any {
		return &searchContext{
			visited:    bitset.New(1024),
			candidates: queue.NewMin(64),
			results:    queue.NewMax(64),
		}
	},
}

// acquireSearchContext returns a cleared context sized for n nodes.
func acquireSearchContext(n int) *searchContext {
	sc := searchContextPool.Get().(*searchContext)
	sc.reset(n)

	return sc
}

func releaseSearchContext(sc *searchContext) {
	searchContextPool.Put(sc)
}

// reset clears the context for a graph of n nodes, reallocating the visited
// set only when it is too small.
func (sc *searchContext) reset(n int) {
	if uint(n) > sc.visited.Len() {
		sc.visited = bitset.New(uint(n))
	} else {
		sc.visited.ClearAll()
	}

	sc.candidates.Reset()
	sc.results.Reset()
}

// markVisited reports whether id was seen before, marking it either way.
func (sc *searchContext) markVisited(id uint32) bool {
	if sc.visited.Test(uint(id)) {
		return true
	}
	sc.visited.Set(uint(id))

	return false
}
