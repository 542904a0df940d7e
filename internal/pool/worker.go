// Package pool provides a fixed-size worker pool for offloading CPU-bound
// work, primarily embedding inference, off the caller's goroutine.
package pool

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Submit after the pool has been closed.
var ErrClosed = errors.New("worker pool closed")

// WorkerPool runs submitted closures on a fixed set of goroutines. Inference
// calls are synchronous and CPU-bound; routing them through the pool keeps
// request-handling goroutines unblocked and caps concurrent model work.
type WorkerPool struct {
	numWorkers int
	workCh     chan func()
	stopCh     chan struct{}
	wg         sync.WaitGroup
	closed     atomic.Bool
	submitMu   sync.RWMutex
}

// New creates a pool with numWorkers goroutines. Zero or negative sizes
// default to GOMAXPROCS, which suits CPU-bound inference.
func New(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	wp := &WorkerPool{
		numWorkers: numWorkers,
		workCh:     make(chan func(), numWorkers*2),
		stopCh:     make(chan struct{}),
	}

	wp.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go wp.worker()
	}

	return wp
}

// Size returns the number of workers.
func (wp *WorkerPool) Size() int { return wp.numWorkers }

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.stopCh:
			// Drain already-queued work before exiting.
			for {
				select {
				case task, ok := <-wp.workCh:
					if !ok {
						return
					}
					task()
				default:
					return
				}
			}
		case task, ok := <-wp.workCh:
			if !ok {
				return
			}
			task()
		}
	}
}

// Submit enqueues task and returns once it is queued, applying backpressure
// when all workers are busy and the queue is full. It returns ErrClosed after
// Close and the context error if ctx ends before the task is accepted.
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	wp.submitMu.RLock()
	defer wp.submitMu.RUnlock()

	if wp.closed.Load() {
		return ErrClosed
	}

	select {
	case wp.workCh <- task:
		return nil
	case <-wp.stopCh:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the pool after draining queued work. It is idempotent and
// blocks until all workers have exited.
func (wp *WorkerPool) Close() {
	if !wp.closed.CompareAndSwap(false, true) {
		return
	}

	wp.submitMu.Lock()
	close(wp.stopCh)
	close(wp.workCh)
	wp.submitMu.Unlock()

	wp.wg.Wait()
}
