// Package resource bounds the memory footprint, background concurrency,
// and IO throughput of maintenance work such as backups and restores.
// All methods are safe on a nil *Controller, which disables every limit.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config declares the limits a Controller enforces. Zero values disable
// the corresponding limit.
type Config struct {
	// MemoryBudgetBytes caps the bytes reserved for materializing
	// snapshots during restores. 0 tracks usage without enforcing a cap.
	MemoryBudgetBytes int64

	// MaxBackgroundJobs caps concurrent background jobs such as backups
	// and restores. 0 defaults to 1.
	MaxBackgroundJobs int64

	// IOBytesPerSec caps the throughput of backup and restore streams.
	// 0 leaves them unthrottled.
	IOBytesPerSec int64
}

// Controller enforces the limits declared in Config.
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted // nil when no cap is configured
	memUsed atomic.Int64

	jobSem *semaphore.Weighted

	ioLimiter *rate.Limiter
}

// NewController builds a Controller for cfg.
func NewController(cfg Config) *Controller {
	if cfg.MaxBackgroundJobs <= 0 {
		cfg.MaxBackgroundJobs = 1
	}

	c := &Controller{
		cfg:    cfg,
		jobSem: semaphore.NewWeighted(cfg.MaxBackgroundJobs),
	}

	if cfg.MemoryBudgetBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryBudgetBytes)
	}

	if cfg.IOBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOBytesPerSec), int(cfg.IOBytesPerSec))
	}

	return c
}

// ReserveMemory reserves bytes against the memory budget, blocking until
// the budget allows it or ctx is done.
func (c *Controller) ReserveMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if err := c.memSem.Acquire(ctx, bytes); err != nil {
			return err
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// TryReserveMemory reserves bytes without blocking. It reports false when
// the reservation would exceed the budget.
func (c *Controller) TryReserveMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}

	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return false
	}

	c.memUsed.Add(bytes)
	return true
}

// ReleaseMemory returns a reservation to the budget. Callers release
// exactly what they reserved.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryInUse returns the bytes currently reserved.
func (c *Controller) MemoryInUse() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AcquireJob claims a background job slot, blocking until one frees up or
// ctx is done.
func (c *Controller) AcquireJob(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.jobSem.Acquire(ctx, 1)
}

// TryAcquireJob claims a background job slot without blocking.
func (c *Controller) TryAcquireJob() bool {
	if c == nil {
		return true
	}
	return c.jobSem.TryAcquire(1)
}

// ReleaseJob returns a background job slot.
func (c *Controller) ReleaseJob() {
	if c == nil {
		return
	}
	c.jobSem.Release(1)
}

// WaitIO blocks until the IO limiter grants n bytes of budget. Requests
// larger than the burst are granted in burst-sized installments.
func (c *Controller) WaitIO(ctx context.Context, n int) error {
	if c == nil || c.ioLimiter == nil || n <= 0 {
		return nil
	}

	burst := c.ioLimiter.Burst()
	for n > 0 {
		chunk := n
		if chunk > burst {
			chunk = burst
		}
		if err := c.ioLimiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}

	return nil
}
