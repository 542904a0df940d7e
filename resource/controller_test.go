package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBudget(t *testing.T) {
	c := NewController(Config{MemoryBudgetBytes: 100})

	require.NoError(t, c.ReserveMemory(context.Background(), 50))
	assert.Equal(t, int64(50), c.MemoryInUse())

	require.NoError(t, c.ReserveMemory(context.Background(), 40))
	assert.Equal(t, int64(90), c.MemoryInUse())

	assert.False(t, c.TryReserveMemory(20))
	assert.Equal(t, int64(90), c.MemoryInUse())

	// Blocked reservation gives up when the context does.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := c.ReserveMemory(ctx, 20)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryInUse())

	require.NoError(t, c.ReserveMemory(context.Background(), 20))
	assert.Equal(t, int64(60), c.MemoryInUse())
}

func TestMemoryTrackingWithoutBudget(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.ReserveMemory(context.Background(), 1<<40))
	assert.Equal(t, int64(1<<40), c.MemoryInUse())

	c.ReleaseMemory(1 << 39)
	assert.Equal(t, int64(1<<39), c.MemoryInUse())
}

func TestJobSlots(t *testing.T) {
	c := NewController(Config{MaxBackgroundJobs: 2})

	require.NoError(t, c.AcquireJob(context.Background()))
	require.NoError(t, c.AcquireJob(context.Background()))

	assert.False(t, c.TryAcquireJob())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireJob(ctx), context.DeadlineExceeded)

	c.ReleaseJob()
	assert.True(t, c.TryAcquireJob())
}

func TestJobSlotsDefaultToOne(t *testing.T) {
	c := NewController(Config{})

	assert.True(t, c.TryAcquireJob())
	assert.False(t, c.TryAcquireJob())

	c.ReleaseJob()
	assert.True(t, c.TryAcquireJob())
}

func TestNilControllerDisablesLimits(t *testing.T) {
	var c *Controller

	require.NoError(t, c.ReserveMemory(context.Background(), 1<<30))
	assert.True(t, c.TryReserveMemory(1<<30))
	c.ReleaseMemory(1 << 30)
	assert.Equal(t, int64(0), c.MemoryInUse())

	require.NoError(t, c.AcquireJob(context.Background()))
	assert.True(t, c.TryAcquireJob())
	c.ReleaseJob()

	require.NoError(t, c.WaitIO(context.Background(), 1<<30))
}

func TestWaitIO(t *testing.T) {
	t.Run("within burst is immediate", func(t *testing.T) {
		c := NewController(Config{IOBytesPerSec: 10_000})

		start := time.Now()
		require.NoError(t, c.WaitIO(context.Background(), 10_000))
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("requests beyond burst are chunked", func(t *testing.T) {
		c := NewController(Config{IOBytesPerSec: 1 << 30})

		// A raw WaitN would reject n > burst outright.
		start := time.Now()
		require.NoError(t, c.WaitIO(context.Background(), (1<<30)+1))
		assert.Less(t, time.Since(start), 100*time.Millisecond)
	})

	t.Run("drained budget paces the next request", func(t *testing.T) {
		c := NewController(Config{IOBytesPerSec: 10_000})
		require.NoError(t, c.WaitIO(context.Background(), 10_000))

		start := time.Now()
		require.NoError(t, c.WaitIO(context.Background(), 1_000))
		assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	})

	t.Run("canceled context aborts the wait", func(t *testing.T) {
		c := NewController(Config{IOBytesPerSec: 1_000})
		require.NoError(t, c.WaitIO(context.Background(), 1_000))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, c.WaitIO(ctx, 500))
	})

	t.Run("unthrottled controller never waits", func(t *testing.T) {
		c := NewController(Config{})

		start := time.Now()
		require.NoError(t, c.WaitIO(context.Background(), 1<<40))
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	})
}
