package limiter

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_BoundsConcurrency(t *testing.T) {
	const size = 3
	gate := NewGate(size)
	ctx := context.Background()

	var inFlight, peak int64
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			require.NoError(t, gate.Acquire(ctx))
			defer gate.Release()

			current := atomic.AddInt64(&inFlight, 1)
			for {
				observed := atomic.LoadInt64(&peak)
				if current <= observed || atomic.CompareAndSwapInt64(&peak, observed, current) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt64(&inFlight, -1)
		}()
	}

	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(size))
	assert.Greater(t, atomic.LoadInt64(&peak), int64(0))
}

func TestGate_CanceledWaiterDoesNotConsumeSlot(t *testing.T) {
	gate := NewGate(1)
	ctx := context.Background()

	require.NoError(t, gate.Acquire(ctx))

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.Error(t, gate.Acquire(waitCtx))

	gate.Release()

	// The slot freed by Release is still usable after the canceled wait.
	acquireCtx, acquireCancel := context.WithTimeout(ctx, time.Second)
	defer acquireCancel()
	require.NoError(t, gate.Acquire(acquireCtx))
	gate.Release()
}

func TestGate_MinimumSize(t *testing.T) {
	assert.Equal(t, 1, NewGate(0).Size())
	assert.Equal(t, 4, NewGate(4).Size())
}
