package limiter

import (
	"context"

	"golang.org/x/sync/semaphore"

	"stroll/internal/errors"
)

// Gate bounds the number of in-flight directions requests. Waiters are woken
// in FIFO order; a canceled waiter never consumes a slot.
type Gate struct {
	size int64
	sem  *semaphore.Weighted
}

// NewGate creates an admission gate with the given capacity.
func NewGate(size int) *Gate {
	if size < 1 {
		size = 1
	}

	return &Gate{
		size: int64(size),
		sem:  semaphore.NewWeighted(int64(size)),
	}
}

// Acquire claims one slot, blocking until one is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return errors.Wrap(err, "gate acquire")
	}

	return nil
}

// Release returns a previously acquired slot.
func (g *Gate) Release() {
	g.sem.Release(1)
}

// Size returns the gate capacity.
func (g *Gate) Size() int {
	return int(g.size)
}
