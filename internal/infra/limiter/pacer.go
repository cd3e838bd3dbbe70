// Package limiter provides the shared request pacing and admission
// primitives that protect the external directions provider's quota.
package limiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"stroll/internal/errors"
)

// Pacer enforces a minimum spacing between the starts of outbound requests.
// Spacing is measured start-to-start, independent of completion time, so a
// slow response does not earn the next request an earlier slot.
type Pacer struct {
	interval time.Duration
	limiter  *rate.Limiter
}

// NewPacer creates a pacer with the given minimum inter-start interval.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		interval = time.Millisecond
	}

	return &Pacer{
		interval: interval,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Wait blocks until the next start slot is available or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "pacer wait")
	}

	return nil
}

// WaitN blocks for n consecutive start slots, widening the effective spacing
// by a factor of n. The gateway uses this during its sequential fallback.
func (p *Pacer) WaitN(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "pacer wait")
		}
	}

	return nil
}

// Interval returns the configured inter-start spacing.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}
