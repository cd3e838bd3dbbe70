package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacer_EnforcesStartSpacing(t *testing.T) {
	const interval = 20 * time.Millisecond
	pacer := NewPacer(interval)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 4; i++ {
		require.NoError(t, pacer.Wait(ctx))
	}
	elapsed := time.Since(start)

	// The first slot is immediate, the next three each wait one interval.
	assert.GreaterOrEqual(t, elapsed, 3*interval-interval/4)
}

func TestPacer_WaitNWidensSpacing(t *testing.T) {
	const interval = 10 * time.Millisecond
	pacer := NewPacer(interval)
	ctx := context.Background()

	require.NoError(t, pacer.Wait(ctx))

	start := time.Now()
	require.NoError(t, pacer.WaitN(ctx, 2))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 2*interval-interval/4)
}

func TestPacer_WaitHonorsContext(t *testing.T) {
	pacer := NewPacer(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	require.NoError(t, pacer.Wait(ctx))

	err := pacer.Wait(ctx)
	assert.Error(t, err)
}

func TestPacer_DefaultsBadInterval(t *testing.T) {
	pacer := NewPacer(0)
	assert.Equal(t, time.Millisecond, pacer.Interval())
}
