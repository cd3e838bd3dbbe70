package directions

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"stroll/config"
	"stroll/internal/domain/entity"
	domainerrors "stroll/internal/domain/errors"
	"stroll/internal/domain/service"
	"stroll/internal/errors"
	"stroll/internal/infra/limiter"
)

// SegmentCache is the slice of the geocache the gateway consumes.
type SegmentCache interface {
	Get(ctx context.Context, from, to entity.Coordinate) *entity.RouteSegment
	Put(ctx context.Context, from, to entity.Coordinate, segment entity.RouteSegment)
}

// Gateway prices ordered coordinate lists through the external directions
// provider. It consults the segment cache first, paces and bounds outbound
// requests through the shared pacer and gate, retries failed legs once, and
// degrades to a strictly sequential pass before giving up.
type Gateway struct {
	provider       service.DirectionsProvider
	cache          SegmentCache
	pacer          *limiter.Pacer
	gate           *limiter.Gate
	retryBackoff   time.Duration
	fallbackFactor int
	logger         *slog.Logger
}

// NewGateway wires the gateway with its shared quota primitives. The pacer
// and gate are process-wide: every gateway in the process shares one
// provider quota.
func NewGateway(
	cfg *config.DirectionsConfig,
	provider service.DirectionsProvider,
	cache SegmentCache,
	pacer *limiter.Pacer,
	gate *limiter.Gate,
	logger *slog.Logger,
) *Gateway {
	return &Gateway{
		provider:       provider,
		cache:          cache,
		pacer:          pacer,
		gate:           gate,
		retryBackoff:   cfg.RetryBackoff,
		fallbackFactor: cfg.FallbackSpacingFactor,
		logger:         logger,
	}
}

// Segments returns the N-1 walking segments for N ordered coordinates.
// Results are positioned by request index, never by completion order.
func (g *Gateway) Segments(ctx context.Context, coords []entity.Coordinate) ([]entity.RouteSegment, error) {
	if len(coords) < 2 {
		return nil, errors.Errorf("need at least 2 coordinates, got %d", len(coords))
	}

	segments := make([]entity.RouteSegment, len(coords)-1)

	var missing []int
	for i := 0; i < len(coords)-1; i++ {
		if cached := g.cache.Get(ctx, coords[i], coords[i+1]); cached != nil {
			segments[i] = *cached

			continue
		}
		missing = append(missing, i)
	}

	if len(missing) == 0 {
		return segments, nil
	}

	failed, err := g.fetchConcurrent(ctx, coords, segments, missing)
	if err != nil {
		return nil, err
	}

	if len(failed) > 0 {
		g.logger.Warn("degrading to sequential directions fetch",
			slog.Int("failed", len(failed)),
			slog.Int("total", len(segments)),
		)
		if err := g.fetchSequential(ctx, coords, segments, failed); err != nil {
			return nil, err
		}
	}

	return segments, nil
}

// fetchConcurrent prices the missing legs in parallel up to the gate bound.
// Leg failures after one retry are collected, not fatal; only context
// cancellation aborts the whole set.
func (g *Gateway) fetchConcurrent(ctx context.Context, coords []entity.Coordinate, segments []entity.RouteSegment, missing []int) ([]int, error) {
	var (
		mu     sync.Mutex
		failed []int
	)

	group, groupCtx := errgroup.WithContext(ctx)
	for _, idx := range missing {
		group.Go(func() error {
			segment, err := g.fetchLeg(groupCtx, coords[idx], coords[idx+1])
			if err != nil {
				if groupCtx.Err() != nil {
					return groupCtx.Err()
				}

				mu.Lock()
				failed = append(failed, idx)
				mu.Unlock()

				return nil
			}

			segments[idx] = segment

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, errors.Wrap(err, "directions fetch canceled")
	}

	// Keep the fallback pass in input order.
	sort.Ints(failed)

	return failed, nil
}

// fetchLeg prices one leg: admission gate, pace slot, provider call, cache
// write, one paced retry on failure.
func (g *Gateway) fetchLeg(ctx context.Context, from, to entity.Coordinate) (entity.RouteSegment, error) {
	if err := g.gate.Acquire(ctx); err != nil {
		return entity.RouteSegment{}, err
	}
	defer g.gate.Release()

	segment, err := g.pacedWalk(ctx, from, to, 1)
	if err == nil {
		g.cache.Put(ctx, from, to, segment)

		return segment, nil
	}
	if ctx.Err() != nil {
		return entity.RouteSegment{}, err
	}

	if waitErr := sleepCtx(ctx, g.retryBackoff); waitErr != nil {
		return entity.RouteSegment{}, waitErr
	}

	segment, err = g.pacedWalk(ctx, from, to, 1)
	if err != nil {
		return entity.RouteSegment{}, err
	}
	g.cache.Put(ctx, from, to, segment)

	return segment, nil
}

// fetchSequential re-issues only the failed legs one at a time with widened
// spacing. Provider throttling is the dominant failure mode here and
// sequential pacing is what resolves it.
func (g *Gateway) fetchSequential(ctx context.Context, coords []entity.Coordinate, segments []entity.RouteSegment, failed []int) error {
	for _, idx := range failed {
		segment, err := g.pacedWalk(ctx, coords[idx], coords[idx+1], g.fallbackFactor)
		if err != nil {
			if ctx.Err() != nil {
				return errors.Wrap(ctx.Err(), "sequential directions fetch canceled")
			}
			if service.IsThrottle(err) {
				g.logger.Warn("provider still throttling in sequential fallback", slog.Int("leg", idx))
			}

			return domainerrors.ErrDirectionsFailure.WithDetails(err.Error())
		}

		g.cache.Put(ctx, coords[idx], coords[idx+1], segment)
		segments[idx] = segment
	}

	return nil
}

func (g *Gateway) pacedWalk(ctx context.Context, from, to entity.Coordinate, spacingFactor int) (entity.RouteSegment, error) {
	if err := g.pacer.WaitN(ctx, spacingFactor); err != nil {
		return entity.RouteSegment{}, err
	}

	return g.provider.Walk(ctx, from, to)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	case <-timer.C:
		return nil
	}
}
