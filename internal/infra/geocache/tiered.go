package geocache

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/fx"

	"stroll/config"
	"stroll/internal/domain/entity"
)

// Tiered composes the cache tiers: memory first, Redis on miss with
// promotion back into memory. Writes go through both tiers. One Tiered
// instance is shared by every gateway in the process.
type Tiered struct {
	precision int
	memory    *Memory
	redis     *Redis // nil when the second tier is not configured
	logger    *slog.Logger
}

// NewTiered composes the tiers directly; tests use this constructor.
func NewTiered(memory *Memory, redis *Redis, precision int, logger *slog.Logger) *Tiered {
	if precision <= 0 {
		precision = DefaultKeyPrecision
	}

	return &Tiered{
		precision: precision,
		memory:    memory,
		redis:     redis,
		logger:    logger,
	}
}

// Params holds dependencies for the cache, injected by Fx.
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// New builds the process-wide tiered cache and hooks the expiry sweeper and
// Redis shutdown into the fx lifecycle.
func New(params Params) *Tiered {
	cacheCfg := params.Config.Cache

	memory := NewMemory(cacheCfg.Capacity, cacheCfg.TTL)

	var redisTier *Redis
	if cacheCfg.Redis != nil && cacheCfg.Redis.Addr != "" {
		redisTier = NewRedis(cacheCfg.Redis, cacheCfg.TTL)
	}

	tiered := NewTiered(memory, redisTier, cacheCfg.KeyPrecision, params.Logger)

	sweepCtx, cancel := context.WithCancel(context.Background())
	params.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go tiered.sweepLoop(sweepCtx, cacheCfg.SweepInterval)

			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			if redisTier != nil {
				return redisTier.Close()
			}

			return nil
		},
	})

	return tiered
}

// Get returns the cached segment for the rounded coordinate pair, or nil.
func (t *Tiered) Get(ctx context.Context, from, to entity.Coordinate) *entity.RouteSegment {
	key := Key(from, to, t.precision)

	if segment := t.memory.Get(key); segment != nil {
		return segment
	}

	if t.redis == nil {
		return nil
	}

	segment, err := t.redis.Get(ctx, key)
	if err != nil {
		// The second tier is an optimization; a broken Redis must not fail
		// the planning call.
		t.logger.Warn("redis cache read failed", slog.Any("error", err))

		return nil
	}
	if segment == nil {
		return nil
	}

	t.memory.Put(key, *segment)

	return segment
}

// Put writes the segment through every configured tier. Last write wins on a
// racing pair of puts for the same key.
func (t *Tiered) Put(ctx context.Context, from, to entity.Coordinate, segment entity.RouteSegment) {
	key := Key(from, to, t.precision)

	t.memory.Put(key, segment)

	if t.redis == nil {
		return
	}
	if err := t.redis.Put(ctx, key, segment); err != nil {
		t.logger.Warn("redis cache write failed", slog.Any("error", err))
	}
}

func (t *Tiered) sweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := t.memory.Sweep(); removed > 0 {
				t.logger.Debug("swept expired route segments", slog.Int("removed", removed))
			}
		}
	}
}
