package geocache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/paulmach/orb"
	"github.com/redis/go-redis/v9"

	"stroll/config"
	"stroll/internal/domain/entity"
	"stroll/internal/errors"
)

const defaultRedisKeyPrefix = "stroll:segment:"

// Redis is the optional second cache tier. It survives process restarts and
// is shared between instances, so a miss in memory is often a hit here.
type Redis struct {
	client    redis.UniversalClient
	ttl       time.Duration
	keyPrefix string
}

// redisPayload is the stored representation of a route segment.
type redisPayload struct {
	FromLat    float64        `json:"from_lat"`
	FromLng    float64        `json:"from_lng"`
	ToLat      float64        `json:"to_lat"`
	ToLng      float64        `json:"to_lng"`
	DistanceM  float64        `json:"distance_m"`
	DurationMS int64          `json:"duration_ms"`
	Path       orb.LineString `json:"path,omitempty"`
}

// NewRedis creates the Redis tier from configuration.
func NewRedis(cfg *config.RedisConfig, ttl time.Duration) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return NewRedisWithClient(client, ttl, cfg.KeyPrefix)
}

// NewRedisWithClient wraps an existing client; tests supply miniredis here.
func NewRedisWithClient(client redis.UniversalClient, ttl time.Duration, keyPrefix string) *Redis {
	if keyPrefix == "" {
		keyPrefix = defaultRedisKeyPrefix
	}

	return &Redis{
		client:    client,
		ttl:       ttl,
		keyPrefix: keyPrefix,
	}
}

// Get returns the cached segment for key, or nil on miss. Redis owns expiry
// through the TTL set on write.
func (r *Redis) Get(ctx context.Context, key string) (*entity.RouteSegment, error) {
	raw, err := r.client.Get(ctx, r.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get segment")
	}

	var payload redisPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.Wrap(err, "decode cached segment")
	}

	return &entity.RouteSegment{
		From:           entity.Coordinate{Lat: payload.FromLat, Lng: payload.FromLng},
		To:             entity.Coordinate{Lat: payload.ToLat, Lng: payload.ToLng},
		DistanceMeters: payload.DistanceM,
		Duration:       time.Duration(payload.DurationMS) * time.Millisecond,
		Path:           payload.Path,
	}, nil
}

// Put stores a segment under key with the tier TTL.
func (r *Redis) Put(ctx context.Context, key string, segment entity.RouteSegment) error {
	payload := redisPayload{
		FromLat:    segment.From.Lat,
		FromLng:    segment.From.Lng,
		ToLat:      segment.To.Lat,
		ToLng:      segment.To.Lng,
		DistanceM:  segment.DistanceMeters,
		DurationMS: segment.Duration.Milliseconds(),
		Path:       segment.Path,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encode segment")
	}

	if err := r.client.Set(ctx, r.keyPrefix+key, raw, r.ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set segment")
	}

	return nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return errors.WithStack(r.client.Close())
}
