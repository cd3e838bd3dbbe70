package geocache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stroll/internal/domain/entity"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tieredForTest(t *testing.T) (*Tiered, *Memory, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	memory := NewMemory(16, time.Hour)
	redisTier := NewRedisWithClient(client, time.Hour, "")

	return NewTiered(memory, redisTier, DefaultKeyPrecision, discardLogger()), memory, mr
}

func TestTiered_WriteThroughAndRead(t *testing.T) {
	tiered, memory, _ := tieredForTest(t)
	ctx := context.Background()

	from := entity.Coordinate{Lat: 48.8566, Lng: 2.3522}
	to := entity.Coordinate{Lat: 48.8606, Lng: 2.3376}

	tiered.Put(ctx, from, to, segmentFixture(640))

	got := tiered.Get(ctx, from, to)
	require.NotNil(t, got)
	assert.InDelta(t, 640, got.DistanceMeters, 0.001)

	// Both tiers hold the entry after a write-through put.
	assert.Equal(t, 1, memory.Len())
}

func TestTiered_PromotesRedisHitsToMemory(t *testing.T) {
	tiered, memory, _ := tieredForTest(t)
	ctx := context.Background()

	from := entity.Coordinate{Lat: 48.8566, Lng: 2.3522}
	to := entity.Coordinate{Lat: 48.8606, Lng: 2.3376}

	// Seed only the second tier, simulating a restarted process.
	key := Key(from, to, DefaultKeyPrecision)
	require.NoError(t, tiered.redis.Put(ctx, key, segmentFixture(640)))
	require.Equal(t, 0, memory.Len())

	got := tiered.Get(ctx, from, to)
	require.NotNil(t, got)
	assert.Equal(t, 1, memory.Len())
}

func TestTiered_NearbyCoordinatesShareEntry(t *testing.T) {
	tiered, _, _ := tieredForTest(t)
	ctx := context.Background()

	from := entity.Coordinate{Lat: 48.85661, Lng: 2.35221}
	to := entity.Coordinate{Lat: 48.86060, Lng: 2.33760}
	nearFrom := entity.Coordinate{Lat: 48.85663, Lng: 2.35219}

	tiered.Put(ctx, from, to, segmentFixture(640))

	assert.NotNil(t, tiered.Get(ctx, nearFrom, to))
	// Reversed direction must miss.
	assert.Nil(t, tiered.Get(ctx, to, from))
}

func TestTiered_WorksWithoutRedis(t *testing.T) {
	memory := NewMemory(16, time.Hour)
	tiered := NewTiered(memory, nil, DefaultKeyPrecision, discardLogger())
	ctx := context.Background()

	from := entity.Coordinate{Lat: 48.8566, Lng: 2.3522}
	to := entity.Coordinate{Lat: 48.8606, Lng: 2.3376}

	tiered.Put(ctx, from, to, segmentFixture(640))
	assert.NotNil(t, tiered.Get(ctx, from, to))
}

func TestTiered_BrokenRedisDoesNotFailReads(t *testing.T) {
	tiered, memory, mr := tieredForTest(t)
	ctx := context.Background()

	from := entity.Coordinate{Lat: 48.8566, Lng: 2.3522}
	to := entity.Coordinate{Lat: 48.8606, Lng: 2.3376}

	mr.Close()

	tiered.Put(ctx, from, to, segmentFixture(640))

	// The memory tier still serves the segment.
	assert.Equal(t, 1, memory.Len())
	assert.NotNil(t, tiered.Get(ctx, from, to))
}
