package geocache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/paulmach/orb"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisTierForTest(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisWithClient(client, ttl, ""), mr
}

func TestRedis_PutGetRoundtrip(t *testing.T) {
	tier, _ := redisTierForTest(t, time.Hour)
	ctx := context.Background()

	segment := segmentFixture(742)
	segment.Path = orb.LineString{{2.3522, 48.8566}, {2.3376, 48.8606}}

	require.NoError(t, tier.Put(ctx, "k1", segment))

	got, err := tier.Get(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 742, got.DistanceMeters, 0.001)
	assert.Equal(t, segment.Duration, got.Duration)
	assert.Equal(t, segment.Path, got.Path)
	assert.InDelta(t, segment.From.Lat, got.From.Lat, 1e-9)
}

func TestRedis_MissIsNilNotError(t *testing.T) {
	tier, _ := redisTierForTest(t, time.Hour)

	got, err := tier.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedis_EntriesCarryTTL(t *testing.T) {
	tier, mr := redisTierForTest(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, tier.Put(ctx, "k1", segmentFixture(100)))

	mr.FastForward(2 * time.Hour)

	got, err := tier.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedis_KeyPrefixDefault(t *testing.T) {
	tier, mr := redisTierForTest(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, tier.Put(ctx, "k1", segmentFixture(100)))

	assert.True(t, mr.Exists(defaultRedisKeyPrefix+"k1"))
}
