package guard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testIPHealth(t *testing.T) (*IPHealth, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewIPHealth(rdb, zap.NewNop()), mr
}

func TestIPHealthBouncesBlockPair(t *testing.T) {
	h, _ := testIPHealth(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, h.MarkBounce(ctx, "203.0.113.7", "example.com"))
	}
	assert.False(t, h.IsBlocked(ctx, "203.0.113.7", "example.com"))

	require.NoError(t, h.MarkBounce(ctx, "203.0.113.7", "example.com"))
	assert.True(t, h.IsBlocked(ctx, "203.0.113.7", "example.com"))
}

func TestIPHealthBlockIsPerPair(t *testing.T) {
	h, _ := testIPHealth(t)
	ctx := context.Background()

	require.NoError(t, h.Block(ctx, "203.0.113.7", "example.com", "blacklist"))

	assert.True(t, h.IsBlocked(ctx, "203.0.113.7", "example.com"))
	assert.False(t, h.IsBlocked(ctx, "203.0.113.7", "other.org"))
	assert.False(t, h.IsBlocked(ctx, "203.0.113.8", "example.com"))
}

func TestIPHealthBlacklistBlocksImmediately(t *testing.T) {
	h, _ := testIPHealth(t)
	ctx := context.Background()

	require.NoError(t, h.MarkBlacklist(ctx, "203.0.113.9", "example.com"))
	assert.True(t, h.IsBlocked(ctx, "203.0.113.9", "example.com"))
}

func TestIPHealthBlockExpires(t *testing.T) {
	h, mr := testIPHealth(t)
	ctx := context.Background()

	require.NoError(t, h.Block(ctx, "203.0.113.7", "example.com", "blacklist"))
	require.True(t, h.IsBlocked(ctx, "203.0.113.7", "example.com"))

	mr.FastForward(61 * time.Minute)
	assert.False(t, h.IsBlocked(ctx, "203.0.113.7", "example.com"))
}

func TestIPHealthScore(t *testing.T) {
	h, _ := testIPHealth(t)
	ctx := context.Background()

	snap := h.Health(ctx, "203.0.113.7", "example.com")
	assert.Equal(t, 100, snap.HealthScore)
	assert.False(t, snap.Blocked)

	for i := 0; i < 2; i++ {
		require.NoError(t, h.MarkBounce(ctx, "203.0.113.7", "example.com"))
	}
	snap = h.Health(ctx, "203.0.113.7", "example.com")
	assert.Equal(t, int64(2), snap.Bounces)
	assert.Equal(t, 70, snap.HealthScore)

	// Score floors at zero once bounces pass the useful range.
	for i := 0; i < 8; i++ {
		_ = h.MarkBounce(ctx, "203.0.113.7", "example.com")
	}
	snap = h.Health(ctx, "203.0.113.7", "example.com")
	assert.Equal(t, 0, snap.HealthScore)
	assert.True(t, snap.Blocked)
}

func TestIPHealthFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()
	h := NewIPHealth(rdb, zap.NewNop())

	assert.False(t, h.IsBlocked(context.Background(), "203.0.113.7", "example.com"))
}
