package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newThrottle(t *testing.T, max int, window time.Duration) (*RedisLoginThrottle, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisLoginThrottle(rdb, max, window), mr
}

func TestRedisLoginThrottle_LocksAfterMaxFailures(t *testing.T) {
	throttle, mr := newThrottle(t, 3, 10*time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := throttle.Allowed(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, allowed, "attempt %d", i)
		require.NoError(t, throttle.RecordFailure(ctx, "alice"))
	}

	allowed, retryAfter, err := throttle.Allowed(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 10*time.Minute, retryAfter)
	assert.Equal(t, 10*time.Minute, mr.TTL("login_failures:alice"))

	// Other usernames are unaffected.
	allowed, _, err = throttle.Allowed(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisLoginThrottle_WindowStartsAtFirstFailure(t *testing.T) {
	throttle, mr := newThrottle(t, 2, time.Minute)
	ctx := context.Background()

	require.NoError(t, throttle.RecordFailure(ctx, "alice"))
	mr.FastForward(40 * time.Second)
	require.NoError(t, throttle.RecordFailure(ctx, "alice"))

	allowed, retryAfter, err := throttle.Allowed(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 20*time.Second, retryAfter)

	mr.FastForward(21 * time.Second)
	allowed, _, err = throttle.Allowed(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisLoginThrottle_Reset(t *testing.T) {
	throttle, mr := newThrottle(t, 1, time.Minute)
	ctx := context.Background()

	require.NoError(t, throttle.RecordFailure(ctx, "alice"))
	allowed, _, err := throttle.Allowed(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, throttle.Reset(ctx, "alice"))
	assert.False(t, mr.Exists("login_failures:alice"))

	allowed, _, err = throttle.Allowed(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisLoginThrottle_DisabledWhenMaxIsZero(t *testing.T) {
	throttle, mr := newThrottle(t, 0, time.Minute)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, throttle.RecordFailure(ctx, "alice"))
	}
	allowed, _, err := throttle.Allowed(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Empty(t, mr.Keys())
}

func TestRedisLoginThrottle_UnreachableRedis(t *testing.T) {
	throttle, mr := newThrottle(t, 1, time.Minute)
	mr.Close()

	allowed, _, err := throttle.Allowed(context.Background(), "alice")
	assert.Error(t, err)
	assert.True(t, allowed)
}
