package ratelimiter

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisLuaLimiter(t *testing.T, buckets map[string]BucketConfig) (*RedisLuaLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLuaLimiter(rdb, buckets), mr
}

func TestNewBucketConfigFromPerMinute(t *testing.T) {
	assert.Equal(t, BucketConfig{}, NewBucketConfigFromPerMinute(0))
	cfg := NewBucketConfigFromPerMinute(6)
	assert.Equal(t, int64(6), cfg.Capacity)
	assert.InDelta(t, 0.1, cfg.RefillRate, 1e-9)
}

func TestAllow_NilLimiter_FailOpen(t *testing.T) {
	var limiter *RedisLuaLimiter
	allowed, retryAfter, err := limiter.Allow(context.Background(), "questions:1.2.3.4", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, retryAfter)
	assert.Nil(t, NewRedisLuaLimiter(nil, nil))
}

func TestAllow_UnknownScope_FailOpen(t *testing.T) {
	limiter, _ := newTestRedisLuaLimiter(t, nil)
	allowed, _, err := limiter.Allow(context.Background(), "unknown:client", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAllow_ExhaustsAndRefills(t *testing.T) {
	limiter, mr := newTestRedisLuaLimiter(t, map[string]BucketConfig{"questions": {Capacity: 2, RefillRate: 1}})
	now := time.Unix(1_700_000_000, 0)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, _, err := limiter.Allow(ctx, "questions:10.0.0.1", 1)
		require.NoError(t, err)
		assert.True(t, allowed, "call %d", i)
	}
	allowed, retryAfter, err := limiter.Allow(ctx, "questions:10.0.0.1", 1)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, time.Second, retryAfter)

	// separate clients have separate buckets
	allowed, _, err = limiter.Allow(ctx, "questions:10.0.0.2", 1)
	require.NoError(t, err)
	assert.True(t, allowed)

	now = now.Add(1500 * time.Millisecond)
	allowed, _, err = limiter.Allow(ctx, "questions:10.0.0.1", 1)
	require.NoError(t, err)
	assert.True(t, allowed)

	assert.True(t, mr.Exists("rate:questions:10.0.0.1"))
	assert.Greater(t, mr.TTL("rate:questions:10.0.0.1"), time.Duration(0))
}

func TestAllow_RedisDown_FailsOpenWithError(t *testing.T) {
	limiter, mr := newTestRedisLuaLimiter(t, map[string]BucketConfig{"questions": NewBucketConfigFromPerMinute(1)})
	mr.Close()

	allowed, _, err := limiter.Allow(context.Background(), "questions:x", 1)
	assert.Error(t, err)
	assert.True(t, allowed)
}

func TestSetBucketConfig(t *testing.T) {
	limiter, _ := newTestRedisLuaLimiter(t, nil)
	limiter.SetBucketConfig("questions", BucketConfig{Capacity: 1, RefillRate: 0.01})
	ctx := context.Background()

	allowed, _, err := limiter.Allow(ctx, "questions:a", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
	allowed, retryAfter, err := limiter.Allow(ctx, "questions:a", 1)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Minute)

	var nilLimiter *RedisLuaLimiter
	nilLimiter.SetBucketConfig("x", BucketConfig{})
}
