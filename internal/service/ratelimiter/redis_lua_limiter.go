// Package ratelimiter enforces per-client quotas with a Redis token bucket.
package ratelimiter

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	obsctx "github.com/fairyhunter13/ai-credit-assessor/internal/observability"
)

// BucketConfig sizes one bucket scope.
type BucketConfig struct {
	Capacity   int64
	RefillRate float64 // tokens per second
}

// NewBucketConfigFromPerMinute allows perMinute requests per minute with a burst of perMinute.
func NewBucketConfigFromPerMinute(perMinute int) BucketConfig {
	if perMinute <= 0 {
		return BucketConfig{}
	}
	return BucketConfig{
		Capacity:   int64(perMinute),
		RefillRate: float64(perMinute) / 60.0,
	}
}

// RedisLuaLimiter implements domain.Limiter. Keys have the form "<scope>:<client>";
// the scope selects the bucket config and each client gets its own bucket.
// A nil limiter, an unknown scope and Redis errors all fail open.
type RedisLuaLimiter struct {
	redis   redis.Scripter
	buckets map[string]BucketConfig
	script  *redis.Script
	mu      sync.RWMutex
	now     func() time.Time
}

// NewRedisLuaLimiter returns nil when rdb is nil so callers can wire it unconditionally.
func NewRedisLuaLimiter(rdb redis.Scripter, buckets map[string]BucketConfig) *RedisLuaLimiter {
	if rdb == nil {
		return nil
	}
	if buckets == nil {
		buckets = map[string]BucketConfig{}
	}
	return &RedisLuaLimiter{
		redis:   rdb,
		buckets: buckets,
		script:  redis.NewScript(luaTokenBucketScript),
		now:     time.Now,
	}
}

// Redis converts Lua numbers to integers, so fractional state is returned as
// milliseconds and tokens are only stored, never returned.
const luaTokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local tokens = capacity
local last_refill = now

local data = redis.call("HMGET", key, "tokens", "last_refill")
if data[1] then
  tokens = tonumber(data[1])
end
if data[2] then
  last_refill = tonumber(data[2])
end

local delta = now - last_refill
if delta < 0 then
  delta = 0
end
tokens = math.min(capacity, tokens + delta * refill_rate)

local allowed = 0
local retry_after_ms = 0
if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
elseif refill_rate > 0 then
  retry_after_ms = math.ceil((cost - tokens) / refill_rate * 1000)
end

redis.call("HSET", key, "tokens", tostring(tokens), "last_refill", tostring(now))
redis.call("EXPIRE", key, ttl)

return { allowed, retry_after_ms }
`

// Allow takes cost tokens from key's bucket.
func (l *RedisLuaLimiter) Allow(ctx context.Context, key string, cost int64) (bool, time.Duration, error) {
	if l == nil || l.redis == nil {
		return true, 0, nil
	}
	cfg, ok := l.config(key)
	if !ok || cfg.Capacity <= 0 || cfg.RefillRate <= 0 {
		return true, 0, nil
	}
	if cost <= 0 {
		cost = 1
	}

	nowSec := float64(l.now().UnixNano()) / 1e9
	// idle buckets expire once they would be full again
	ttl := int64(float64(cfg.Capacity)/cfg.RefillRate) + 1

	res, err := l.script.Run(ctx, l.redis, []string{"rate:" + key}, cfg.Capacity, cfg.RefillRate, nowSec, cost, ttl).Result()
	if err != nil {
		obsctx.LoggerFromContext(ctx).Error("redis rate limiter script error", slog.String("key", key), slog.Any("error", err))
		return true, 0, err
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		obsctx.LoggerFromContext(ctx).Error("redis rate limiter unexpected script result", slog.String("key", key), slog.Any("result", res))
		return true, 0, nil
	}
	allowed := toInt64(vals[0]) == 1
	retryAfter := time.Duration(toInt64(vals[1])) * time.Millisecond
	return allowed, retryAfter, nil
}

// SetBucketConfig updates or creates the config of a scope. Safe for concurrent use.
func (l *RedisLuaLimiter) SetBucketConfig(scope string, cfg BucketConfig) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets[scope] = cfg
}

func (l *RedisLuaLimiter) config(key string) (BucketConfig, bool) {
	scope := key
	if i := strings.IndexByte(key, ':'); i >= 0 {
		scope = key[:i]
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	cfg, ok := l.buckets[scope]
	return cfg, ok
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}
