package middlewares

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills the whole bucket once per interval and takes one
// token. It returns {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

local elapsed = math.max(0, now_ms - last_refill)
local intervals = math.floor(elapsed / interval_ms)
if intervals > 0 then
	tokens = capacity
	last_refill = last_refill + (intervals * interval_ms)
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// RedisRateLimiter shares buckets across API replicas. When Redis cannot be
// reached it answers from fallback instead.
type RedisRateLimiter struct {
	rdb      *redis.Client
	prefix   string
	capacity int
	window   time.Duration
	fallback Limiter
	log      *slog.Logger
	now      func() time.Time
}

func NewRedisRateLimiter(rdb *redis.Client, capacity int, window time.Duration, fallback Limiter, log *slog.Logger) *RedisRateLimiter {
	return &RedisRateLimiter{
		rdb:      rdb,
		prefix:   "mediahub:ratelimit",
		capacity: capacity,
		window:   window,
		fallback: fallback,
		log:      log,
		now:      time.Now,
	}
}

func (l *RedisRateLimiter) Limit() int { return l.capacity }

func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	ttl := int64(l.window/time.Second) + 1

	vals, err := tokenBucketScript.Run(ctx, l.rdb, []string{l.prefix + ":" + key},
		l.now().UnixMilli(), l.capacity, l.window.Milliseconds(), ttl,
	).Slice()
	if err == nil && len(vals) != 3 {
		err = fmt.Errorf("unexpected script result %v", vals)
	}
	if err != nil {
		l.log.WarnContext(ctx, "redis rate limiter unavailable, using fallback", "err", err)
		if l.fallback == nil {
			return Decision{}, err
		}
		return l.fallback.Allow(ctx, key)
	}

	return Decision{
		Allowed:    asInt64(vals[0]) == 1,
		Remaining:  int(asInt64(vals[1])),
		RetryAfter: time.Duration(asInt64(vals[2])) * time.Millisecond,
	}, nil
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
