package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// tokenBucket refills tokens in whole intervals and takes one per call.
// Returns {allowed, tokens_left, retry_after_ms}.
var tokenBucket = redis.NewScript(`
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

if interval_ms > 0 then
  local intervals = math.floor(math.max(0, now_ms - last_refill) / interval_ms)
  if intervals > 0 then
    tokens = math.min(capacity, tokens + intervals)
    last_refill = last_refill + intervals * interval_ms
  end
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

// RedisRateLimiter shares one token bucket per key across every replica.
// With a nil client, or when Redis fails, requests pass through: a host
// must never be locked out of the floor because the limiter is down.
type RedisRateLimiter struct {
	rdb      redis.Scripter
	capacity int
	interval time.Duration // one token per interval
	ttl      time.Duration
	prefix   string
	keyFn    KeyFunc
}

// NewRedisRateLimiter converts rps/burst to a bucket of burst tokens that
// gains one token every 1/rps seconds. rdb may be nil.
func NewRedisRateLimiter(rdb *redis.Client, rps float64, burst int, keyFn KeyFunc) *RedisRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if keyFn == nil {
		keyFn = KeyByStationOrIP()
	}
	interval := time.Second
	if rps > 0 {
		interval = time.Duration(float64(time.Second) / rps)
	}
	rl := &RedisRateLimiter{
		capacity: burst,
		interval: interval,
		ttl:      visitorTTL,
		prefix:   "hoststand:rl",
		keyFn:    keyFn,
	}
	if rdb != nil {
		rl.rdb = rdb
	}
	return rl
}

type bucketReply struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

// Handler sets X-RateLimit-Limit and X-RateLimit-Remaining, and Retry-After
// on 429.
func (rl *RedisRateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rdb == nil || IsRateBypass(c) {
			c.Next()
			return
		}
		key := rl.prefix + ":" + rl.keyFn(c)
		vals, err := tokenBucket.Run(c.Request.Context(), rl.rdb, []string{key},
			time.Now().UnixMilli(), rl.capacity, rl.interval.Milliseconds(), int64(rl.ttl/time.Second),
		).Result()
		if err != nil {
			LoggerFrom(c).Warn().Err(err).Str("key", key).Msg("rate limiter unavailable")
			c.Next()
			return
		}
		reply, ok := parseBucketReply(vals)
		if !ok {
			LoggerFrom(c).Warn().Str("key", key).Str("reply", fmt.Sprint(vals)).Msg("unexpected rate limiter reply")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.capacity))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(reply.remaining, 10))
		if reply.allowed {
			c.Next()
			return
		}
		secs := int(math.Ceil(reply.retry.Seconds()))
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
		abort(c, http.StatusTooManyRequests, "too_many_requests", "rate limit exceeded")
	}
}

func parseBucketReply(vals any) (bucketReply, bool) {
	arr, ok := vals.([]any)
	if !ok || len(arr) != 3 {
		return bucketReply{}, false
	}
	return bucketReply{
		allowed:   asInt64(arr[0]) == 1,
		remaining: asInt64(arr[1]),
		retry:     time.Duration(asInt64(arr[2])) * time.Millisecond,
	}, true
}

func asInt64(v any) int64 {
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
