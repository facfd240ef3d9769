package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc picks the bucket a request draws from.
type KeyFunc func(*gin.Context) string

// KeyByStationOrIP buckets by host-stand terminal when the request names
// one, else by client IP. Several hosts working behind one NAT then do not
// starve each other.
func KeyByStationOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if s := strings.TrimSpace(c.GetHeader(StationHeader)); s != "" {
			return "station:" + s
		}
		return "ip:" + c.ClientIP()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is an in-process token bucket per key. Use RedisRateLimiter
// when more than one replica serves the floor.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn KeyFunc

	mu       sync.Mutex
	visitors map[string]*visitor
	ttl      time.Duration
	sweeps   uint64
}

const (
	visitorTTL        = 10 * time.Minute
	visitorSweepEvery = 5000 // lookups between idle-bucket sweeps
)

// NewRateLimiter allows rps requests per second per key with the given
// burst. A nil keyFn means KeyByStationOrIP.
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if keyFn == nil {
		keyFn = KeyByStationOrIP()
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      visitorTTL,
	}
}

func (rl *RateLimiter) limiter(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.sweeps++; rl.sweeps >= visitorSweepEvery {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.sweeps = 0
	}

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Handler answers 429 with Retry-After once a key's bucket is empty.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) || rl.limiter(rl.keyFn(c), time.Now()).Allow() {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		abort(c, http.StatusTooManyRequests, "too_many_requests", "rate limit exceeded")
	}
}
