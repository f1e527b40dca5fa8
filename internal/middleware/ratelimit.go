package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"classroom/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// loginBucket is a token bucket kept in one hash per client.
// KEYS[1]=bucket, ARGV[1]=tokens per second, ARGV[2]=burst, ARGV[3]=now (ms).
// Returns {allowed, remaining, retry_after_ms}.
var loginBucket = redis.NewScript(`
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now
tokens = math.min(burst, tokens + math.max(0, now - ts) * rate / 1000)

local allowed = 0
local retry_ms = 0
if tokens >= 1 then
    allowed = 1
    tokens = tokens - 1
else
    retry_ms = math.ceil((1 - tokens) * 1000 / rate)
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], math.ceil(burst * 1000 / rate) * 2)
return { allowed, math.floor(tokens), retry_ms }
`)

type localLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-client-IP token bucket. With a Redis scripter the
// bucket is shared across instances; without one, or while Redis is
// unreachable, each instance limits on its own.
type RateLimiter struct {
	rdb       redis.Scripter
	limit     int
	keyPrefix string

	mu        sync.Mutex
	local     map[string]*localLimiter
	lastSweep time.Time
}

// NewRateLimiter builds a limiter allowing requestsPerSecond with an equal
// burst. rdb may be nil.
func NewRateLimiter(rdb redis.Scripter, requestsPerSecond int, keyPrefix string) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	if keyPrefix == "" {
		keyPrefix = "classroom:ratelimit:"
	}
	return &RateLimiter{
		rdb:       rdb,
		limit:     requestsPerSecond,
		keyPrefix: keyPrefix,
		local:     make(map[string]*localLimiter),
		lastSweep: time.Now(),
	}
}

func (rl *RateLimiter) localLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSweep) > localIdleTTL {
		for k, l := range rl.local {
			if now.Sub(l.lastSeen) > localIdleTTL {
				delete(rl.local, k)
			}
		}
		rl.lastSweep = now
	}

	l, ok := rl.local[ip]
	if !ok {
		l = &localLimiter{limiter: rate.NewLimiter(rate.Limit(rl.limit), rl.limit)}
		rl.local[ip] = l
	}
	l.lastSeen = now
	return l.limiter
}

const localIdleTTL = 10 * time.Minute

// Middleware enforces the limit. Redis failures fail open to the local bucket.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	limitHeader := strconv.Itoa(rl.limit)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		c.Header("X-RateLimit-Limit", limitHeader)

		if rl.rdb == nil {
			rl.allowLocal(c, clientIP)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 100*time.Millisecond)
		defer cancel()

		res, err := loginBucket.Run(ctx, rl.rdb,
			[]string{rl.keyPrefix + clientIP},
			rl.limit, rl.limit, time.Now().UnixMilli()).Int64Slice()
		if err != nil || len(res) != 3 {
			logger.Warn("redis rate limit unavailable, using local bucket",
				zap.Error(err),
				zap.String("ip", clientIP))
			rl.allowLocal(c, clientIP)
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.FormatInt(res[1], 10))
		if res[0] != 1 {
			retry := time.Duration(res[2]) * time.Millisecond
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allowLocal(c *gin.Context, ip string) {
	limiter := rl.localLimiter(ip)
	if !limiter.Allow() {
		c.Header("X-RateLimit-Remaining", "0")
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		return
	}
	c.Header("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
	c.Next()
}
