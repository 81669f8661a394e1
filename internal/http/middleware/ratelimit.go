// Package middleware – rate limiting
//
// Token buckets per caller (user ID, else client IP). Routes can charge more
// than one token with Cost; rejected requests get 429 and a Retry-After.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc maps a request to its rate-limit bucket.
type KeyFunc func(*gin.Context) string

// KeyByUserOrIP buckets by caller identity, or by client IP for anonymous
// callers.
func KeyByUserOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if uid := UserID(c); uid != AnonymousUser {
			return "user:" + uid
		}
		return "ip:" + c.ClientIP()
	}
}

const ctxKeyRateCost = "rate.cost"

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a process-local token bucket per key. Routes that fan out
// to many provider calls can charge more than one token with Cost.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn KeyFunc
	idle  time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
	lookups int
}

// NewRateLimiter builds a limiter refilling rps tokens per second up to
// burst (at least 1).
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if keyFn == nil {
		keyFn = KeyByUserOrIP()
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		idle:    10 * time.Minute,
		buckets: make(map[string]*bucket),
	}
}

// limiter returns key's bucket, evicting idle buckets every 5000 lookups.
func (rl *RateLimiter) limiter(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.lookups++; rl.lookups >= 5000 {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.idle {
				delete(rl.buckets, k)
			}
		}
		rl.lookups = 0
	}
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// Cost makes the rest of the chain charge n tokens instead of one. Install
// it on a route before Handler.
func Cost(n int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxKeyRateCost, n)
		c.Next()
	}
}

// Handler enforces the limit. Idempotent replays pass for free. A cost above
// the burst is capped at the burst so such a route can still be reached.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}
		cost := 1
		if v, ok := c.Get(ctxKeyRateCost); ok {
			if n, ok := v.(int); ok && n > 0 {
				cost = n
			}
		}
		if cost > rl.burst {
			cost = rl.burst
		}
		now := time.Now()
		lim := rl.limiter(rl.keyFn(c), now)
		if lim.AllowN(now, cost) {
			c.Next()
			return
		}
		retry := 1
		if rl.rps > 0 {
			retry = int(math.Ceil(float64(cost) / float64(rl.rps)))
		}
		c.Header("Retry-After", strconv.Itoa(retry))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}

// IsRateBypass reports whether the request was exempted by IdempotencyKeys.
func IsRateBypass(c *gin.Context) bool {
	v, _ := c.Get(ctxKeyRateBypass)
	b, _ := v.(bool)
	return b
}
