package mw

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long a client's limiter is kept after its last request.
const limiterIdleTTL = 10 * time.Minute

// ClientLimiter hands out one token bucket per client IP. Buckets of clients
// that stop calling expire instead of piling up.
type ClientLimiter struct {
	mu      sync.Mutex
	buckets *cache.Cache
	r       rate.Limit
	b       int
}

// NewClientLimiter creates a limiter allowing r requests per second with burst b.
func NewClientLimiter(r rate.Limit, b int) *ClientLimiter {
	return &ClientLimiter{
		buckets: cache.New(limiterIdleTTL, limiterIdleTTL),
		r:       r,
		b:       b,
	}
}

// Limiter returns the bucket for ip, creating it on first use.
func (l *ClientLimiter) Limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.buckets.Get(ip); ok {
		limiter := v.(*rate.Limiter)
		l.buckets.SetDefault(ip, limiter)
		return limiter
	}
	limiter := rate.NewLimiter(l.r, l.b)
	l.buckets.SetDefault(ip, limiter)
	return limiter
}

// Clients reports how many clients currently hold a bucket.
func (l *ClientLimiter) Clients() int {
	return l.buckets.ItemCount()
}

// RateLimiter is a middleware for IP-based rate limiting.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	return RateLimitWith(NewClientLimiter(r, b))
}

// RateLimitWith rejects requests over the client's budget with 429.
func RateLimitWith(limiter *ClientLimiter) gin.HandlerFunc {
	retryAfter := "1"
	if limiter.r > 0 && limiter.r < 1 {
		retryAfter = strconv.Itoa(int(1/float64(limiter.r)) + 1)
	}
	return func(c *gin.Context) {
		if !limiter.Limiter(c.ClientIP()).Allow() {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
