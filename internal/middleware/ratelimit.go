package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"ai-app-builder/internal/logging"
)

const (
	bucketIdleTTL = time.Hour
	sweepEvery    = 10 * time.Minute
)

// ClientLimiter keeps one token bucket per client IP. Buckets idle for an
// hour are dropped on a later call.
type ClientLimiter struct {
	perMinute int
	burst     int
	now       func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewClientLimiter refills perMinute tokens a minute up to burst.
func NewClientLimiter(perMinute, burst int) *ClientLimiter {
	return &ClientLimiter{
		perMinute: perMinute,
		burst:     burst,
		now:       time.Now,
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
	}
}

// Limiter returns the bucket of client, creating it on first use.
func (l *ClientLimiter) Limiter(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= sweepEvery {
		l.sweep(now)
	}
	b, ok := l.buckets[client]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(float64(l.perMinute)/60), l.burst)}
		l.buckets[client] = b
	}
	b.seen = now
	return b.lim
}

// Allow takes a token from client's bucket.
func (l *ClientLimiter) Allow(client string) bool {
	return l.Limiter(client).Allow()
}

// Len is the number of live buckets.
func (l *ClientLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *ClientLimiter) sweep(now time.Time) {
	for client, b := range l.buckets {
		if now.Sub(b.seen) > bucketIdleTTL {
			delete(l.buckets, client)
		}
	}
	l.lastSweep = now
}

// Handler rejects a request with 429 and code once its client is out of
// tokens.
func (l *ClientLimiter) Handler(code, message string) gin.HandlerFunc {
	label := fmt.Sprintf("%d requests per minute", l.perMinute)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if l.Allow(ip) {
			c.Next()
			return
		}
		logging.L().Warn("rate limit exceeded",
			zap.String("client_ip", ip),
			zap.String("path", c.Request.URL.Path),
			zap.String("code", code))
		AbortWithError(c, http.StatusTooManyRequests, code, message, map[string]interface{}{
			"retry_after": "60s",
			"limit":       label,
		})
	}
}

var (
	limiterMu     sync.Mutex
	globalLimiter *ClientLimiter
	verifyLimiter *ClientLimiter
)

// InitRateLimiter replaces the limiter used by RateLimit.
func InitRateLimiter(requestsPerMinute, burst int) {
	limiterMu.Lock()
	globalLimiter = NewClientLimiter(requestsPerMinute, burst)
	limiterMu.Unlock()
}

// RateLimit limits every route per client IP. Without InitRateLimiter it
// allows 600 requests a minute with a burst of 30.
func RateLimit() gin.HandlerFunc {
	limiterMu.Lock()
	if globalLimiter == nil {
		globalLimiter = NewClientLimiter(600, 30)
	}
	l := globalLimiter
	limiterMu.Unlock()
	return l.Handler("RATE_LIMIT_EXCEEDED", "Rate limit exceeded")
}

// InitVerifyRateLimiter resets the limiter shared by the key verification
// routes.
func InitVerifyRateLimiter() {
	limiterMu.Lock()
	verifyLimiter = NewClientLimiter(10, 5)
	limiterMu.Unlock()
}

// VerifyRateLimit allows 10 verifications a minute per client, burst 5.
// Verification calls third-party APIs.
func VerifyRateLimit() gin.HandlerFunc {
	limiterMu.Lock()
	if verifyLimiter == nil {
		verifyLimiter = NewClientLimiter(10, 5)
	}
	l := verifyLimiter
	limiterMu.Unlock()
	return l.Handler("VERIFY_RATE_LIMIT_EXCEEDED", "Too many key verification attempts. Please try again later.")
}
