package middleware

import (
	"net/http"
	"sync"
	"time"

	"retail-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Limiter decides whether a caller may proceed. Injected so the policy can
// be swapped without touching route wiring.
type Limiter interface {
	Allow(key string) bool
}

// ipLimiter keeps one token bucket per client key, pruned lazily.
type ipLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucketEntry
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
}

type bucketEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewIPLimiter returns a Limiter allowing rps requests per second with the
// given burst per key.
func NewIPLimiter(rps float64, burst int) Limiter {
	return &ipLimiter{
		buckets: make(map[string]*bucketEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: 10 * time.Minute,
	}
}

func (l *ipLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	entry, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) > 10000 {
			l.prune(now)
		}
		entry = &bucketEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[key] = entry
	}
	entry.seen = now
	return entry.limiter.Allow()
}

func (l *ipLimiter) prune(now time.Time) {
	for key, entry := range l.buckets {
		if now.Sub(entry.seen) > l.idleTTL {
			delete(l.buckets, key)
		}
	}
}

// RateLimit rejects requests over the limit with 429. Keyed by client IP.
func RateLimit(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.Error(http.StatusTooManyRequests, "Too many requests"))
			return
		}
		c.Next()
	}
}
