package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// IPRateLimiter hands out one token bucket per client IP address. Buckets that
// have not been used for a while are dropped.
type IPRateLimiter struct {
	Rate  rate.Limit
	Burst int
	TTL   time.Duration

	limiters map[string]*ipLimiter
	mut      sync.Mutex
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter creates a limiter allowing perSecond requests per IP, with bursts
func NewIPRateLimiter(perSecond float64, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		Rate:     rate.Limit(perSecond),
		Burst:    burst,
		TTL:      10 * time.Minute,
		limiters: map[string]*ipLimiter{},
	}
}

// Allow reports whether the IP may make another request now
func (l *IPRateLimiter) Allow(ip string, now time.Time) bool {

	l.mut.Lock()
	defer l.mut.Unlock()

	// Sweep stale entries
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > l.TTL {
			delete(l.limiters, key)
		}
	}

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(l.Rate, l.Burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)

}

// RateLimit rejects requests from IPs that are over their limit. The IP comes
// from c.ClientIP, so the engine's trusted platform and proxies decide which
// headers count.
func RateLimit(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP(), time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts, please wait a moment"})
			return
		}
		c.Next()
	}
}
