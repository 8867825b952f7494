package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"task_manager/internal/logging"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

const limiterCleanupInterval = 5 * time.Minute

// ipRateLimiter keeps one token bucket per client IP
type ipRateLimiter struct {
	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	rate        rate.Limit
	burst       int
	lastCleanup time.Time
}

func newIPRateLimiter(cfg RateLimitConfig) *ipRateLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.RequestsPerWindow
	}
	return &ipRateLimiter{
		limiters:    make(map[string]*rate.Limiter),
		rate:        rate.Limit(float64(cfg.RequestsPerWindow) / cfg.Window.Seconds()),
		burst:       burst,
		lastCleanup: time.Now(),
	}
}

func (rl *ipRateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if time.Since(rl.lastCleanup) >= limiterCleanupInterval {
		rl.lastCleanup = time.Now()
		// A full bucket means the key has been idle
		for k, l := range rl.limiters {
			if l.Tokens() >= float64(rl.burst) {
				delete(rl.limiters, k)
			}
		}
	}

	l, ok := rl.limiters[key]
	if !ok {
		l = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = l
	}
	return l
}

// RateLimitByIP limits requests per client IP, replying 429 once the bucket is empty.
func RateLimitByIP(cfg RateLimitConfig) gin.HandlerFunc {
	rl := newIPRateLimiter(cfg)

	return func(c *gin.Context) {
		limiter := rl.get(c.ClientIP())
		if limiter.Allow() {
			c.Next()
			return
		}

		reservation := limiter.Reserve()
		retryAfter := max(int(reservation.Delay().Seconds()), 1)
		reservation.Cancel()

		logging.FromContext(c.Request.Context()).Warn("rate limit exceeded",
			"endpoint", c.FullPath(),
			"retry_after", retryAfter,
		)
		c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please try again later."})
	}
}
