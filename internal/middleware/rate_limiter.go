package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter implements per-IP rate limiting for the public redirect endpoint
type RateLimiter struct {
	ipLimiters    map[string]*rate.Limiter
	ipMutex       sync.RWMutex
	ipLimiterRate rate.Limit
	ipBurst       int
	cleanupTicker *time.Ticker
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	limiter := &RateLimiter{
		ipLimiters:    make(map[string]*rate.Limiter),
		ipLimiterRate: rate.Limit(requestsPerSecond),
		ipBurst:       burst,
		cleanupTicker: time.NewTicker(5 * time.Minute),
	}

	go limiter.cleanup()

	return limiter
}

// cleanup periodically resets the limiter map to prevent unbounded growth
func (rl *RateLimiter) cleanup() {
	for range rl.cleanupTicker.C {
		rl.ipMutex.Lock()
		rl.ipLimiters = make(map[string]*rate.Limiter)
		rl.ipMutex.Unlock()
	}
}

// getLimiter returns the limiter for an IP, creating it if needed
func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.ipMutex.RLock()
	limiter, exists := rl.ipLimiters[ip]
	rl.ipMutex.RUnlock()
	if exists {
		return limiter
	}

	rl.ipMutex.Lock()
	defer rl.ipMutex.Unlock()
	if limiter, exists = rl.ipLimiters[ip]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(rl.ipLimiterRate, rl.ipBurst)
	rl.ipLimiters[ip] = limiter
	return limiter
}

// Middleware limits requests per client IP
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.getLimiter(c.ClientIP()).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}
