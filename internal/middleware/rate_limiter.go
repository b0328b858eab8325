package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter implements per-IP rate limiting for API endpoints
type RateLimiter struct {
	limiters      map[string]*rate.Limiter
	mutex         sync.RWMutex
	limiterRate   rate.Limit
	burst         int
	cleanupTicker *time.Ticker
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	limiter := &RateLimiter{
		limiters:      make(map[string]*rate.Limiter),
		limiterRate:   rate.Limit(requestsPerSecond),
		burst:         burst,
		cleanupTicker: time.NewTicker(5 * time.Minute),
	}

	go limiter.cleanup()

	return limiter
}

// cleanup periodically resets the limiter map to bound its size
func (rl *RateLimiter) cleanup() {
	for range rl.cleanupTicker.C {
		rl.mutex.Lock()
		rl.limiters = make(map[string]*rate.Limiter)
		rl.mutex.Unlock()
	}
}

// Stop stops the rate limiter cleanup
func (rl *RateLimiter) Stop() {
	rl.cleanupTicker.Stop()
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mutex.RLock()
	limiter, exists := rl.limiters[ip]
	rl.mutex.RUnlock()
	if exists {
		return limiter
	}

	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	if limiter, exists = rl.limiters[ip]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(rl.limiterRate, rl.burst)
	rl.limiters[ip] = limiter
	return limiter
}

// Middleware rejects requests exceeding the per-IP rate
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiterFor(c.ClientIP()).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
