package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

func reject(c *gin.Context, limiter *RateLimiter, key string) {
	resetTime := limiter.ResetTime(key)

	c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
	c.Header("X-RateLimit-Remaining", "0")
	c.Header("X-RateLimit-Reset", resetTime.Format(time.RFC3339))
	c.Header("Retry-After", strconv.Itoa(int(time.Until(resetTime).Seconds())+1))

	c.JSON(http.StatusTooManyRequests, gin.H{
		"error":      "Rate limit exceeded. Try again later.",
		"code":       "RATE_LIMITED",
		"reset_time": resetTime.Format(time.RFC3339),
		"limit":      limiter.limit,
	})
	c.Abort()
}

func admit(c *gin.Context, limiter *RateLimiter, key string) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))
	c.Header("X-RateLimit-Reset", limiter.ResetTime(key).Format(time.RFC3339))
	c.Next()
}

// Middleware rate limits by client IP.
func Middleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		if !limiter.Allow(key) {
			reject(c, limiter, key)
			return
		}
		admit(c, limiter, key)
	}
}

// AccountMiddleware rate limits by the authenticated account address,
// falling back to client IP for unauthenticated requests.
func AccountMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString("address")
		if key == "" {
			key = c.ClientIP()
		}

		if !limiter.Allow(key) {
			reject(c, limiter, key)
			return
		}
		admit(c, limiter, key)
	}
}
