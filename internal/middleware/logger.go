package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/phishguard/phishguard-api/internal/pkg/logger"
)

// RequestLogger logs one line per request with method, path, status,
// latency and the acting account when authenticated.
func RequestLogger() gin.HandlerFunc {
	skip := map[string]bool{"/health": true}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		status := c.Writer.Status()
		actor := c.GetString("address")
		if actor == "" {
			actor = c.ClientIP()
		}

		switch {
		case status >= 500:
			logger.Error("%s %s -> %d (%v) actor=%s", c.Request.Method, c.Request.URL.Path, status, latency, actor)
		case status >= 400:
			logger.Warn("%s %s -> %d (%v) actor=%s", c.Request.Method, c.Request.URL.Path, status, latency, actor)
		default:
			logger.Info("%s %s -> %d (%v) actor=%s", c.Request.Method, c.Request.URL.Path, status, latency, actor)
		}
	}
}
