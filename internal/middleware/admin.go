package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/phishguard/phishguard-api/internal/config"
	"github.com/phishguard/phishguard-api/internal/pkg/logger"
	"github.com/phishguard/phishguard-api/internal/pkg/response"
)

// AdminAuth gates the privileged surface (blacklist management, emergency
// overrides, forced status changes) behind a shared key. Every admitted
// call is logged so administrative actions stay auditable.
func AdminAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.AdminAPIKey == "" {
			response.Forbidden(c, "Admin surface disabled", "ADMIN_DISABLED")
			c.Abort()
			return
		}

		key := c.GetHeader("X-Admin-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(cfg.AdminAPIKey)) != 1 {
			response.Forbidden(c, "Invalid admin key", "ADMIN_INVALID_KEY")
			c.Abort()
			return
		}

		logger.Warn("admin call %s %s from %s", c.Request.Method, c.Request.URL.Path, c.ClientIP())
		c.Set("admin", true)
		c.Next()
	}
}
