package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/phishguard/phishguard-api/internal/pkg/response"
	"github.com/phishguard/phishguard-api/internal/pkg/token"
)

// Auth requires a bearer identity token and puts the caller's account
// address into the context under "address".
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Authorization header required", "AUTH_REQUIRED")
			c.Abort()
			return
		}

		// Support both "Bearer <token>" (case-insensitive) and raw token in header
		fields := strings.Fields(authHeader)
		var tokenString string
		if len(fields) == 2 && strings.EqualFold(fields[0], "Bearer") {
			tokenString = fields[1]
		} else {
			tokenString = authHeader
		}

		claims, err := token.ValidateToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "Invalid token", "AUTH_INVALID_TOKEN")
			c.Abort()
			return
		}

		c.Set("address", claims.Address)
		c.Next()
	}
}
