package validators

import (
	"github.com/gin-gonic/gin"

	"github.com/phishguard/phishguard-api/internal/middleware"
)

// RegisterRoutes registers the validator registry routes.
func RegisterRoutes(router *gin.RouterGroup, admin *gin.RouterGroup, repo *Repository) {
	handler := NewHandler(repo)

	group := router.Group("/validators")
	{
		group.POST("/register", middleware.Auth(), handler.Register)
		group.GET("", handler.List)
		group.GET("/:address", handler.Get)
	}

	admin.POST("/validators/:address/active", handler.SetActive)
}
