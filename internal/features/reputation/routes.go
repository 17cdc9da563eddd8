package reputation

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the reputation routes.
func RegisterRoutes(router *gin.RouterGroup, admin *gin.RouterGroup, service *Service, sink EventSink) {
	handler := NewHandler(service, sink)

	group := router.Group("/reputation")
	{
		group.GET("/leaderboard", handler.Leaderboard)
		group.GET("/:address", handler.GetProfile)
		group.GET("/:address/tier", handler.GetTier)
	}

	admin.POST("/reputation/:address", handler.Override)
}
