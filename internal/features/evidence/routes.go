package evidence

import (
	"github.com/gin-gonic/gin"

	"github.com/phishguard/phishguard-api/internal/middleware"
)

// RegisterRoutes registers the evidence routes.
func RegisterRoutes(router *gin.RouterGroup, admin *gin.RouterGroup, service *Service) {
	handler := NewHandler(service)

	group := router.Group("/evidence")
	{
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)
		group.GET("/hash/:hash", handler.GetByHash)

		group.POST("", middleware.Auth(), handler.Submit)
		group.POST("/:id/validate", middleware.Auth(), handler.Validate)
	}

	admin.POST("/evidence/:id/annotate", handler.Annotate)
}
