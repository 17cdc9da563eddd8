package reports

import (
	"github.com/gin-gonic/gin"

	"github.com/phishguard/phishguard-api/internal/middleware"
)

// RegisterRoutes registers the report routes.
func RegisterRoutes(router *gin.RouterGroup, admin *gin.RouterGroup, service *Service) {
	handler := NewHandler(service)

	router.GET("/reports", handler.List)
	router.GET("/reports/:id", handler.Get)
	router.GET("/reports/:id/votes", handler.Votes)
	router.GET("/reports/:id/disputes", handler.Disputes)

	authed := router.Group("")
	authed.Use(middleware.Auth())
	{
		authed.POST("/reports", handler.Submit)
		authed.POST("/reports/:id/vote", handler.Vote)
		authed.POST("/reports/:id/dispute", handler.Dispute)
	}

	admin.POST("/reports/:id/finalize", handler.ForceFinalize)
	admin.POST("/reports/:id/refund", handler.Refund)
	admin.POST("/reports/expire", handler.ExpireDue)
}
