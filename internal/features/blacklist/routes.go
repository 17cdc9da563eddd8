package blacklist

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the blacklist routes.
func RegisterRoutes(router *gin.RouterGroup, admin *gin.RouterGroup, repo *Repository, sink EventSink) {
	handler := NewHandler(repo, sink)

	router.GET("/blacklist/check", handler.Check)

	admin.GET("/blacklist", handler.List)
	admin.POST("/blacklist", handler.Add)
	admin.DELETE("/blacklist", handler.Remove)
}
