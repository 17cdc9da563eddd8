package events

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the event stream routes.
func RegisterRoutes(router *gin.RouterGroup, service *Service) {
	handler := NewHandler(service)

	router.GET("/events", handler.List)
}
