package events

import (
	"github.com/gin-gonic/gin"

	"github.com/phishguard/phishguard-api/internal/pkg/response"
)

// Handler exposes the event stream to indexers and the web layer.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List godoc
// @Summary List engine events
// @Description Ordered event stream for off-chain indexers. Poll with ?after=<last seen seq>.
// @Tags events
// @Produce json
// @Param after query int false "Return events with seq greater than this"
// @Param type query string false "Filter by event type"
// @Param limit query int false "Max events (default 100, max 500)"
// @Success 200 {object} response.SuccessResponse
// @Router /events [get]
func (h *Handler) List(c *gin.Context) {
	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "Invalid query parameters", "INVALID_QUERY")
		return
	}

	items, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.InternalServerError(c, "Failed to fetch events", "FETCH_FAILED")
		return
	}
	if items == nil {
		items = []Event{}
	}

	response.Success(c, items)
}
