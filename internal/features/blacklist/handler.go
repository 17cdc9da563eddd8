package blacklist

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/phishguard/phishguard-api/internal/features/events"
	"github.com/phishguard/phishguard-api/internal/pkg/pagination"
	"github.com/phishguard/phishguard-api/internal/pkg/response"
)

// EventSink receives audit events for administrative blacklist changes.
type EventSink interface {
	Publish(ctx context.Context, eventType, subjectID, actor string, payload map[string]interface{})
}

// Handler handles blacklist HTTP requests
type Handler struct {
	repo   *Repository
	events EventSink
}

func NewHandler(repo *Repository, sink EventSink) *Handler {
	return &Handler{repo: repo, events: sink}
}

// Check godoc
// @Summary Check a target against the blacklist
// @Tags blacklist
// @Produce json
// @Param value query string true "URL or wallet address"
// @Success 200 {object} response.SuccessResponse
// @Router /blacklist/check [get]
func (h *Handler) Check(c *gin.Context) {
	value := c.Query("value")
	if value == "" {
		response.BadRequest(c, "value query parameter required", "INVALID_QUERY")
		return
	}

	listed, err := h.repo.Contains(c.Request.Context(), value)
	if err != nil {
		response.InternalServerError(c, "Failed to check blacklist", "FETCH_FAILED")
		return
	}

	response.Success(c, gin.H{"value": value, "blacklisted": listed})
}

// List returns blacklist entries (admin).
func (h *Handler) List(c *gin.Context) {
	page, limit := pagination.FromQuery(c.Query("page"), c.Query("limit"))

	entries, total, err := h.repo.List(c.Request.Context(), (page-1)*limit, limit)
	if err != nil {
		response.InternalServerError(c, "Failed to fetch blacklist", "FETCH_FAILED")
		return
	}
	if entries == nil {
		entries = []Entry{}
	}

	response.Paginated(c, entries, total, limit, page)
}

// Add inserts a blacklist entry (admin).
func (h *Handler) Add(c *gin.Context) {
	var req AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request format", "INVALID_JSON")
		return
	}

	entry := &Entry{
		Value:   req.Value,
		IsURL:   req.IsURL,
		Reason:  req.Reason,
		AddedBy: "admin",
	}
	if err := h.repo.Add(c.Request.Context(), entry); err != nil {
		response.FromError(c, err)
		return
	}

	h.events.Publish(c.Request.Context(), events.TypeAdminAction, req.Value, "admin", map[string]interface{}{
		"action": "blacklist_add",
		"isUrl":  req.IsURL,
	})

	response.Created(c, entry)
}

// Remove deletes a blacklist entry (admin).
func (h *Handler) Remove(c *gin.Context) {
	value := c.Query("value")
	if value == "" {
		response.BadRequest(c, "value query parameter required", "INVALID_QUERY")
		return
	}

	if err := h.repo.Remove(c.Request.Context(), value); err != nil {
		response.FromError(c, err)
		return
	}

	h.events.Publish(c.Request.Context(), events.TypeAdminAction, value, "admin", map[string]interface{}{
		"action": "blacklist_remove",
	})

	response.Success(c, gin.H{"value": value, "removed": true})
}
