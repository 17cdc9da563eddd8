package reputation

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/phishguard/phishguard-api/internal/features/events"
	"github.com/phishguard/phishguard-api/internal/pkg/response"
	"github.com/phishguard/phishguard-api/internal/pkg/validator"
)

// Handler handles reputation-related HTTP requests
type Handler struct {
	service *Service
	events  EventSink
}

func NewHandler(service *Service, sink EventSink) *Handler {
	return &Handler{service: service, events: sink}
}

// GetProfile godoc
// @Summary Get reputation profile
// @Tags reputation
// @Produce json
// @Param address path string true "Account address"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /reputation/{address} [get]
func (h *Handler) GetProfile(c *gin.Context) {
	address := c.Param("address")
	if !validator.IsValidAccountAddress(address) {
		response.BadRequest(c, "Invalid account address", "INVALID_ADDRESS")
		return
	}

	profile, err := h.service.ProfileOf(c.Request.Context(), address)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, profile)
}

// GetTier returns just the tier for an address.
func (h *Handler) GetTier(c *gin.Context) {
	address := c.Param("address")
	if !validator.IsValidAccountAddress(address) {
		response.BadRequest(c, "Invalid account address", "INVALID_ADDRESS")
		return
	}

	profile, err := h.service.ProfileOf(c.Request.Context(), address)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{
		"address": profile.Address,
		"tier":    profile.Tier,
		"total":   profile.TotalReputation,
	})
}

// Leaderboard returns the top accounts by total reputation.
func (h *Handler) Leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	profiles, err := h.service.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		response.InternalServerError(c, "Failed to fetch leaderboard", "FETCH_FAILED")
		return
	}
	if profiles == nil {
		profiles = []Profile{}
	}

	response.Success(c, profiles)
}

// Override godoc
// @Summary Override base reputation (admin)
// @Description Emergency reputation override. Audited via the event stream.
// @Tags reputation
// @Accept json
// @Produce json
// @Param address path string true "Account address"
// @Param request body OverrideRequest true "Override"
// @Success 200 {object} response.SuccessResponse
// @Router /admin/reputation/{address} [post]
func (h *Handler) Override(c *gin.Context) {
	address := c.Param("address")
	if !validator.IsValidAccountAddress(address) {
		response.BadRequest(c, "Invalid account address", "INVALID_ADDRESS")
		return
	}

	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request format", "INVALID_JSON")
		return
	}

	profile, err := h.service.Override(c.Request.Context(), address, req.BaseReputation)
	if err != nil {
		response.FromError(c, err)
		return
	}

	h.events.Publish(c.Request.Context(), events.TypeAdminAction, address, "admin", map[string]interface{}{
		"action": "reputation_override",
		"base":   req.BaseReputation,
		"reason": req.Reason,
	})

	response.Success(c, profile)
}
