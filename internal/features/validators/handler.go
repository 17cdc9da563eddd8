package validators

import (
	"github.com/gin-gonic/gin"

	"github.com/phishguard/phishguard-api/internal/pkg/pagination"
	"github.com/phishguard/phishguard-api/internal/pkg/response"
	"github.com/phishguard/phishguard-api/internal/pkg/validator"
)

// Handler handles validator registry HTTP requests
type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Register godoc
// @Summary Register as a validator
// @Description One-time self-registration. A second call fails with a conflict.
// @Tags validators
// @Produce json
// @Security BearerAuth
// @Success 201 {object} response.SuccessResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /validators/register [post]
func (h *Handler) Register(c *gin.Context) {
	address := c.GetString("address")

	v := NewValidator(address)
	if err := h.repo.Insert(c.Request.Context(), v); err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, v)
}

// Get returns one validator by address.
func (h *Handler) Get(c *gin.Context) {
	address := c.Param("address")
	if !validator.IsValidAccountAddress(address) {
		response.BadRequest(c, "Invalid account address", "INVALID_ADDRESS")
		return
	}

	v, err := h.repo.Get(c.Request.Context(), address)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, v)
}

// List returns the validator registry, paginated.
func (h *Handler) List(c *gin.Context) {
	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "Invalid query parameters", "INVALID_QUERY")
		return
	}

	p := pagination.New(query.Page, query.Limit, 0)
	items, total, err := h.repo.List(c.Request.Context(), query.Active, p.Offset, p.Limit)
	if err != nil {
		response.InternalServerError(c, "Failed to fetch validators", "FETCH_FAILED")
		return
	}
	if items == nil {
		items = []Validator{}
	}

	response.Paginated(c, items, total, p.Limit, p.Page)
}

// SetActive enables or disables a validator (admin).
func (h *Handler) SetActive(c *gin.Context) {
	address := c.Param("address")

	var req struct {
		Active bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request format", "INVALID_JSON")
		return
	}

	if err := h.repo.SetActive(c.Request.Context(), address, req.Active); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{"address": address, "active": req.Active})
}
