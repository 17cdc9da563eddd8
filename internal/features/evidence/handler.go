package evidence

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phishguard/phishguard-api/internal/pkg/pagination"
	"github.com/phishguard/phishguard-api/internal/pkg/response"
)

// Handler handles evidence HTTP requests
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func itemID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid evidence id", "INVALID_ID")
		return primitive.NilObjectID, false
	}
	return id, true
}

// Submit godoc
// @Summary Submit an evidence item
// @Tags evidence
// @Accept json
// @Produce json
// @Param request body SubmitRequest true "Evidence details"
// @Success 201 {object} response.SuccessResponse
// @Failure 422 {object} response.ErrorResponse
// @Security BearerAuth
// @Router /evidence [post]
func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request format", "INVALID_JSON")
		return
	}

	submitter := c.GetString("address")
	item, err := h.service.Submit(c.Request.Context(), submitter, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, item)
}

// Get godoc
// @Summary Get an evidence item by id
// @Tags evidence
// @Produce json
// @Param id path string true "Evidence id"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /evidence/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}

	item, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, item)
}

// GetByHash godoc
// @Summary Look up an evidence item by content hash
// @Tags evidence
// @Produce json
// @Param hash path string true "Content hash"
// @Success 200 {object} response.SuccessResponse
// @Router /evidence/hash/{hash} [get]
func (h *Handler) GetByHash(c *gin.Context) {
	item, err := h.service.GetByHash(c.Request.Context(), c.Param("hash"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, item)
}

// List godoc
// @Summary List evidence items
// @Tags evidence
// @Produce json
// @Param status query string false "Filter by status"
// @Param kind query string false "Filter by kind"
// @Param submitter query string false "Filter by submitter"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.PaginatedResponse
// @Router /evidence [get]
func (h *Handler) List(c *gin.Context) {
	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "Invalid query parameters", "INVALID_QUERY")
		return
	}

	page, limit := pagination.FromQuery(c.Query("page"), c.Query("limit"))

	items, total, err := h.service.List(c.Request.Context(), query, (page-1)*limit, limit)
	if err != nil {
		response.InternalServerError(c, "Failed to fetch evidence", "FETCH_FAILED")
		return
	}
	if items == nil {
		items = []Item{}
	}

	response.Paginated(c, items, total, limit, page)
}

// Validate godoc
// @Summary Validate an evidence item
// @Tags evidence
// @Accept json
// @Produce json
// @Param id path string true "Evidence id"
// @Param request body ValidateRequest true "Verdict"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Security BearerAuth
// @Router /evidence/{id}/validate [post]
func (h *Handler) Validate(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}

	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request format", "INVALID_JSON")
		return
	}

	reviewer := c.GetString("address")
	item, err := h.service.Validate(c.Request.Context(), reviewer, id, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, item)
}

// Annotate attaches classifier metadata to an item (admin).
func (h *Handler) Annotate(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}

	var req AnnotateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request format", "INVALID_JSON")
		return
	}

	item, err := h.service.Annotate(c.Request.Context(), id, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, item)
}
