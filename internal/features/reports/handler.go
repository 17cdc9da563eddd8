package reports

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phishguard/phishguard-api/internal/pkg/pagination"
	"github.com/phishguard/phishguard-api/internal/pkg/response"
)

// Handler handles report HTTP requests
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func reportID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid report id", "INVALID_ID")
		return primitive.NilObjectID, false
	}
	return id, true
}

// Submit godoc
// @Summary Submit a stake-backed report
// @Tags reports
// @Accept json
// @Produce json
// @Param request body SubmitRequest true "Report details"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Security BearerAuth
// @Router /reports [post]
func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request format", "INVALID_JSON")
		return
	}

	submitter := c.GetString("address")
	report, err := h.service.Submit(c.Request.Context(), submitter, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, report)
}

// Get godoc
// @Summary Get a report by id
// @Tags reports
// @Produce json
// @Param id path string true "Report id"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /reports/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}

	report, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, report)
}

// List godoc
// @Summary List reports
// @Tags reports
// @Produce json
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by type"
// @Param submitter query string false "Filter by submitter"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.PaginatedResponse
// @Router /reports [get]
func (h *Handler) List(c *gin.Context) {
	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "Invalid query parameters", "INVALID_QUERY")
		return
	}

	page, limit := pagination.FromQuery(c.Query("page"), c.Query("limit"))

	reports, total, err := h.service.List(c.Request.Context(), query, (page-1)*limit, limit)
	if err != nil {
		response.InternalServerError(c, "Failed to fetch reports", "FETCH_FAILED")
		return
	}
	if reports == nil {
		reports = []Report{}
	}

	response.Paginated(c, reports, total, limit, page)
}

// Vote godoc
// @Summary Vote on a pending report
// @Tags reports
// @Accept json
// @Produce json
// @Param id path string true "Report id"
// @Param request body VoteRequest true "Verdict"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Security BearerAuth
// @Router /reports/{id}/vote [post]
func (h *Handler) Vote(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request format", "INVALID_JSON")
		return
	}

	voter := c.GetString("address")
	report, err := h.service.Vote(c.Request.Context(), voter, id, req.Verdict)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, report)
}

// Votes godoc
// @Summary List votes on a report
// @Tags reports
// @Produce json
// @Param id path string true "Report id"
// @Success 200 {object} response.SuccessResponse
// @Router /reports/{id}/votes [get]
func (h *Handler) Votes(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}

	votes, err := h.service.Votes(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if votes == nil {
		votes = []Vote{}
	}

	response.Success(c, votes)
}

// Dispute godoc
// @Summary Raise a dispute against a report
// @Tags reports
// @Accept json
// @Produce json
// @Param id path string true "Report id"
// @Param request body DisputeRequest true "Dispute reason"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Security BearerAuth
// @Router /reports/{id}/dispute [post]
func (h *Handler) Dispute(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}

	var req DisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request format", "INVALID_JSON")
		return
	}

	disputer := c.GetString("address")
	dispute, err := h.service.Dispute(c.Request.Context(), disputer, id, req.Reason)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, dispute)
}

// Disputes godoc
// @Summary List disputes on a report
// @Tags reports
// @Produce json
// @Param id path string true "Report id"
// @Success 200 {object} response.SuccessResponse
// @Router /reports/{id}/disputes [get]
func (h *Handler) Disputes(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}

	disputes, err := h.service.Disputes(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if disputes == nil {
		disputes = []Dispute{}
	}

	response.Success(c, disputes)
}

// ForceFinalize resolves a stuck report (admin).
func (h *Handler) ForceFinalize(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}

	var req ForceFinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request format", "INVALID_JSON")
		return
	}

	report, err := h.service.ForceFinalize(c.Request.Context(), id, req.Outcome, req.Reason)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, report)
}

// Refund expires a pending report and refunds all stakes (admin).
func (h *Handler) Refund(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}

	var body struct {
		Reason string `json:"reason" binding:"required,min=5,max=500"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "Invalid request format", "INVALID_JSON")
		return
	}

	report, err := h.service.Refund(c.Request.Context(), id, body.Reason)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, report)
}

// ExpireDue sweeps pending reports past their deadline (admin).
func (h *Handler) ExpireDue(c *gin.Context) {
	expired, err := h.service.ExpireDue(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{"expired": expired})
}
