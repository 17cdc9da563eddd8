package ledger

import (
	"github.com/gin-gonic/gin"

	"github.com/phishguard/phishguard-api/internal/pkg/pagination"
	"github.com/phishguard/phishguard-api/internal/pkg/response"
)

// Handler handles ledger-related HTTP requests
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Deposit godoc
// @Summary Deposit funds
// @Description Credit external funds to the authenticated account
// @Tags ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body DepositRequest true "Deposit"
// @Success 200 {object} response.SuccessResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /ledger/deposit [post]
func (h *Handler) Deposit(c *gin.Context) {
	address := c.GetString("address")

	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request format", "INVALID_JSON")
		return
	}

	account, err := h.service.Deposit(c.Request.Context(), address, req.Amount)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, account)
}

// GetAccount godoc
// @Summary Get own account
// @Tags ledger
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.SuccessResponse
// @Router /ledger/account [get]
func (h *Handler) GetAccount(c *gin.Context) {
	address := c.GetString("address")

	account, err := h.service.AccountOf(c.Request.Context(), address)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, account)
}

// Transfer godoc
// @Summary Transfer funds
// @Description Move spendable funds to another account
// @Tags ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TransferRequest true "Transfer"
// @Success 200 {object} response.SuccessResponse
// @Router /ledger/transfer [post]
func (h *Handler) Transfer(c *gin.Context) {
	address := c.GetString("address")

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request format", "INVALID_JSON")
		return
	}

	if err := h.service.Transfer(c.Request.Context(), address, req.To, req.Amount); err != nil {
		response.FromError(c, err)
		return
	}

	account, _ := h.service.AccountOf(c.Request.Context(), address)
	response.Success(c, account)
}

// Withdraw godoc
// @Summary Withdraw a stake
// @Description Unlock an active stake. Withdrawing before the lock period ends applies an early-withdrawal penalty credited to the reward pool.
// @Tags ledger
// @Produce json
// @Security BearerAuth
// @Param stakeId path string true "Stake ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /ledger/stakes/{stakeId}/withdraw [post]
func (h *Handler) Withdraw(c *gin.Context) {
	address := c.GetString("address")
	stakeID := c.Param("stakeId")

	returned, err := h.service.Withdraw(c.Request.Context(), address, stakeID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{"stakeId": stakeID, "returned": returned})
}

// ListStakes returns the caller's stake history.
func (h *Handler) ListStakes(c *gin.Context) {
	address := c.GetString("address")
	page, limit := pagination.FromQuery(c.Query("page"), c.Query("limit"))

	stakes, total, err := h.service.Stakes(c.Request.Context(), address, (page-1)*limit, limit)
	if err != nil {
		response.InternalServerError(c, "Failed to fetch stakes", "FETCH_FAILED")
		return
	}
	if stakes == nil {
		stakes = []Stake{}
	}

	response.Paginated(c, stakes, total, limit, page)
}

// GetPool godoc
// @Summary Reward pool balance
// @Tags ledger
// @Produce json
// @Success 200 {object} response.SuccessResponse
// @Router /ledger/pool [get]
func (h *Handler) GetPool(c *gin.Context) {
	balance, err := h.service.PoolBalance(c.Request.Context())
	if err != nil {
		response.InternalServerError(c, "Failed to fetch pool balance", "FETCH_FAILED")
		return
	}

	response.Success(c, gin.H{"balance": balance})
}

// GetConservation reports total engine value (admin, ops invariant check).
func (h *Handler) GetConservation(c *gin.Context) {
	snapshot, err := h.service.Snapshot(c.Request.Context())
	if err != nil {
		response.InternalServerError(c, "Failed to compute snapshot", "FETCH_FAILED")
		return
	}

	response.Success(c, snapshot)
}

// FundPool tops up the reward pool from the treasury (admin).
func (h *Handler) FundPool(c *gin.Context) {
	var req FundPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request format", "INVALID_JSON")
		return
	}

	if err := h.service.PoolCredit(c.Request.Context(), req.Amount); err != nil {
		response.FromError(c, err)
		return
	}

	balance, _ := h.service.PoolBalance(c.Request.Context())
	response.Success(c, gin.H{"balance": balance})
}
