// Package identity is the development stand-in for the external
// identity provider: it exchanges an account address for a bearer
// token. In production the provider issues tokens out of band and this
// surface is not mounted.
package identity

import (
	"github.com/gin-gonic/gin"

	"github.com/phishguard/phishguard-api/internal/pkg/response"
	"github.com/phishguard/phishguard-api/internal/pkg/token"
	"github.com/phishguard/phishguard-api/internal/pkg/validator"
)

// TokenRequest exchanges an account address for a bearer token.
type TokenRequest struct {
	Address string `json:"address" binding:"required"`
}

// RegisterRoutes registers the dev token endpoint.
func RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/auth/token", issueToken)
}

// issueToken godoc
// @Summary Issue a bearer token for an account address (development only)
// @Tags identity
// @Accept json
// @Produce json
// @Param request body TokenRequest true "Account address"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /auth/token [post]
func issueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request format", "INVALID_JSON")
		return
	}
	if !validator.IsValidAccountAddress(req.Address) {
		response.BadRequest(c, "Invalid account address", "INVALID_ADDRESS")
		return
	}

	jwt, err := token.GenerateToken(req.Address)
	if err != nil {
		response.InternalServerError(c, "Failed to issue token", "TOKEN_FAILED")
		return
	}

	response.Success(c, gin.H{"token": jwt, "address": req.Address})
}
