package ledger

import (
	"github.com/gin-gonic/gin"

	"github.com/phishguard/phishguard-api/internal/middleware"
)

// RegisterRoutes registers the ledger routes.
func RegisterRoutes(router *gin.RouterGroup, admin *gin.RouterGroup, service *Service) {
	handler := NewHandler(service)

	auth := middleware.Auth()

	group := router.Group("/ledger")
	{
		group.POST("/deposit", auth, handler.Deposit)
		group.GET("/account", auth, handler.GetAccount)
		group.POST("/transfer", auth, handler.Transfer)
		group.GET("/stakes", auth, handler.ListStakes)
		group.POST("/stakes/:stakeId/withdraw", auth, handler.Withdraw)

		group.GET("/pool", handler.GetPool)
	}

	admin.GET("/ledger/conservation", handler.GetConservation)
	admin.POST("/ledger/pool/fund", handler.FundPool)
}
