package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/phishguard/phishguard-api/internal/config"
	"github.com/phishguard/phishguard-api/internal/features/blacklist"
	"github.com/phishguard/phishguard-api/internal/features/events"
	"github.com/phishguard/phishguard-api/internal/features/evidence"
	"github.com/phishguard/phishguard-api/internal/features/identity"
	"github.com/phishguard/phishguard-api/internal/features/ledger"
	"github.com/phishguard/phishguard-api/internal/features/reports"
	"github.com/phishguard/phishguard-api/internal/features/reputation"
	"github.com/phishguard/phishguard-api/internal/features/validators"
	"github.com/phishguard/phishguard-api/internal/middleware"
	"github.com/phishguard/phishguard-api/internal/pkg/ratelimit"
)

// SetupRoutes wires repositories, services and routes. The event stream
// is built first since every other feature publishes into it; ledger
// comes next because reputation derives staked points from its stake
// index.
func SetupRoutes(router *gin.Engine, db *mongo.Database, cfg *config.Config) {
	api := router.Group("/api/v1")

	// Privileged surface: shared key plus its own IP rate limit,
	// independent of the public traffic limits.
	adminLimiter := ratelimit.New(60, time.Minute)
	adminLimiter.StartCleanup(5 * time.Minute)
	admin := api.Group("/admin")
	admin.Use(middleware.AdminAuth(cfg), ratelimit.Middleware(adminLimiter))

	eventsRepo := events.NewRepository(db)
	eventsSvc := events.NewService(eventsRepo)

	ledgerRepo := ledger.NewRepository(db)
	ledgerSvc := ledger.NewService(ledgerRepo, eventsSvc, cfg.EarlyWithdrawPenaltyBps, cfg.StakeLockPeriod)

	reputationRepo := reputation.NewRepository(db)
	reputationSvc := reputation.NewService(reputationRepo, ledgerSvc, eventsSvc)

	validatorsRepo := validators.NewRepository(db)
	blacklistRepo := blacklist.NewRepository(db)

	submitLimiter := ratelimit.New(cfg.MaxSubmissionsPerWindow, cfg.RateLimitWindow)
	submitLimiter.StartCleanup(cfg.RateLimitWindow)

	reportsRepo := reports.NewRepository(db)
	reportsSvc := reports.NewService(reportsRepo, ledgerSvc, reputationSvc, validatorsRepo, blacklistRepo, submitLimiter, eventsSvc, reports.Params{
		ReportStake:     cfg.ReportStake,
		VotingStake:     cfg.VotingStake,
		ReporterReward:  cfg.ReporterReward,
		ValidatorReward: cfg.ValidatorReward,
		MinValidators:   cfg.MinValidators,
		VotingPeriod:    cfg.VotingPeriod,
		DisputeWindow:   cfg.DisputeWindow,
		ReportFloor:     cfg.ReportFloor,
		StakeFloor:      cfg.StakeFloor,
	})

	evidenceRepo := evidence.NewRepository(db)
	evidenceSvc := evidence.NewService(evidenceRepo, reputationSvc, eventsSvc, evidence.Params{
		MaxFileSize:             cfg.MaxFileSize,
		MinValidationReputation: cfg.MinValidationReputation,
		MinValidationsRequired:  cfg.MinValidationsRequired,
		ValidationTimeout:       cfg.ValidationTimeout,
	})

	if cfg.AppEnv != "production" {
		identity.RegisterRoutes(api)
	}

	events.RegisterRoutes(api, eventsSvc)
	ledger.RegisterRoutes(api, admin, ledgerSvc)
	reputation.RegisterRoutes(api, admin, reputationSvc, eventsSvc)
	validators.RegisterRoutes(api, admin, validatorsRepo)
	reports.RegisterRoutes(api, admin, reportsSvc)
	evidence.RegisterRoutes(api, admin, evidenceSvc)
	blacklist.RegisterRoutes(api, admin, blacklistRepo, eventsSvc)
}
