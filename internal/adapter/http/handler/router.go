package handler

import (
	"escrow-settlement-engine/internal/adapter/http/middleware"
	"escrow-settlement-engine/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc      ports.LedgerService
	EscrowSvc      ports.EscrowService
	ReviewSvc      ports.ReviewService
	TokenSvc       ports.TokenService
	Subscriber     ports.BalanceSubscriber // nil = feed disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Everything under /api/v1 is service-to-service and requires a valid
	// caller token.
	auth := middleware.ServiceAuth(deps.TokenSvc, deps.Logger)
	v1 := r.Group("/api/v1", auth)

	walletHandler := NewWalletHandler(deps.LedgerSvc, deps.EscrowSvc)
	holdHandler := NewHoldHandler(deps.EscrowSvc)
	reviewHandler := NewReviewHandler(deps.ReviewSvc)

	v1.POST("/topups", walletHandler.TopUp)
	v1.POST("/adjustments", walletHandler.Adjust)

	wallets := v1.Group("/wallets")
	{
		wallets.GET("/:owner_ref", walletHandler.GetWallet)
		wallets.GET("/:owner_ref/transactions", walletHandler.ListTransactions)
		wallets.GET("/:owner_ref/holds", walletHandler.ListHolds)
	}
	if deps.Subscriber != nil {
		feedHandler := NewFeedHandler(deps.LedgerSvc, deps.Subscriber)
		wallets.GET("/:owner_ref/feed", feedHandler.Stream)
	}

	holds := v1.Group("/holds")
	{
		holds.POST("", holdHandler.CreateHold)
		holds.GET("/contract/:ref", holdHandler.GetHoldByContract)
		holds.GET("/:id", holdHandler.GetHold)
		holds.POST("/:id/dispute", holdHandler.DisputeHold)
	}

	v1.POST("/reviews", reviewHandler.ApplyDecision)

	return r
}
