package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"escrow-settlement-engine/config"
	httpHandler "escrow-settlement-engine/internal/adapter/http/handler"
	"escrow-settlement-engine/internal/adapter/identity"
	pgStorage "escrow-settlement-engine/internal/adapter/storage/postgres"
	redisStorage "escrow-settlement-engine/internal/adapter/storage/redis"
	"escrow-settlement-engine/internal/core/ports"
	"escrow-settlement-engine/internal/service"
	"escrow-settlement-engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Escrow Settlement Engine")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	holdRepo := pgStorage.NewHoldRepo(pool)
	idempotencyRepo := pgStorage.NewIdempotencyRepo(pool)
	revocationRepo := pgStorage.NewRevocationRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	balanceFeed := redisStorage.NewBalanceFeed(rdb, log)

	// Initialize core services
	tokenSvc := service.NewTokenService(cfg.JWT)

	var revoker ports.AccessRevoker
	if cfg.Revocation.IdentityURL != "" {
		revoker = identity.NewRevoker(cfg.Revocation.IdentityURL, tokenSvc, &http.Client{Timeout: 10 * time.Second}, log)
	} else {
		revoker = identity.NewNoopRevoker(log)
	}

	// Initialize business services
	ledgerSvc := service.NewLedgerService(walletRepo, txRepo, idempotencyRepo, idempotencyCache, transactor, balanceFeed, log)
	escrowSvc := service.NewEscrowService(walletRepo, txRepo, holdRepo, idempotencyRepo, idempotencyCache, transactor, balanceFeed, log)
	settlementSvc := service.NewSettlementService(walletRepo, txRepo, holdRepo, idempotencyRepo, idempotencyCache, transactor, balanceFeed, cfg.Settlement, log)
	revocationSvc := service.NewRevocationService(revocationRepo, revoker, cfg.Revocation, log)
	reviewSvc := service.NewReviewService(holdRepo, walletRepo, settlementSvc, revocationSvc, log)

	// Background re-dispatch of pending access revocations
	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()
	go revocationSvc.RunRequeueLoop(loopCtx)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		EscrowSvc:      escrowSvc,
		ReviewSvc:      reviewSvc,
		TokenSvc:       tokenSvc,
		Subscriber:     balanceFeed,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	stopLoop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
