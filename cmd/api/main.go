package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atm-engine/config"
	"atm-engine/internal/adapter/bank"
	httpHandler "atm-engine/internal/adapter/http/handler"
	pgStorage "atm-engine/internal/adapter/storage/postgres"
	redisStorage "atm-engine/internal/adapter/storage/redis"
	"atm-engine/internal/core/atm"
	"atm-engine/internal/core/ports"
	"atm-engine/internal/service"
	"atm-engine/pkg/logger"

	"github.com/gin-gonic/gin"
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
	gin.SetMode(cfg.Server.Mode)

	unit, err := cfg.ATM.Unit()
	if err != nil {
		log.Fatal().Err(err).Str("currency", cfg.ATM.Currency).Msg("Invalid ATM currency")
	}
	initialPacks, err := cfg.ATM.InitialPacks()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid initial deposit")
	}
	if cfg.JWT.Secret == "" || cfg.Admin.PasswordHash == "" {
		log.Fatal().Msg("ATM_JWT_SECRET and ATM_ADMIN_PASSWORD_HASH must be set")
	}

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("currency", unit.String()).
		Msg("Starting ATM engine")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	if err := pgStorage.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database schema")
	}

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// Initialize repositories and stores
	withdrawalRepo := pgStorage.NewWithdrawalRepo(pool)
	depositRepo := pgStorage.NewDepositRepo(pool)
	transactor := pgStorage.NewTransactor(pool)
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Bank client and machine
	gateway := bank.NewGateway(bank.Config{
		BaseURL:      cfg.Bank.BaseURL,
		APIKey:       cfg.Bank.APIKey,
		Timeout:      cfg.Bank.Timeout,
		MaxRetries:   cfg.Bank.MaxRetries,
		RetryBackoff: cfg.Bank.RetryBackoff,
	}, nil, logger.Component(log, "bank"))
	machine := atm.NewMachine(gateway, unit, logger.Component(log, "atm"))

	// Initialize services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	authSvc := service.NewAuthService(cfg.Admin.Username, cfg.Admin.PasswordHash, hashSvc, tokenSvc)
	depositStore := service.NewDepositStore(depositRepo, transactor, cfg.ATM.PersistDeposit)
	depositSvc := service.NewDepositService(machine, depositStore, initialPacks, log)
	withdrawalSvc := service.NewWithdrawalService(
		machine,
		withdrawalRepo,
		depositStore,
		idempotencyCache,
		cfg.Idempotency.TTL,
		log,
	)

	if _, err := depositSvc.Restore(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to restore deposit")
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WithdrawalSvc:  withdrawalSvc,
		DepositSvc:     depositSvc,
		AuthSvc:        authSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{
			pgStorage.NewHealthCheck(pool),
			redisStorage.NewHealthCheck(rdb),
			gateway,
		},
		Logger: log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
