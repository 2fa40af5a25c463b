package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/finvault/vaultledger/internal/adapter/http"
	"github.com/finvault/vaultledger/internal/adapter/http/handler"
	postgresRepo "github.com/finvault/vaultledger/internal/adapter/repository/postgres"
	redisRepo "github.com/finvault/vaultledger/internal/adapter/repository/redis"
	"github.com/finvault/vaultledger/internal/infrastructure/config"
	"github.com/finvault/vaultledger/internal/infrastructure/eventpublisher"
	"github.com/finvault/vaultledger/internal/infrastructure/logger"
	"github.com/finvault/vaultledger/internal/infrastructure/metrics"
	"github.com/finvault/vaultledger/internal/infrastructure/postgres"
	"github.com/finvault/vaultledger/internal/infrastructure/redis"
	"github.com/finvault/vaultledger/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	log.Logger = logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	ctx := context.Background()

	// Run migrations
	if cfg.AutoMigrate {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	entryRepo := postgresRepo.NewEntryRepository(pool)
	derivedRepo := postgresRepo.NewDerivedStateRepository(pool)
	scopeLocker := postgresRepo.NewScopeLocker()
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	cache := redisRepo.NewCache(redisClient)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	idGen := postgresRepo.NewULIDGenerator()

	ledgerMetrics := metrics.New()

	// Initialize use cases
	ledgerUC := usecase.NewLedgerUseCase(txManager, entryRepo, derivedRepo, scopeLocker, idGen).
		WithOutbox(outboxRepo).
		WithCache(cache).
		WithMetrics(ledgerMetrics)
	queryUC := usecase.NewQueryUseCase(entryRepo, derivedRepo).
		WithCache(cache, cfg.DerivedCacheTTL)
	reconcileUC := usecase.NewReconciliationUseCase(entryRepo, derivedRepo)

	// Initialize handlers
	entryHandler := handler.NewEntryHandler(ledgerUC, queryUC).
		WithRetrier(postgresRepo.NewRetrier(log.Logger))
	vaultHandler := handler.NewVaultHandler(queryUC, reconcileUC)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		EntryHandler:     entryHandler,
		VaultHandler:     vaultHandler,
		HealthHandler:    healthHandler,
		IdempotencyStore: idempotencyStore,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", router)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start outbox publisher
	publisherCtx, stopPublisher := context.WithCancel(ctx)
	defer stopPublisher()

	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  eventpublisher.NewLogPublisher(log.Logger),
		Logger:     log.Logger,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
	})
	go func() {
		if err := publisher.Start(publisherCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	stopPublisher()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
