package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	httpAdapter "github.com/fincasa/fincasa/internal/adapter/http"
	"github.com/fincasa/fincasa/internal/adapter/http/handler"
	postgresRepo "github.com/fincasa/fincasa/internal/adapter/repository/postgres"
	redisRepo "github.com/fincasa/fincasa/internal/adapter/repository/redis"
	"github.com/fincasa/fincasa/internal/infrastructure/clock"
	"github.com/fincasa/fincasa/internal/infrastructure/config"
	"github.com/fincasa/fincasa/internal/infrastructure/logger"
	"github.com/fincasa/fincasa/internal/infrastructure/metrics"
	"github.com/fincasa/fincasa/internal/infrastructure/postgres"
	redisInfra "github.com/fincasa/fincasa/internal/infrastructure/redis"
	"github.com/fincasa/fincasa/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	log.Logger = appLogger

	ctx := context.Background()

	// Run migrations
	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Connect to Redis. The service degrades gracefully without it: no
	// summary cache, no idempotency keys.
	var (
		cache            usecase.Cache
		idempotencyStore usecase.IdempotencyStore
	)
	redisClient, err := redisInfra.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, running without cache and idempotency")
		redisClient = nil
	} else {
		defer redisClient.Close()
		cache = redisRepo.NewCache(redisClient)
		idempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
		log.Info().Msg("connected to redis")
	}

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	entryRepo := postgresRepo.NewEntryRepository(pool)
	accessGate := postgresRepo.NewAccessGate(pool)
	accountDir := postgresRepo.NewAccountDirectory(pool)
	categoryDir := postgresRepo.NewCategoryDirectory(pool)
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier()

	sysClock := clock.System{}
	appMetrics := metrics.New()

	// Initialize use cases
	entryUC := usecase.NewEntryUseCase(txManager, entryRepo, accessGate, accountDir, categoryDir, idGen, sysClock, appMetrics)
	seriesUC := usecase.NewSeriesUseCase(txManager, entryRepo, accessGate, accountDir, categoryDir, idGen, sysClock, appMetrics)
	reportUC := usecase.NewReportUseCase(entryRepo, accessGate, cache, retrier, appMetrics)

	// Initialize handlers
	entryHandler := handler.NewEntryHandler(entryUC, sysClock)
	seriesHandler := handler.NewSeriesHandler(seriesUC, sysClock)
	reportHandler := handler.NewReportHandler(reportUC)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		EntryHandler:     entryHandler,
		SeriesHandler:    seriesHandler,
		ReportHandler:    reportHandler,
		HealthHandler:    healthHandler,
		IdempotencyStore: idempotencyStore,
		Logger:           appLogger,
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
