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

	"github.com/boddenberg/categorizer-go/internal/app"
	"github.com/boddenberg/categorizer-go/internal/config"
	"github.com/boddenberg/categorizer-go/internal/handler"
	"github.com/boddenberg/categorizer-go/internal/infra/observability"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("ai_enabled", cfg.OpenAIAPIKey != ""),
		zap.String("min_ai_confidence", cfg.MinAIConfidence),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("cache_max_entries", cfg.CacheMaxEntries),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.String("memory_db_path", cfg.MemoryDBPath),
		zap.Int("batch_max_concurrency", cfg.BatchMaxConcurrency),
		zap.Duration("batch_pacing", cfg.BatchPacing),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "categorizer")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer func() { _ = shutdown(context.Background()) }()

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Services ---
	a, err := app.New(context.Background(), cfg, metrics, logger)
	if err != nil {
		logger.Fatal("failed to build services", zap.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing services", zap.Error(err))
		}
	}()

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Categorizer:   a.Categorizer,
		Batch:         a.Batch,
		Feedback:      a.Feedback,
		Analytics:     a.Analytics,
		Memory:        a.Memory,
		AIEnabled:     a.AIEnabled,
		BatchMaxItems: cfg.BatchMaxItems,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute, // batches with the LLM enabled are slow
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
		return
	}

	logger.Info("server stopped")
}
