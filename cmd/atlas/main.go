package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/species-atlas/internal/adapter/httpapi"
	"github.com/couchcryptid/species-atlas/internal/config"
	"github.com/couchcryptid/species-atlas/internal/observability"
	"github.com/couchcryptid/species-atlas/internal/service"
	"github.com/couchcryptid/species-atlas/internal/store"
)

func main() {
	// Load .env if present; real environment variables win.
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	st := store.New()
	svc := service.New(st, metrics, logger, cfg.MaxUploadBytes, cfg.PlanCacheSize)
	srv := httpapi.NewServer(cfg, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	logger.Info("species atlas started",
		"addr", cfg.HTTPAddr,
		"max_upload_bytes", cfg.MaxUploadBytes,
		"plan_cache_size", cfg.PlanCacheSize,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
