package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tablescope-inc/tablescope-engine/pkg/config"
	"github.com/tablescope-inc/tablescope-engine/pkg/database"
	"github.com/tablescope-inc/tablescope-engine/pkg/export"
	"github.com/tablescope-inc/tablescope-engine/pkg/handlers"
	"github.com/tablescope-inc/tablescope-engine/pkg/middleware"
	"github.com/tablescope-inc/tablescope-engine/pkg/parsers"
	"github.com/tablescope-inc/tablescope-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "test" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("database_path", cfg.DatabasePath),
		zap.Int64("max_upload_bytes", cfg.MaxUploadBytes))

	store, err := database.Open(cfg.DatabasePath, logger)
	if err != nil {
		logger.Fatal("Failed to open session store", zap.Error(err))
	}
	defer store.Close()

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAnalysisHandler(cfg, logger, store,
		parsers.NewFactory(logger),
		services.NewAnalysisOrchestrator(logger, cfg.AnalysisWorkers),
		export.NewExporter(logger)).RegisterRoutes(mux)

	server := &http.Server{
		Addr:    cfg.BindAddr + ":" + cfg.Port,
		Handler: middleware.RequestLogger(logger)(mux),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Starting tablescope-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
