package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "github.com/kirillkom/jd-copilot/internal/adapters/http"
	"github.com/kirillkom/jd-copilot/internal/bootstrap"
	"github.com/kirillkom/jd-copilot/internal/config"
	"github.com/kirillkom/jd-copilot/internal/core/ports"
	"github.com/kirillkom/jd-copilot/internal/observability/logging"
	"github.com/kirillkom/jd-copilot/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLogger("jd-api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiMetrics := metrics.NewHTTPServerMetrics("jd-api")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Logger:           logger,
		Metrics:          apiMetrics,
		EnsureCollection: true,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	var placements ports.PlacementReader
	if app.Store != nil {
		placements = app.Store
	}
	router := httpadapter.NewRouter(cfg, app.QueryUC, placements, apiMetrics).
		WithResumeMatcher(app.ResumeUC).
		Handler()
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}
