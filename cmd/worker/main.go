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

	"github.com/kirillkom/jd-copilot/internal/bootstrap"
	"github.com/kirillkom/jd-copilot/internal/config"
	"github.com/kirillkom/jd-copilot/internal/core/domain"
	"github.com/kirillkom/jd-copilot/internal/observability/logging"
	"github.com/kirillkom/jd-copilot/internal/observability/metrics"
)

const batchTimeout = 5 * time.Minute

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLogger("jd-worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Logger:       logger,
		ConnectQueue: true,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("jd-worker")
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker_metrics_listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeChunkBatches(ctx, func(handlerCtx context.Context, batch domain.ChunkBatch) error {
		if !batch.PublishedAt.IsZero() {
			workerMetrics.ObserveQueueLag(time.Since(batch.PublishedAt))
		}
		workerMetrics.StartBatch()
		start := time.Now()

		indexCtx, cancel := context.WithTimeout(handlerCtx, batchTimeout)
		defer cancel()
		err := app.IndexUC.IndexBatch(indexCtx, batch)
		workerMetrics.FinishBatch(len(batch.Chunks), time.Since(start), err)
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
