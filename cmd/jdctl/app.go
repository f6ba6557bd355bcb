package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/kirillkom/jd-copilot/internal/bootstrap"
	"github.com/kirillkom/jd-copilot/internal/config"
	"github.com/kirillkom/jd-copilot/internal/observability/logging"
)

// loadApp wires the pipeline for one command. Logs go to stderr so stdout
// carries only command output.
func loadApp(ctx context.Context, opts bootstrap.Options) (*bootstrap.App, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg)
	opts.Logger = logger

	app, err := bootstrap.New(ctx, cfg, opts)
	if err != nil {
		return nil, nil, err
	}
	return app, logger, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logger := logging.NewJSONLoggerTo(os.Stderr, "jdctl", level)
	slog.SetDefault(logger)
	return logger
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
