// Package cli provides common initialization shared by the fintrack
// subcommands: logging, the SQLite store, the broker client and signal
// handling.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// SetupLogger builds the process logger from the configuration and installs
// it as the slog default. debug overrides the configured level.
func SetupLogger(cfg *config.Config, debug bool) *log.Logger {
	level := log.ParseLevel(cfg.LogLevel)
	if debug {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// OpenStore opens the database and runs migrations. A failure here is fatal
// for every subcommand.
func OpenStore(ctx context.Context, logger *log.Logger, dbPath string) (*storage.Store, error) {
	store, err := storage.Open(ctx, dbPath)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to open database",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeDatabase,
			"path", dbPath)
		return nil, err
	}
	return store, nil
}

// ConnectAMQP returns nil without error when no broker is configured.
func ConnectAMQP(ctx context.Context, logger *log.Logger, cfg *config.Config) (*amqp.Client, error) {
	if !cfg.AMQPEnabled() {
		logger.InfoContext(ctx, "AMQP disabled, daily totals are refreshed inline")
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("connect to AMQP: %w", err)
	}
	logger.InfoContext(ctx, "AMQP connected",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM, or when
// stop is called.
func SignalContext(parent context.Context, logger *log.Logger) (ctx context.Context, stop context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
