package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/receipt"
	"fintrack/internal/services"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := appConfig(cmd)
			if err != nil {
				return err
			}
			return serveRun(cmd.Context(), cfg, appLogger(cmd))
		},
	}
}

func serveRun(parent context.Context, cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext(parent, logger)
	defer stop()

	store, err := cli.OpenStore(ctx, logger, cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	amqpClient, err := cli.ConnectAMQP(ctx, logger, cfg)
	if err != nil {
		// The API still works without the broker; totals are refreshed inline.
		logger.WarnContext(ctx, "Continuing without AMQP", log.FieldError, err)
	}
	var publisher services.EventPublisher
	if amqpClient != nil {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	var recognizer receipt.Recognizer
	if cfg.GeminiAPIKey != "" {
		g, err := receipt.NewGeminiRecognizer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.WarnContext(ctx, "Receipt image recognition disabled", log.FieldError, err)
		} else {
			recognizer = g
		}
	} else {
		logger.InfoContext(ctx, "No Gemini API key, receipt uploads accept text only")
	}

	m := metrics.New()
	svc := services.NewTransactionService(store, publisher, m, logger)
	srv := apphttp.NewServer(apphttp.Options{
		Addr:            cfg.Addr(),
		Reader:          store,
		Writer:          svc,
		Scanner:         receipt.NewScanner(recognizer),
		Metrics:         m,
		Logger:          logger,
		Currency:        cfg.Currency,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimit:       cfg.RateLimit,
		RateLimitWindow: cfg.RateLimitWindow,
		CacheSize:       cfg.CacheSize,
		CacheTTL:        cfg.CacheTTL,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "Starting fintrack server",
			"addr", srv.Addr,
			"db_path", cfg.DBPath,
			"amqp", publisher != nil,
			"ocr", recognizer != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.ShutdownTimeout)
		defer cancel()
		logger.InfoContext(shutdownCtx, "Shutting down server", log.FieldOperation, log.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.ErrorContext(ctx, "Server error", log.FieldError, err)
		return err
	}
	logger.InfoContext(ctx, "Server stopped gracefully")
	return nil
}
