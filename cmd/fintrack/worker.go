package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/worker"
)

func workerCommand() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume transaction events and keep daily totals up to date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := appConfig(cmd)
			if err != nil {
				return err
			}
			return workerRun(cmd.Context(), cfg, appLogger(cmd), metricsAddr)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9091")
	return cmd
}

func workerRun(parent context.Context, cfg *config.Config, logger *log.Logger, metricsAddr string) error {
	if !cfg.AMQPEnabled() {
		return fmt.Errorf("worker needs an AMQP URL (set AMQP_URL)")
	}
	logger = logger.WithComponent(log.ComponentWorker)

	ctx, stop := cli.SignalContext(parent, logger)
	defer stop()

	store, err := cli.OpenStore(ctx, logger, cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := cli.ConnectAMQP(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	m := metrics.New()
	w := worker.NewTotalsWorker(store, m)

	// Catch up on anything missed while the worker was down.
	if err := w.StartupRebuild(ctx); err != nil {
		logger.ErrorContext(ctx, "Startup rebuild failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.ConsumeTransactionEvents(gctx, w.HandleEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		w.RunReconcile(gctx, cfg.ReconcileInterval)
		return nil
	})
	if metricsAddr != "" {
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           m.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.InfoContext(gctx, "Serving worker metrics", "addr", metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	logger.InfoContext(ctx, "Worker started",
		"queue", cfg.AMQPQueue,
		"reconcile_interval", cfg.ReconcileInterval)
	if err := g.Wait(); err != nil {
		logger.ErrorContext(ctx, "Worker stopped with error", log.FieldError, err)
		return err
	}
	logger.InfoContext(ctx, "Worker stopped gracefully")
	return nil
}
