package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/metrics"
)

// TotalsStore is the part of the store the worker writes to.
type TotalsStore interface {
	RefreshDailyTotal(ctx context.Context, date core.Date) error
	RebuildDailyTotals(ctx context.Context) (int, error)
}

// TotalsWorker keeps daily_totals in step with the transactions table.
type TotalsWorker struct {
	store   TotalsStore
	metrics *metrics.Metrics
}

func NewTotalsWorker(store TotalsStore, m *metrics.Metrics) *TotalsWorker {
	return &TotalsWorker{store: store, metrics: m}
}

// HandleEvent processes a single transaction event from AMQP. Returning an
// error makes the consumer requeue the message.
func (w *TotalsWorker) HandleEvent(ctx context.Context, event *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"event_id", event.ID,
		"event_type", event.Type,
		"transaction_id", event.TransactionID,
		"date", event.Date)

	date, err := core.ParseDate(event.Date)
	if err != nil {
		// Not retryable; drop it and let the next reconcile fix things.
		slog.ErrorContext(ctx, "Dropping event with bad date", "event_id", event.ID, "error", err)
		w.metrics.Event("consume", err)
		return nil
	}

	if err := w.store.RefreshDailyTotal(ctx, date); err != nil {
		w.metrics.Event("consume", err)
		return fmt.Errorf("refresh daily total: %w", err)
	}
	w.metrics.Event("consume", nil)
	w.metrics.TotalsRefreshed()
	return nil
}

// StartupRebuild recomputes every daily total. This is useful to recover from
// missed AMQP messages or worker downtime.
func (w *TotalsWorker) StartupRebuild(ctx context.Context) error {
	days, err := w.store.RebuildDailyTotals(ctx)
	if err != nil {
		return fmt.Errorf("startup rebuild: %w", err)
	}
	slog.InfoContext(ctx, "Daily totals rebuilt on startup", "days", days)
	return nil
}

// RunReconcile rebuilds all totals every interval until ctx is done.
func (w *TotalsWorker) RunReconcile(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.store.RebuildDailyTotals(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic reconcile failed", "error", err)
			}
		}
	}
}
