package services

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/storage"
)

// Repository is the write side of the transaction store.
type Repository interface {
	Create(ctx context.Context, t core.Transaction) (int64, error)
	Get(ctx context.Context, id int64) (core.Transaction, error)
	Delete(ctx context.Context, id int64) error
	RefreshDailyTotal(ctx context.Context, date core.Date) error
}

// EventPublisher announces changed dates to the totals worker.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, event *amqp.TransactionEvent) error
}

// TransactionService orchestrates transaction writes across SQLite and AMQP.
// Without a publisher, or when publishing fails, the daily total of the
// affected date is refreshed inline so it never goes stale.
type TransactionService struct {
	repo      Repository
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *log.Logger
	events    *log.StructuredLogger
}

// NewTransactionService wires the service. publisher and m may be nil.
func NewTransactionService(repo Repository, publisher EventPublisher, m *metrics.Metrics, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentTransaction)
	return &TransactionService{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
	}
}

// Create validates and stores the transaction, then announces its date.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (int64, error) {
	t.Tags = core.NormalizeTags(t.Tags)
	if err := t.Validate(); err != nil {
		return 0, err
	}

	id, err := s.repo.Create(ctx, t)
	if err != nil {
		s.events.LogError(ctx, "Failed to save transaction", err, log.ErrorTypeDatabase, log.OpCreate,
			log.NewFields().WithTransaction(0, t.Title, t.Amount.String(), string(t.Kind), t.Date.String(), len(t.Tags)))
		return 0, fmt.Errorf("save transaction: %w", err)
	}
	s.metrics.TransactionWrite(log.OpCreate)
	s.events.LogTransactionCreated(ctx, id, t.Title, core.FormatAmount(t.Amount), string(t.Kind), t.Date.String(), len(t.Tags))

	s.announce(ctx, amqp.EventCreated, id, t.Date)
	return id, nil
}

// Delete removes the transaction. A missing id is not an error; existed
// reports whether anything was removed.
func (s *TransactionService) Delete(ctx context.Context, id int64) (existed bool, err error) {
	t, err := s.repo.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		s.events.LogTransactionDeleted(ctx, id, false)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load transaction: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.events.LogError(ctx, "Failed to delete transaction", err, log.ErrorTypeDatabase, log.OpDelete,
			log.NewFields().WithTransaction(id, t.Title, t.Amount.String(), string(t.Kind), t.Date.String(), len(t.Tags)))
		return false, fmt.Errorf("delete transaction: %w", err)
	}
	s.metrics.TransactionWrite(log.OpDelete)
	s.events.LogTransactionDeleted(ctx, id, true)

	s.announce(ctx, amqp.EventDeleted, id, t.Date)
	return true, nil
}

// announce publishes the change, falling back to an inline refresh. Neither
// path fails the request: the write itself already succeeded.
func (s *TransactionService) announce(ctx context.Context, eventType amqp.EventType, id int64, date core.Date) {
	if s.publisher != nil {
		event := amqp.NewTransactionEvent(eventType, id, date.String())
		err := s.publisher.PublishTransactionEvent(ctx, event)
		s.metrics.Event(log.OpPublish, err)
		if err == nil {
			return
		}
		s.logger.WarnContext(ctx, "Failed to publish transaction event, refreshing totals inline",
			log.FieldTransactionID, id,
			log.FieldEventType, eventType,
			log.FieldError, err)
	}

	if err := s.repo.RefreshDailyTotal(ctx, date); err != nil {
		s.logger.ErrorContext(ctx, "Failed to refresh daily total",
			log.FieldDate, date.String(),
			log.FieldError, err)
		return
	}
	s.metrics.TotalsRefreshed()
}
