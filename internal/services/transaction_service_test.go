package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"

	"github.com/shopspring/decimal"
)

type fakeRepo struct {
	rows       map[int64]core.Transaction
	nextID     int64
	createErr  error
	deleteErr  error
	refreshed  []string
	refreshErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[int64]core.Transaction{}}
}

func (f *fakeRepo) Create(_ context.Context, t core.Transaction) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextID++
	t.ID = f.nextID
	f.rows[t.ID] = t
	return t.ID, nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (core.Transaction, error) {
	t, ok := f.rows[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, storage.ErrNotFound)
	}
	return t, nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeRepo) RefreshDailyTotal(_ context.Context, d core.Date) error {
	f.refreshed = append(f.refreshed, d.String())
	return f.refreshErr
}

type fakePublisher struct {
	events []*amqp.TransactionEvent
	err    error
}

func (f *fakePublisher) PublishTransactionEvent(_ context.Context, e *amqp.TransactionEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Level: slog.LevelError, Output: io.Discard})
}

func lunch() core.Transaction {
	return core.Transaction{
		Title:  "Lunch",
		Amount: decimal.RequireFromString("12.50"),
		Kind:   core.Expense,
		Date:   core.NewDate(2025, 6, 1),
		Tags:   []string{"Food", " Food", ""},
	}
}

func TestTransactionService_CreatePublishes(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	svc := NewTransactionService(repo, pub, nil, quietLogger())

	id, err := svc.Create(context.Background(), lunch())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !reflect.DeepEqual(repo.rows[id].Tags, []string{"Food"}) {
		t.Errorf("tags should be normalized, got %v", repo.rows[id].Tags)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected one event, got %d", len(pub.events))
	}
	e := pub.events[0]
	if e.Type != amqp.EventCreated || e.TransactionID != id || e.Date != "2025-06-01" {
		t.Errorf("unexpected event %+v", e)
	}
	if len(repo.refreshed) != 0 {
		t.Errorf("worker owns the refresh when publishing works, got %v", repo.refreshed)
	}
}

func TestTransactionService_CreateWithoutPublisherRefreshesInline(t *testing.T) {
	repo := newFakeRepo()
	svc := NewTransactionService(repo, nil, nil, quietLogger())

	if _, err := svc.Create(context.Background(), lunch()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !reflect.DeepEqual(repo.refreshed, []string{"2025-06-01"}) {
		t.Errorf("expected inline refresh, got %v", repo.refreshed)
	}
}

func TestTransactionService_PublishFailureFallsBack(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{err: amqp.ErrCircuitOpen}
	svc := NewTransactionService(repo, pub, nil, quietLogger())

	if _, err := svc.Create(context.Background(), lunch()); err != nil {
		t.Fatalf("publish failure must not fail the request: %v", err)
	}
	if len(repo.refreshed) != 1 {
		t.Errorf("expected inline refresh after publish failure, got %v", repo.refreshed)
	}
}

func TestTransactionService_CreateValidation(t *testing.T) {
	repo := newFakeRepo()
	svc := NewTransactionService(repo, nil, nil, quietLogger())

	bad := lunch()
	bad.Kind = "gift"
	_, err := svc.Create(context.Background(), bad)
	if !errors.Is(err, core.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
	if len(repo.rows) != 0 {
		t.Error("invalid transaction must not be stored")
	}
}

func TestTransactionService_CreateStorageError(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = fmt.Errorf("create transaction: %w", storage.ErrWrite)
	pub := &fakePublisher{}
	svc := NewTransactionService(repo, pub, nil, quietLogger())

	_, err := svc.Create(context.Background(), lunch())
	if !errors.Is(err, storage.ErrWrite) {
		t.Fatalf("expected ErrWrite, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Error("nothing should be published for a failed write")
	}
}

func TestTransactionService_Delete(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	svc := NewTransactionService(repo, pub, nil, quietLogger())
	ctx := context.Background()

	id, _ := svc.Create(ctx, lunch())
	existed, err := svc.Delete(ctx, id)
	if err != nil || !existed {
		t.Fatalf("Delete() = %v, %v", existed, err)
	}
	if len(pub.events) != 2 || pub.events[1].Type != amqp.EventDeleted || pub.events[1].Date != "2025-06-01" {
		t.Fatalf("expected delete event with the row's date, got %+v", pub.events)
	}

	existed, err = svc.Delete(ctx, 99999)
	if err != nil || existed {
		t.Fatalf("missing id should be a silent success, got %v, %v", existed, err)
	}
	if len(pub.events) != 2 {
		t.Error("no event for a missing id")
	}
}

func TestTransactionService_DeleteStorageError(t *testing.T) {
	repo := newFakeRepo()
	svc := NewTransactionService(repo, nil, nil, quietLogger())
	ctx := context.Background()

	id, _ := svc.Create(ctx, lunch())
	repo.deleteErr = fmt.Errorf("delete: %w", storage.ErrWrite)
	if _, err := svc.Delete(ctx, id); !errors.Is(err, storage.ErrWrite) {
		t.Fatalf("expected ErrWrite, got %v", err)
	}
}
