package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/storage"

	"go.uber.org/goleak"
)

func quietLogger() *log.Logger {
	return log.New(log.Config{Level: slog.LevelError, Output: io.Discard})
}

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := config.Default()
	cfg.LogLevel = "warn"

	logger := SetupLogger(cfg, false)
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}

	logger = SetupLogger(cfg, true)
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("--debug should enable debug logging")
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	store, err := OpenStore(ctx, quietLogger(), filepath.Join(t.TempDir(), "Storage", "finance.db"))
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	_ = store.Close()

	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "finance.db"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenStore(ctx, quietLogger(), filepath.Join(dir, "finance.db")); !errors.Is(err, storage.ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
}

func TestConnectAMQPDisabled(t *testing.T) {
	client, err := ConnectAMQP(context.Background(), quietLogger(), config.Default())
	if err != nil || client != nil {
		t.Fatalf("ConnectAMQP() = %v, %v; want nil, nil", client, err)
	}
}

func TestSignalContextStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, stop := SignalContext(context.Background(), quietLogger())
	stop()
	<-ctx.Done()
}
