package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

func TestInitRepository(t *testing.T) {
	ctx := context.Background()

	repo, err := InitRepository(ctx, &config.Config{DataBackend: "memory"})
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	if _, ok := repo.(*memory.Store); !ok {
		t.Errorf("got %T, want *memory.Store", repo)
	}

	repo, err = InitRepository(ctx, &config.Config{DataBackend: "sqlite", SQLiteDBPath: filepath.Join(t.TempDir(), "fintrack.db")})
	if err != nil {
		t.Fatalf("sqlite backend: %v", err)
	}
	defer repo.Close()
	if _, ok := repo.(*storage.SQLiteRepository); !ok {
		t.Errorf("got %T, want *storage.SQLiteRepository", repo)
	}

	if _, err := InitRepository(ctx, &config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestGracefulShutdown(t *testing.T) {
	logger := log.New(log.Config{Output: &bytes.Buffer{}})
	var order []string

	err := GracefulShutdown(logger, time.Second,
		func(context.Context) error { order = append(order, "http"); return nil },
		nil,
		func(context.Context) error { order = append(order, "store"); return errors.New("busy") },
	)

	if err == nil || err.Error() != "busy" {
		t.Errorf("err = %v, want busy", err)
	}
	if len(order) != 2 || order[0] != "http" || order[1] != "store" {
		t.Errorf("order = %v", order)
	}
}

func TestSessionSecret(t *testing.T) {
	logger := log.New(log.Config{Output: &bytes.Buffer{}})

	if got := SessionSecret(&config.Config{SessionSecret: "fixed"}, logger); got != "fixed" {
		t.Errorf("got %q, want configured secret", got)
	}
	if got := SessionSecret(&config.Config{}, logger); got != "" {
		t.Errorf("got %q, want empty outside dev mode", got)
	}

	a := SessionSecret(&config.Config{DevMode: true}, logger)
	b := SessionSecret(&config.Config{DevMode: true}, logger)
	if len(a) < 32 {
		t.Errorf("dev secret too short: %d bytes", len(a))
	}
	if a == b {
		t.Error("dev secrets should differ per call")
	}
}
