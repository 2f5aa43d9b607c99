// Package cli holds the bootstrap steps shared by cmd/fintrack and
// cmd/fintrack-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT. It
// runs before validation, so an unknown level falls back to info with a
// warning.
func SetupLogger(cfg *config.Config) *log.Logger {
	logger, err := log.Setup(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logger.Warn("Falling back to info log level", "error", err)
	}
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() (*config.Config, *log.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg, logger
}

// InitRepository opens the store selected by DATA_BACKEND.
func InitRepository(ctx context.Context, cfg *config.Config) (storage.Repository, error) {
	switch cfg.DataBackend {
	case "memory":
		slog.WarnContext(ctx, "Using in-memory store, data is lost on restart", "component", log.ComponentStorage)
		return memory.NewStore(), nil
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite repository at %s: %w", cfg.SQLiteDBPath, err)
		}
		slog.InfoContext(ctx, "SQLite repository ready", "component", log.ComponentStorage, "path", cfg.SQLiteDBPath)
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
	}
}

// SessionSecret returns SESSION_SECRET. In dev mode an unset secret is
// replaced by a random one, so sessions do not survive a restart.
func SessionSecret(cfg *config.Config, logger *log.Logger) string {
	if cfg.SessionSecret != "" || !cfg.DevMode {
		return cfg.SessionSecret
	}
	logger.Warn("SESSION_SECRET not set, using a random secret for this process")
	return uuid.NewString() + uuid.NewString()
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
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

// GracefulShutdown runs each cleanup step under one shared timeout and
// reports every failure.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, steps ...func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for _, step := range steps {
		if step == nil {
			continue
		}
		if err := step(ctx); err != nil {
			logger.Error("Shutdown step failed", "error", err)
			errs = append(errs, err)
		}
	}

	if ctx.Err() != nil {
		logger.Warn("Shutdown timeout reached", "timeout", timeout)
	} else {
		logger.Info("Shutdown complete")
	}
	return errors.Join(errs...)
}
