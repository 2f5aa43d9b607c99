// Package worker keeps the Google Sheets ledger in step with the database.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// ExportWorker applies change notifications to the ledger. Messages only
// carry an ID, so every upsert re-reads the current record; replaying or
// reordering messages converges on the database state.
type ExportWorker struct {
	repo   storage.TransactionReader
	ledger sheets.Ledger
}

func NewExportWorker(repo storage.TransactionReader, ledger sheets.Ledger) *ExportWorker {
	return &ExportWorker{repo: repo, ledger: ledger}
}

// HandleChange processes one message. A returned error requeues it.
func (w *ExportWorker) HandleChange(ctx context.Context, msg *amqp.TransactionChangedMessage) error {
	slog.InfoContext(ctx, "Processing transaction change", "id", msg.ID, "op", msg.Op, "version", msg.Version)

	switch msg.Op {
	case amqp.OpUpsert:
		t, err := w.repo.Get(ctx, msg.ID)
		if errors.Is(err, core.ErrNotFound) {
			// Deleted after this message was sent.
			return w.remove(ctx, msg.ID)
		}
		if err != nil {
			return fmt.Errorf("load transaction %d: %w", msg.ID, err)
		}
		if err := w.ledger.Upsert(ctx, t); err != nil {
			return fmt.Errorf("export transaction %d: %w", msg.ID, err)
		}
		slog.InfoContext(ctx, "Transaction exported", "id", msg.ID)
		return nil

	case amqp.OpDelete:
		return w.remove(ctx, msg.ID)

	default:
		slog.WarnContext(ctx, "Dropping change with unknown op", "id", msg.ID, "op", msg.Op)
		return nil
	}
}

func (w *ExportWorker) remove(ctx context.Context, id int64) error {
	if err := w.ledger.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove transaction %d from ledger: %w", id, err)
	}
	slog.InfoContext(ctx, "Transaction removed from ledger", "id", id)
	return nil
}

// Reconcile rewrites the ledger from the database, oldest first. It repairs
// anything lost while the worker or the broker was down.
func (w *ExportWorker) Reconcile(ctx context.Context) error {
	txs, err := w.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].Date != txs[j].Date {
			return txs[i].Date < txs[j].Date
		}
		return txs[i].ID < txs[j].ID
	})
	if err := w.ledger.ReplaceAll(ctx, txs); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	slog.InfoContext(ctx, "Ledger reconciled", "count", len(txs))
	return nil
}

// RunReconcileLoop reconciles once at startup and then every interval until
// ctx is done. Failures are logged and retried on the next tick.
func (w *ExportWorker) RunReconcileLoop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid reconcile interval %v", interval)
	}
	if err := w.Reconcile(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup reconcile failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Reconcile(ctx); err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "Periodic reconcile failed", "error", err)
			}
		}
	}
}
