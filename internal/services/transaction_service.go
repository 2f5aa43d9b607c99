package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/live"
	"fintrack/internal/storage"
)

// ChangePublisher forwards committed changes to out-of-process consumers.
type ChangePublisher interface {
	PublishTransactionChanged(ctx context.Context, id int64, op string, version uint64) error
}

// TransactionService is the single write path for transactions. Every
// successful write wakes the live queries and, when a publisher is set,
// announces the change to the export worker.
type TransactionService struct {
	repo      storage.Repository
	hub       *live.Hub
	publisher ChangePublisher
	summaries cache.Cache[core.Summary]
	tracer    trace.Tracer
}

// NewTransactionService wires the store and hub. publisher may be nil.
func NewTransactionService(repo storage.Repository, hub *live.Hub, publisher ChangePublisher) *TransactionService {
	if hub == nil {
		hub = live.NewHub()
	}
	return &TransactionService{
		repo:      repo,
		hub:       hub,
		publisher: publisher,
		tracer:    otel.Tracer("fintrack/services"),
	}
}

func (s *TransactionService) Hub() *live.Hub {
	return s.hub
}

// Save inserts or replaces a transaction.
func (s *TransactionService) Save(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "transactions.save")
	defer span.End()

	saved, err := s.repo.Save(ctx, t)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	span.SetAttributes(
		attribute.Int64("transaction.id", saved.ID),
		attribute.Bool("transaction.created", t.IsNew()),
	)

	change := s.hub.Publish(live.Change{Op: live.OpUpsert, ID: saved.ID, Date: saved.Date})
	s.publish(ctx, saved.ID, amqp.OpUpsert, change.Version)

	return saved, nil
}

// Delete removes a transaction. Deleting a missing ID succeeds.
func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "transactions.delete", trace.WithAttributes(attribute.Int64("transaction.id", id)))
	defer span.End()

	if err := s.repo.Delete(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return fmt.Errorf("delete transaction: %w", err)
	}

	change := s.hub.Publish(live.Change{Op: live.OpDelete, ID: id})
	s.publish(ctx, id, amqp.OpDelete, change.Version)
	return nil
}

func (s *TransactionService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return s.repo.Get(ctx, id)
}

func (s *TransactionService) List(ctx context.Context) ([]core.Transaction, error) {
	return s.repo.List(ctx)
}

func (s *TransactionService) ListByMonth(ctx context.Context, w core.MonthWindow) ([]core.Transaction, error) {
	return s.repo.ListByMonth(ctx, w)
}

// UseSummaryCache caches month summaries in c. Any change on the hub,
// local or relayed, clears the whole cache.
func (s *TransactionService) UseSummaryCache(c cache.Cache[core.Summary]) func() {
	s.summaries = c
	return s.hub.OnChange(func(live.Change) {
		c.Clear()
	})
}

// MonthSummary aggregates the transactions dated within w.
func (s *TransactionService) MonthSummary(ctx context.Context, w core.MonthWindow) (core.Summary, error) {
	var gen uint64
	if s.summaries != nil {
		if sum, ok := s.summaries.Get(w.Key()); ok {
			return sum, nil
		}
		// Writes clear the cache after commit; a summary whose query began
		// before that Clear is not stored.
		gen = s.summaries.Generation()
	}
	txs, err := s.repo.ListByMonth(ctx, w)
	if err != nil {
		return core.Summary{}, fmt.Errorf("summarize %s: %w", w.Key(), err)
	}
	sum := core.Summarize(txs)
	if s.summaries != nil {
		s.summaries.SetIfGeneration(w.Key(), sum, gen)
	}
	return sum, nil
}

// WatchAll emits the full transaction list now and after every change.
func (s *TransactionService) WatchAll(ctx context.Context) <-chan live.Result[[]core.Transaction] {
	return live.Watch(ctx, s.hub, s.repo.List)
}

// WatchMonth emits the transactions of w now and after every change.
func (s *TransactionService) WatchMonth(ctx context.Context, w core.MonthWindow) <-chan live.Result[[]core.Transaction] {
	return live.Watch(ctx, s.hub, func(ctx context.Context) ([]core.Transaction, error) {
		return s.repo.ListByMonth(ctx, w)
	})
}

// WatchSummary emits the aggregate of w now and after every change.
func (s *TransactionService) WatchSummary(ctx context.Context, w core.MonthWindow) <-chan live.Result[core.Summary] {
	return live.Watch(ctx, s.hub, func(ctx context.Context) (core.Summary, error) {
		return s.MonthSummary(ctx, w)
	})
}

func (s *TransactionService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *TransactionService) publish(ctx context.Context, id int64, op string, version uint64) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No change publisher configured, skipping", "id", id, "op", op)
		return
	}
	// The write is committed; a failed notification must not fail the request.
	if err := s.publisher.PublishTransactionChanged(ctx, id, op, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction change", "id", id, "op", op, "error", err)
	}
}

// Close closes the store and the publisher when it holds a connection.
func (s *TransactionService) Close() error {
	var errs []error

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}
	return nil
}
