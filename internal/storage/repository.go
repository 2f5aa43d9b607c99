package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Save(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	if t.IsNew() {
		id, err := r.queries.InsertTransaction(ctx, InsertTransactionParams{
			Type:        string(t.Type),
			Amount:      t.Amount.Cents,
			Date:        t.Date,
			Category:    string(t.Category),
			Description: t.Description,
		})
		if err != nil {
			return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
		}
		t.ID = id
	} else {
		if err := r.queries.ReplaceTransaction(ctx, fromCore(t)); err != nil {
			return core.Transaction{}, fmt.Errorf("replace transaction %d: %w", t.ID, err)
		}
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"type", t.Type,
		"amount_cents", t.Amount.Cents,
		"category", t.Category,
		"date", t.Date)

	return t, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if n == 0 {
		slog.DebugContext(ctx, "Delete of missing transaction ignored", "id", id)
		return nil
	}
	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id)
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return toCore(row), nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return toCoreSlice(rows), nil
}

func (r *SQLiteRepository) ListByMonth(ctx context.Context, w core.MonthWindow) ([]core.Transaction, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	start, end := w.Bounds()
	rows, err := r.queries.ListTransactionsBetween(ctx, ListTransactionsBetweenParams{Start: start, End: end})
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", w.Key(), err)
	}
	return toCoreSlice(rows), nil
}

func fromCore(t core.Transaction) Transaction {
	return Transaction{
		ID:          t.ID,
		Type:        string(t.Type),
		Amount:      t.Amount.Cents,
		Date:        t.Date,
		Category:    string(t.Category),
		Description: t.Description,
	}
}

func toCore(row Transaction) core.Transaction {
	return core.Transaction{
		ID:          row.ID,
		Type:        core.Type(row.Type),
		Amount:      core.Money{Cents: row.Amount},
		Date:        row.Date,
		Category:    core.Category(row.Category),
		Description: row.Description,
	}
}

func toCoreSlice(rows []Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCore(row))
	}
	return out
}
