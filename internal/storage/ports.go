package storage

import (
	"context"

	"fintrack/internal/core"
)

// Ports implemented by every transaction store.
type (
	TransactionSaver interface {
		// Save inserts a record when its ID is zero, otherwise replaces the
		// record with that ID. It returns the stored record.
		Save(ctx context.Context, t core.Transaction) (core.Transaction, error)
	}

	TransactionDeleter interface {
		// Delete removes the record; a missing ID is not an error.
		Delete(ctx context.Context, id int64) error
	}

	TransactionReader interface {
		Get(ctx context.Context, id int64) (core.Transaction, error)
		List(ctx context.Context) ([]core.Transaction, error)
		ListByMonth(ctx context.Context, w core.MonthWindow) ([]core.Transaction, error)
	}

	Repository interface {
		TransactionSaver
		TransactionDeleter
		TransactionReader
		Ping(ctx context.Context) error
		Close() error
	}
)
