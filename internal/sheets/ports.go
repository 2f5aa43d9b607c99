package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound ledger adapters. A ledger mirrors the transactions
// table, one row per record, keyed by transaction ID.
type (
	LedgerWriter interface {
		// Upsert writes t over its existing row, or appends a new row.
		Upsert(ctx context.Context, t core.Transaction) error
		// Remove clears the row of id. A missing row is not an error.
		Remove(ctx context.Context, id int64) error
	}

	LedgerReplacer interface {
		// ReplaceAll rewrites the whole ledger with txs in the given order.
		ReplaceAll(ctx context.Context, txs []core.Transaction) error
	}

	Ledger interface {
		LedgerWriter
		LedgerReplacer
	}
)
