package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries holds the SQL statements for the transactions table.
type Queries struct {
	db DBTX
}

// Transaction is a row of the transactions table.
type Transaction struct {
	ID          int64
	Type        string
	Amount      int64
	Date        int64
	Category    string
	Description string
}

const insertTransaction = `
INSERT INTO transactions (type, amount, date, category, description)
VALUES (?, ?, ?, ?, ?)
RETURNING id`

type InsertTransactionParams struct {
	Type        string
	Amount      int64
	Date        int64
	Category    string
	Description string
}

func (q *Queries) InsertTransaction(ctx context.Context, arg InsertTransactionParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertTransaction,
		arg.Type,
		arg.Amount,
		arg.Date,
		arg.Category,
		arg.Description,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const replaceTransaction = `
INSERT OR REPLACE INTO transactions (id, type, amount, date, category, description)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) ReplaceTransaction(ctx context.Context, arg Transaction) error {
	_, err := q.db.ExecContext(ctx, replaceTransaction,
		arg.ID,
		arg.Type,
		arg.Amount,
		arg.Date,
		arg.Category,
		arg.Description,
	)
	return err
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getTransaction = `
SELECT id, type, amount, date, category, description
FROM transactions
WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.Type,
		&i.Amount,
		&i.Date,
		&i.Category,
		&i.Description,
	)
	return i, err
}

const listTransactions = `
SELECT id, type, amount, date, category, description
FROM transactions
ORDER BY date DESC, id DESC`

func (q *Queries) ListTransactions(ctx context.Context) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

const listTransactionsBetween = `
SELECT id, type, amount, date, category, description
FROM transactions
WHERE date >= ? AND date < ?
ORDER BY date DESC, id DESC`

type ListTransactionsBetweenParams struct {
	Start int64
	End   int64
}

func (q *Queries) ListTransactionsBetween(ctx context.Context, arg ListTransactionsBetweenParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsBetween, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]Transaction, error) {
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.Type,
			&i.Amount,
			&i.Date,
			&i.Category,
			&i.Description,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
