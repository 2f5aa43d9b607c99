// Package memory is an in-process ledger for tests and for running the
// export worker without Google credentials.
package memory

import (
	"context"
	"sort"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

type Ledger struct {
	mu    sync.Mutex
	rows  map[int64]core.Transaction
	order []int64
	// Writes counts calls that changed or attempted to change the ledger.
	writes int
	// err, when set, is returned by every write.
	err error
}

var _ sheets.Ledger = (*Ledger)(nil)

func New() *Ledger {
	return &Ledger{rows: make(map[int64]core.Transaction)}
}

// FailWith makes subsequent writes return err. Pass nil to recover.
func (l *Ledger) FailWith(err error) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
}

func (l *Ledger) Upsert(_ context.Context, t core.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writes++
	if l.err != nil {
		return l.err
	}
	if _, ok := l.rows[t.ID]; !ok {
		l.order = append(l.order, t.ID)
	}
	l.rows[t.ID] = t
	return nil
}

func (l *Ledger) Remove(_ context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writes++
	if l.err != nil {
		return l.err
	}
	if _, ok := l.rows[id]; !ok {
		return nil
	}
	delete(l.rows, id)
	for i, v := range l.order {
		if v == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return nil
}

func (l *Ledger) ReplaceAll(_ context.Context, txs []core.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writes++
	if l.err != nil {
		return l.err
	}
	l.rows = make(map[int64]core.Transaction, len(txs))
	l.order = l.order[:0]
	for _, t := range txs {
		if _, dup := l.rows[t.ID]; !dup {
			l.order = append(l.order, t.ID)
		}
		l.rows[t.ID] = t
	}
	return nil
}

// Rows returns the ledger in row order.
func (l *Ledger) Rows() []core.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.Transaction, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.rows[id])
	}
	return out
}

// IDs returns the stored IDs in ascending order.
func (l *Ledger) IDs() []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]int64, 0, len(l.rows))
	for id := range l.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (l *Ledger) Writes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writes
}
