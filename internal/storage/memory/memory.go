// Package memory is an in-process transaction store used for tests and
// for running the server without a database file.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type Store struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]core.Transaction
}

var _ storage.Repository = (*Store)(nil)

func NewStore() *Store {
	return &Store{items: make(map[int64]core.Transaction)}
}

func (s *Store) Save(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.IsNew() {
		s.nextID++
		t.ID = s.nextID
	} else if t.ID > s.nextID {
		s.nextID = t.ID
	}
	s.items[t.ID] = t
	return t, nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.items[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, core.ErrNotFound)
	}
	return t, nil
}

func (s *Store) List(_ context.Context) ([]core.Transaction, error) {
	return s.filter(func(core.Transaction) bool { return true }), nil
}

func (s *Store) ListByMonth(_ context.Context, w core.MonthWindow) ([]core.Transaction, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return s.filter(func(t core.Transaction) bool { return w.Contains(t.Date) }), nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// filter returns matching records newest first, like the SQL store.
func (s *Store) filter(keep func(core.Transaction) bool) []core.Transaction {
	s.mu.RLock()
	out := make([]core.Transaction, 0, len(s.items))
	for _, t := range s.items {
		if keep(t) {
			out = append(out, t)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID > out[j].ID
	})
	return out
}
