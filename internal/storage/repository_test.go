package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteSaveAndList(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	in := core.Transaction{
		Type:     core.Expense,
		Amount:   core.Money{Cents: 1999},
		Date:     core.EpochDay(2024, time.March, 15),
		Category: core.Groceries,
	}
	saved, err := repo.Save(ctx, in)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID == 0 {
		t.Fatal("expected id to be assigned")
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 record, got %d", len(all))
	}
	in.ID = saved.ID
	if all[0] != in {
		t.Fatalf("stored record %+v, want %+v", all[0], in)
	}
}

func TestSQLiteSaveReplacesByID(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	saved, err := repo.Save(ctx, core.Transaction{Type: core.Income, Amount: core.Money{Cents: 100000}, Date: core.EpochDay(2024, time.May, 1), Category: core.Salary})
	if err != nil {
		t.Fatal(err)
	}
	saved.Amount = core.Money{Cents: 120000}
	saved.Description = "raise"
	if _, err := repo.Save(ctx, saved); err != nil {
		t.Fatalf("replace: %v", err)
	}
	// same record saved twice is idempotent
	if _, err := repo.Save(ctx, saved); err != nil {
		t.Fatalf("replace again: %v", err)
	}

	got, err := repo.Get(ctx, saved.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got != saved {
		t.Fatalf("got %+v, want %+v", got, saved)
	}
	all, _ := repo.List(ctx)
	if len(all) != 1 {
		t.Fatalf("expected a single record after replace, got %d", len(all))
	}
}

func TestSQLiteDeleteMissingIsNoop(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	saved, err := repo.Save(ctx, core.Transaction{Type: core.Expense, Amount: core.Money{Cents: 5}, Date: core.EpochDay(2024, time.June, 3), Category: core.Other})
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("delete again: %v", err)
	}
	if err := repo.Delete(ctx, 4242); err != nil {
		t.Fatalf("delete unknown: %v", err)
	}
	if _, err := repo.Get(ctx, saved.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteListByMonth(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	dates := []int64{
		core.EpochDay(2024, time.February, 29),
		core.EpochDay(2024, time.March, 1),
		core.EpochDay(2024, time.March, 31),
		core.EpochDay(2024, time.April, 1),
	}
	for _, d := range dates {
		if _, err := repo.Save(ctx, core.Transaction{Type: core.Expense, Amount: core.Money{Cents: 100}, Date: d, Category: core.Rent}); err != nil {
			t.Fatal(err)
		}
	}

	w, _ := core.MonthFromIndex(2, 2024)
	got, err := repo.ListByMonth(ctx, w)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 march records, got %d", len(got))
	}
	for _, tx := range got {
		if !w.Contains(tx.Date) {
			t.Fatalf("record %+v outside window", tx)
		}
	}
}

func TestSQLiteRejectsInvalidRecord(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Save(context.Background(), core.Transaction{Type: "transfer", Amount: core.Money{Cents: 1}, Category: core.Other})
	if !errors.Is(err, core.ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}
