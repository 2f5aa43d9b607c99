package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseTypeAndCategory(t *testing.T) {
	if got, err := ParseType("Income"); err != nil || got != Income {
		t.Fatalf("ParseType(Income) = %q, %v", got, err)
	}
	if _, err := ParseType("transfer"); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
	for _, o := range CategoryOptions {
		if _, err := ParseCategory(o.Value); err != nil {
			t.Fatalf("ParseCategory(%q): %v", o.Value, err)
		}
	}
	if _, err := ParseCategory("travel"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestOptionOrder(t *testing.T) {
	want := []string{"groceries", "salary", "rent", "savings", "investments", "other"}
	if len(CategoryOptions) != len(want) {
		t.Fatalf("got %d category options", len(CategoryOptions))
	}
	for i, w := range want {
		if CategoryOptions[i].Value != w {
			t.Fatalf("option %d = %q, want %q", i, CategoryOptions[i].Value, w)
		}
	}
	if TypeOptions[0].Value != "income" || TypeOptions[1].Value != "expense" {
		t.Fatalf("unexpected type options %+v", TypeOptions)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Type:     Expense,
		Amount:   Money{Cents: 1999},
		Date:     EpochDay(2024, time.March, 15),
		Category: Groceries,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Type: "", Amount: Money{Cents: 1}, Category: Rent},
		{Type: Income, Amount: Money{Cents: 1}, Category: "travel"},
		{Type: Income, Amount: Money{Cents: 0}, Category: Rent},
		{ID: -1, Type: Income, Amount: Money{Cents: 1}, Category: Rent},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMonthWindow(t *testing.T) {
	w, err := MonthFromIndex(2, 2024)
	if err != nil {
		t.Fatal(err)
	}
	if w.Month != time.March || w.Year != 2024 {
		t.Fatalf("MonthFromIndex(2, 2024) = %+v", w)
	}
	if _, err := MonthFromIndex(12, 2024); err == nil {
		t.Fatal("expected error for index 12")
	}

	if !w.Contains(EpochDay(2024, time.March, 1)) || !w.Contains(EpochDay(2024, time.March, 31)) {
		t.Fatal("window should contain first and last day of March")
	}
	if w.Contains(EpochDay(2024, time.April, 1)) || w.Contains(EpochDay(2023, time.March, 15)) {
		t.Fatal("window should not contain other months or years")
	}

	start, end := w.Bounds()
	if start != EpochDay(2024, time.March, 1) || end != EpochDay(2024, time.April, 1) {
		t.Fatalf("Bounds() = %d, %d", start, end)
	}
	if w.Key() != "2024-03" {
		t.Fatalf("Key() = %q", w.Key())
	}
	if p := (MonthWindow{Year: 2024, Month: time.January}).Prev(); p.Year != 2023 || p.Month != time.December {
		t.Fatalf("Prev() = %+v", p)
	}
}

func TestMonthWindowHasPrevStopsAtMinYear(t *testing.T) {
	first := MonthWindow{Year: MinYear, Month: time.January}
	if first.HasPrev() {
		t.Fatalf("January %d should have no previous month", MinYear)
	}
	if err := first.Prev().Validate(); err == nil {
		t.Fatalf("month before January %d should not validate", MinYear)
	}
	if w := (MonthWindow{Year: MinYear, Month: time.February}); !w.HasPrev() || w.Prev().Validate() != nil {
		t.Fatalf("February %d should link back to a valid January", MinYear)
	}
}
