package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Type tells whether a transaction adds to or takes from the balance.
type Type string

const (
	Income  Type = "income"
	Expense Type = "expense"
)

// Category is the fixed set of buckets a transaction can be filed under.
type Category string

const (
	Groceries   Category = "groceries"
	Salary      Category = "salary"
	Rent        Category = "rent"
	Savings     Category = "savings"
	Investments Category = "investments"
	Other       Category = "other"
)

// Option is a {key, value} pair used to build select inputs.
type Option struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Option lists are declared once in display order.
var (
	TypeOptions = []Option{
		{Key: "Income", Value: string(Income)},
		{Key: "Expense", Value: string(Expense)},
	}

	CategoryOptions = []Option{
		{Key: "Groceries", Value: string(Groceries)},
		{Key: "Salary", Value: string(Salary)},
		{Key: "Rent", Value: string(Rent)},
		{Key: "Savings", Value: string(Savings)},
		{Key: "Investments", Value: string(Investments)},
		{Key: "Other", Value: string(Other)},
	}
)

var (
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrFutureDate      = errors.New("date is in the future")
	ErrNotFound        = errors.New("transaction not found")
)

// Transaction is a single income or expense record.
// ID is zero until the store assigns one.
type Transaction struct {
	ID          int64
	Type        Type
	Amount      Money
	Date        int64 // seconds since epoch, UTC midnight by convention
	Category    Category
	Description string
}

func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

func (t Type) Valid() bool {
	return t == Income || t == Expense
}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

func (c Category) Valid() bool {
	for _, o := range CategoryOptions {
		if string(c) == o.Value {
			return true
		}
	}
	return false
}

// IsNew reports whether the record has never been persisted.
func (t Transaction) IsNew() bool {
	return t.ID == 0
}

// Time returns the transaction date as a UTC time.
func (t Transaction) Time() time.Time {
	return time.Unix(t.Date, 0).UTC()
}

// Validate checks the invariants every persisted record must hold.
// The not-in-the-future rule belongs to data entry and is checked by the form.
func (t Transaction) Validate() error {
	if t.ID < 0 {
		return fmt.Errorf("invalid id %d", t.ID)
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if !t.Category.Valid() {
		return ErrInvalidCategory
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	return nil
}

// DayStart truncates a time to midnight UTC of the same calendar day.
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EpochDay converts a calendar date to the stored epoch seconds.
func EpochDay(year int, month time.Month, day int) int64 {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix()
}
