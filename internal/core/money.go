// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents so that sums never drift. Parsing and
// formatting go through shopspring/decimal.
package core

import (
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in euro cents.
type Money struct {
	Cents int64
}

var amountPattern = regexp.MustCompile(`^\d+(\.\d{0,2})?$`)

var maxCents = decimal.NewFromInt(math.MaxInt64)

// ParseAmount converts a user-entered decimal string into cents.
//
// Only plain positive numbers with at most two fractional digits are accepted:
//
//	ParseAmount("12.00") -> 1200
//	ParseAmount("0.50")  -> 50
//	ParseAmount("100")   -> 10000
//	ParseAmount("12.345") -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if !amountPattern.MatchString(s) {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(s, "."))
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Shift(2)
	if cents.GreaterThan(maxCents) {
		return Money{}, ErrInvalidAmount
	}
	m := Money{Cents: cents.IntPart()}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// MoneyFromDecimal rounds a decimal value to cents.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Round(2).Shift(2).IntPart()}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal returns the amount in euros as an exact decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with exactly two decimals, e.g. "19.99".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (m Money) IsZero() bool {
	return m.Cents == 0
}
