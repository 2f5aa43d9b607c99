// Package view turns stored transactions into display strings for the
// grid and the dashboard. Nothing here is persisted.
package view

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"fintrack/internal/core"
)

const (
	CurrencySymbol = "€"
	DateLayout     = "02/01/2006"
	NotProvided    = "N/A"
)

// FormatAmount renders cents with the currency prefix and two decimals,
// e.g. "€19.99" or "-€3.50".
func FormatAmount(m core.Money) string {
	if m.Cents < 0 {
		return "-" + CurrencySymbol + core.Money{Cents: -m.Cents}.String()
	}
	return CurrencySymbol + m.String()
}

// FormatDate renders epoch seconds as DD/MM/YYYY in UTC.
func FormatDate(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(DateLayout)
}

// Capitalize upper-cases the first letter: "groceries" -> "Groceries".
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func DescriptionOrNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotProvided
	}
	return s
}
