package sheets

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// DateLayout is how dates are written to the ledger.
const DateLayout = "2006-01-02"

// Column order of a ledger row; the ID in column A is the lookup key.
var Header = []any{"ID", "Date", "Type", "Category", "Amount", "Description"}

// Columns is the number of cells in a row.
const Columns = 6

var ErrMalformedRow = errors.New("malformed ledger row")

// ToRow renders t as ledger cells. The amount is a decimal string so the
// sheet never sees floating point.
func ToRow(t core.Transaction) []any {
	return []any{
		strconv.FormatInt(t.ID, 10),
		t.Time().Format(DateLayout),
		string(t.Type),
		string(t.Category),
		t.Amount.String(),
		t.Description,
	}
}

// RowID reads the ID cell. ok is false for headers, blanks and cleared rows.
func RowID(row []any) (id int64, ok bool) {
	if len(row) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(row[0])), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ParseRow converts ledger cells back into a transaction. Amounts written
// by hand with a decimal comma ("19,99") are accepted.
func ParseRow(row []any) (core.Transaction, error) {
	if len(row) < Columns-1 {
		return core.Transaction{}, fmt.Errorf("%w: %d cells", ErrMalformedRow, len(row))
	}
	cells := make([]string, Columns)
	for i := 0; i < Columns && i < len(row); i++ {
		cells[i] = strings.TrimSpace(fmt.Sprint(row[i]))
	}

	id, ok := RowID(row)
	if !ok {
		return core.Transaction{}, fmt.Errorf("%w: id %q", ErrMalformedRow, cells[0])
	}
	d, err := time.Parse(DateLayout, cells[1])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: date %q", ErrMalformedRow, cells[1])
	}
	typ, err := core.ParseType(cells[2])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	cat, err := core.ParseCategory(cells[3])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(cells[4], ",", "."))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: amount %q", ErrMalformedRow, cells[4])
	}

	t := core.Transaction{
		ID:          id,
		Type:        typ,
		Amount:      core.MoneyFromDecimal(amount),
		Date:        d.Unix(),
		Category:    cat,
		Description: cells[5],
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	return t, nil
}
