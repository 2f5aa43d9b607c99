// Package form holds the add/edit and delete dialogs for transactions.
package form

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"fintrack/internal/core"
)

// DateLayout is the wire format of date inputs.
const DateLayout = "2006-01-02"

// MinDate is the earliest accepted date, the first day of core.MinYear.
const MinDate = "1970-01-01"

type Field string

const (
	FieldType        Field = "type"
	FieldAmount      Field = "amount"
	FieldDate        Field = "date"
	FieldCategory    Field = "category"
	FieldDescription Field = "description"
)

var (
	ErrPristine     = errors.New("no changes to save")
	ErrDialogClosed = errors.New("dialog is not open")
	ErrUnknownField = errors.New("unknown field")
)

// Values are the raw strings typed into the form.
type Values struct {
	Type        string
	Amount      string
	Date        string
	Category    string
	Description string
}

// ValuesFrom pre-populates a form from a stored record.
func ValuesFrom(t core.Transaction) Values {
	return Values{
		Type:        string(t.Type),
		Amount:      t.Amount.String(),
		Date:        t.Time().Format(DateLayout),
		Category:    string(t.Category),
		Description: t.Description,
	}
}

func (v Values) normalized() Values {
	return Values{
		Type:        strings.TrimSpace(v.Type),
		Amount:      strings.TrimSpace(v.Amount),
		Date:        strings.TrimSpace(v.Date),
		Category:    strings.TrimSpace(v.Category),
		Description: strings.TrimSpace(v.Description),
	}
}

// FieldErrors maps a field to its inline message.
type FieldErrors map[Field]string

type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		keys = append(keys, string(f))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[Field(k)])
	}
	return "invalid transaction: " + strings.Join(parts, "; ")
}

// Form tracks field values against the values it was opened with.
type Form struct {
	id      int64
	initial Values
	values  Values
}

func NewAddForm() *Form {
	return &Form{}
}

func NewEditForm(t core.Transaction) *Form {
	v := ValuesFrom(t)
	return &Form{id: t.ID, initial: v, values: v}
}

// ID is the record being edited, or zero in add mode.
func (f *Form) ID() int64 {
	return f.id
}

func (f *Form) Values() Values {
	return f.values
}

func (f *Form) Set(field Field, value string) error {
	switch field {
	case FieldType:
		f.values.Type = value
	case FieldAmount:
		f.values.Amount = value
	case FieldDate:
		f.values.Date = value
	case FieldCategory:
		f.values.Category = value
	case FieldDescription:
		f.values.Description = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

func (f *Form) SetValues(v Values) {
	f.values = v
}

// Dirty reports whether any field differs from the opening values.
func (f *Form) Dirty() bool {
	return f.values.normalized() != f.initial.normalized()
}

// Validate returns the per-field problems; an empty map means valid.
func (f *Form) Validate(now time.Time) FieldErrors {
	v := f.values.normalized()
	errs := FieldErrors{}

	if v.Type == "" {
		errs[FieldType] = "Type is required"
	} else if _, err := core.ParseType(v.Type); err != nil {
		errs[FieldType] = "Type must be income or expense"
	}

	if v.Amount == "" {
		errs[FieldAmount] = "Amount is required"
	} else if _, err := core.ParseAmount(v.Amount); err != nil {
		errs[FieldAmount] = "Amount must be a positive number with at most two decimals"
	}

	if v.Date == "" {
		errs[FieldDate] = "Date is required"
	} else if d, err := time.Parse(DateLayout, v.Date); err != nil {
		errs[FieldDate] = "Date must be a valid date"
	} else if d.After(core.DayStart(now.UTC())) {
		errs[FieldDate] = "Date cannot be in the future"
	} else if d.Year() < core.MinYear {
		errs[FieldDate] = "Date cannot be before " + MinDate
	}

	if v.Category == "" {
		errs[FieldCategory] = "Category is required"
	} else if _, err := core.ParseCategory(v.Category); err != nil {
		errs[FieldCategory] = "Category is not recognised"
	}

	return errs
}

// CanSubmit is true only for a modified, valid form.
func (f *Form) CanSubmit(now time.Time) bool {
	return f.Dirty() && len(f.Validate(now)) == 0
}

// Record converts the form into a transaction, keeping the ID in edit mode.
func (f *Form) Record(now time.Time) (core.Transaction, error) {
	if errs := f.Validate(now); len(errs) > 0 {
		return core.Transaction{}, &ValidationError{Fields: errs}
	}
	v := f.values.normalized()
	typ, _ := core.ParseType(v.Type)
	cat, _ := core.ParseCategory(v.Category)
	amount, _ := core.ParseAmount(v.Amount)
	d, _ := time.Parse(DateLayout, v.Date)

	return core.Transaction{
		ID:          f.id,
		Type:        typ,
		Amount:      amount,
		Date:        d.Unix(),
		Category:    cat,
		Description: v.Description,
	}, nil
}

// FormatAmountInput pads a valid amount to two decimals ("12.5" -> "12.50")
// and leaves anything else untouched for the validator to report.
func FormatAmountInput(s string) string {
	m, err := core.ParseAmount(s)
	if err != nil {
		return s
	}
	return m.String()
}
