package form

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/storage/memory"
)

var fixedNow = time.Date(2024, time.March, 20, 15, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func validValues() Values {
	return Values{Type: "expense", Amount: "19.99", Date: "2024-03-15", Category: "groceries"}
}

func TestValidateAmounts(t *testing.T) {
	cases := []struct {
		amount string
		ok     bool
	}{
		{"12.00", true},
		{"0.50", true},
		{"100", true},
		{"12.345", false},
		{"0", false},
		{"-3", false},
		{"abc", false},
		{"", false},
	}
	for _, tc := range cases {
		f := NewAddForm()
		v := validValues()
		v.Amount = tc.amount
		f.SetValues(v)
		_, bad := f.Validate(fixedNow)[FieldAmount]
		assert.Equal(t, !tc.ok, bad, "amount %q", tc.amount)
	}
}

func TestValidateRequiredAndEnums(t *testing.T) {
	f := NewAddForm()
	errs := f.Validate(fixedNow)
	assert.Contains(t, errs, FieldType)
	assert.Contains(t, errs, FieldAmount)
	assert.Contains(t, errs, FieldDate)
	assert.Contains(t, errs, FieldCategory)
	assert.NotContains(t, errs, FieldDescription)

	f.SetValues(Values{Type: "transfer", Amount: "1", Date: "2024-03-01", Category: "travel"})
	errs = f.Validate(fixedNow)
	assert.Contains(t, errs, FieldType)
	assert.Contains(t, errs, FieldCategory)
}

func TestValidateDate(t *testing.T) {
	f := NewAddForm()
	v := validValues()

	v.Date = "2024-03-20" // today
	f.SetValues(v)
	assert.NotContains(t, f.Validate(fixedNow), FieldDate)

	v.Date = "2024-03-21"
	f.SetValues(v)
	assert.Equal(t, "Date cannot be in the future", f.Validate(fixedNow)[FieldDate])

	v.Date = "15/03/2024"
	f.SetValues(v)
	assert.Contains(t, f.Validate(fixedNow), FieldDate)

	v.Date = "1969-12-31"
	f.SetValues(v)
	assert.Equal(t, "Date cannot be before 1970-01-01", f.Validate(fixedNow)[FieldDate])

	v.Date = MinDate
	f.SetValues(v)
	assert.NotContains(t, f.Validate(fixedNow), FieldDate)
}

func TestEditFormPristineUntilChanged(t *testing.T) {
	rec := core.Transaction{ID: 4, Type: core.Expense, Amount: core.Money{Cents: 1999}, Date: core.EpochDay(2024, time.March, 15), Category: core.Groceries}
	f := NewEditForm(rec)

	assert.Equal(t, "2024-03-15", f.Values().Date)
	assert.Equal(t, "19.99", f.Values().Amount)
	assert.False(t, f.Dirty())
	assert.False(t, f.CanSubmit(fixedNow))

	// resubmitting identical values keeps it pristine
	f.SetValues(ValuesFrom(rec))
	assert.False(t, f.CanSubmit(fixedNow))

	for _, field := range []Field{FieldType, FieldAmount, FieldDate, FieldCategory, FieldDescription} {
		g := NewEditForm(rec)
		alt := map[Field]string{
			FieldType:        "income",
			FieldAmount:      "20.00",
			FieldDate:        "2024-03-14",
			FieldCategory:    "other",
			FieldDescription: "weekly shop",
		}[field]
		require.NoError(t, g.Set(field, alt))
		assert.True(t, g.CanSubmit(fixedNow), "changing %s should enable submit", field)
	}
}

func TestRecordConvertsDisplayDateToEpoch(t *testing.T) {
	f := NewAddForm()
	f.SetValues(validValues())
	rec, err := f.Record(fixedNow)
	require.NoError(t, err)
	assert.Equal(t, core.EpochDay(2024, time.March, 15), rec.Date)
	assert.Equal(t, int64(1999), rec.Amount.Cents)
	assert.Equal(t, int64(0), rec.ID)
	assert.Equal(t, "", rec.Description)
}

func TestFormatAmountInput(t *testing.T) {
	assert.Equal(t, "12.50", FormatAmountInput("12.5"))
	assert.Equal(t, "100.00", FormatAmountInput("100"))
	assert.Equal(t, "12.345", FormatAmountInput("12.345"))
}

func TestControllerAddFlow(t *testing.T) {
	store := memory.NewStore()
	var succeeded []core.Transaction
	c := NewController(store, func(t core.Transaction) { succeeded = append(succeeded, t) }, WithClock(clock))

	assert.IsType(t, Closed{}, c.State())
	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrDialogClosed)

	c.OpenAdd()
	assert.IsType(t, OpenAdd{}, c.State())
	assert.False(t, c.CanSubmit())

	_, err = c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrPristine)

	require.NoError(t, c.Set(FieldAmount, "12.345"))
	_, err = c.Submit(context.Background())
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, FieldAmount)
	assert.IsType(t, OpenAdd{}, c.State())

	require.NoError(t, c.SetValues(validValues()))
	saved, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)
	assert.IsType(t, Closed{}, c.State())
	assert.Nil(t, c.Form())
	require.Len(t, succeeded, 1)
	assert.Equal(t, saved, succeeded[0])
}

func TestControllerEditKeepsID(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	rec, err := store.Save(ctx, core.Transaction{Type: core.Expense, Amount: core.Money{Cents: 1999}, Date: core.EpochDay(2024, time.March, 15), Category: core.Groceries})
	require.NoError(t, err)

	c := NewController(store, nil, WithClock(clock))
	c.OpenEdit(rec)
	assert.Equal(t, OpenEdit{Record: rec}, c.State())

	_, err = c.Submit(ctx)
	assert.ErrorIs(t, err, ErrPristine)

	require.NoError(t, c.Set(FieldDescription, "market"))
	saved, err := c.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, saved.ID)

	all, _ := store.List(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, "market", all[0].Description)
}

type brokenSaver struct{}

func (brokenSaver) Save(context.Context, core.Transaction) (core.Transaction, error) {
	return core.Transaction{}, errors.New("storage unavailable")
}

func TestControllerStaysOpenOnStorageError(t *testing.T) {
	called := false
	c := NewController(brokenSaver{}, func(core.Transaction) { called = true }, WithClock(clock))
	c.OpenAdd()
	require.NoError(t, c.SetValues(validValues()))

	_, err := c.Submit(context.Background())
	require.Error(t, err)
	assert.IsType(t, OpenAdd{}, c.State())
	assert.False(t, called)
}

func TestDeleteDialog(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	rec, _ := store.Save(ctx, core.Transaction{Type: core.Income, Amount: core.Money{Cents: 100}, Date: 0, Category: core.Salary})

	var deleted []int64
	d := NewDeleteDialog(store, func(t core.Transaction) { deleted = append(deleted, t.ID) })
	assert.ErrorIs(t, d.Confirm(ctx), ErrDialogClosed)

	d.Open(rec)
	assert.True(t, IsOpen(d.State()))
	require.NoError(t, d.Confirm(ctx))
	assert.False(t, IsOpen(d.State()))
	assert.Equal(t, []int64{rec.ID}, deleted)

	// deleting a record that is already gone still succeeds
	d.Open(rec)
	require.NoError(t, d.Confirm(ctx))
	assert.Len(t, deleted, 2)
}
