package form

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

type Saver interface {
	Save(ctx context.Context, t core.Transaction) (core.Transaction, error)
}

type Deleter interface {
	Delete(ctx context.Context, id int64) error
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used for the not-in-the-future rule.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Controller drives one add/edit dialog instance.
type Controller struct {
	saver     Saver
	onSuccess func(core.Transaction)
	now       func() time.Time

	state Dialog
	form  *Form
}

func NewController(saver Saver, onSuccess func(core.Transaction), opts ...Option) *Controller {
	o := buildOptions(opts)
	return &Controller{
		saver:     saver,
		onSuccess: onSuccess,
		now:       o.now,
		state:     Closed{},
	}
}

func (c *Controller) State() Dialog {
	return c.state
}

// Form is the live form, or nil while closed.
func (c *Controller) Form() *Form {
	return c.form
}

func (c *Controller) OpenAdd() {
	c.state = OpenAdd{}
	c.form = NewAddForm()
}

func (c *Controller) OpenEdit(t core.Transaction) {
	c.state = OpenEdit{Record: t}
	c.form = NewEditForm(t)
}

func (c *Controller) Close() {
	c.state = Closed{}
	c.form = nil
}

func (c *Controller) Set(field Field, value string) error {
	if c.form == nil {
		return ErrDialogClosed
	}
	return c.form.Set(field, value)
}

func (c *Controller) SetValues(v Values) error {
	if c.form == nil {
		return ErrDialogClosed
	}
	c.form.SetValues(v)
	return nil
}

func (c *Controller) CanSubmit() bool {
	return c.form != nil && c.form.CanSubmit(c.now())
}

// Submit saves the form. On success the dialog closes and the success
// callback runs after the store returned; on failure the dialog stays open.
func (c *Controller) Submit(ctx context.Context) (core.Transaction, error) {
	if c.form == nil {
		return core.Transaction{}, ErrDialogClosed
	}
	if !c.form.Dirty() {
		return core.Transaction{}, ErrPristine
	}
	rec, err := c.form.Record(c.now())
	if err != nil {
		return core.Transaction{}, err
	}

	saved, err := c.saver.Save(ctx, rec)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("submit transaction: %w", err)
	}

	c.Close()
	if c.onSuccess != nil {
		c.onSuccess(saved)
	}
	return saved, nil
}

// DeleteDialog confirms and performs the deletion of one record.
type DeleteDialog struct {
	deleter   Deleter
	onSuccess func(core.Transaction)
	state     Dialog
}

func NewDeleteDialog(deleter Deleter, onSuccess func(core.Transaction)) *DeleteDialog {
	return &DeleteDialog{deleter: deleter, onSuccess: onSuccess, state: Closed{}}
}

func (d *DeleteDialog) State() Dialog {
	return d.state
}

func (d *DeleteDialog) Open(t core.Transaction) {
	d.state = Confirming{Record: t}
}

func (d *DeleteDialog) Close() {
	d.state = Closed{}
}

func (d *DeleteDialog) Confirm(ctx context.Context) error {
	c, ok := d.state.(Confirming)
	if !ok {
		return ErrDialogClosed
	}
	if c.Record.IsNew() {
		return errors.New("cannot delete an unsaved transaction")
	}
	if err := d.deleter.Delete(ctx, c.Record.ID); err != nil {
		return fmt.Errorf("confirm delete: %w", err)
	}
	d.Close()
	if d.onSuccess != nil {
		d.onSuccess(c.Record)
	}
	return nil
}
