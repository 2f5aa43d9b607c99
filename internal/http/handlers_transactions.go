package http

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"fintrack/internal/core"
	"fintrack/internal/form"
	"fintrack/internal/live"
	"fintrack/internal/log"
	"fintrack/internal/view"
)

const (
	msgNoChanges  = "No changes to save"
	msgIncomplete = "Fill in the required fields"
	msgSaveFailed = "Could not save the transaction. Please try again."
	msgDelFailed  = "Could not delete the transaction. Please try again."
	msgGone       = "That transaction no longer exists"
)

// dialogView is the render input of the "dialog" and "dialog_actions"
// templates.
type dialogView struct {
	Open            bool
	Title           string
	FormError       string
	ID              int64
	Values          form.Values
	Errors          map[string]string
	TypeOptions     []core.Option
	CategoryOptions []core.Option
	MinDate         string
	MaxDate         string
	Hint            string
	CanSubmit       bool
}

type deleteView struct {
	Open  bool
	Row   view.Row
	Error string
}

type transactionsPage struct {
	Grid         view.Grid
	Dialog       dialogView
	DeleteDialog deleteView
}

func (s *Server) newDialogView(c *form.Controller, errs form.FieldErrors, formError string) dialogView {
	state := c.State()
	if !form.IsOpen(state) {
		return dialogView{}
	}
	f := c.Form()
	v := dialogView{
		Open:            true,
		FormError:       formError,
		ID:              f.ID(),
		Values:          f.Values(),
		Errors:          make(map[string]string, len(errs)),
		TypeOptions:     core.TypeOptions,
		CategoryOptions: core.CategoryOptions,
		MinDate:         form.MinDate,
		MaxDate:         s.now().UTC().Format(form.DateLayout),
		CanSubmit:       c.CanSubmit(),
	}
	switch state.(type) {
	case form.OpenAdd:
		v.Title = "Add transaction"
	case form.OpenEdit:
		v.Title = "Edit transaction"
	}
	for field, msg := range errs {
		v.Errors[string(field)] = msg
	}
	switch {
	case !f.Dirty():
		v.Hint = msgNoChanges
	case !v.CanSubmit:
		v.Hint = msgIncomplete
	}
	return v
}

// openController rebuilds the dialog for id: add mode for zero, edit mode
// pre-populated from the store otherwise.
func (s *Server) openController(ctx context.Context, id int64) (*form.Controller, error) {
	c := form.NewController(s.svc, s.onSaved(ctx, id == 0), form.WithClock(s.now))
	if id == 0 {
		c.OpenAdd()
		return c, nil
	}
	t, err := s.svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.OpenEdit(t)
	return c, nil
}

func (s *Server) onSaved(ctx context.Context, created bool) func(core.Transaction) {
	return func(t core.Transaction) {
		atomic.AddInt64(&s.metrics.saved, 1)
		s.structured.LogTransactionSaved(ctx, t.ID, string(t.Type), string(t.Category), t.Amount.Cents, created)
	}
}

func (s *Server) onDeleted(ctx context.Context) func(core.Transaction) {
	return func(t core.Transaction) {
		atomic.AddInt64(&s.metrics.deleted, 1)
		log.FromContext(ctx).WithComponent(log.ComponentLedger).InfoContext(ctx, "Transaction deleted",
			log.NewFields().
				WithOperation(log.OpDelete).
				WithTransaction(t.ID, string(t.Type), string(t.Category), t.Amount.Cents).
				ToSlice()...)
	}
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.svc.List(r.Context())
	if err != nil {
		s.logReadError(r, "List transactions failed", err)
		InternalServerError("Could not load transactions").Write(w)
		return
	}
	s.renderPage(w, r, http.StatusOK, "transactions", basePage(r, "Transactions", "transactions", transactionsPage{
		Grid: view.NewGrid(txs),
	}))
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	txs, err := s.svc.List(r.Context())
	if err != nil {
		s.logReadError(r, "List transactions failed", err)
		InternalServerError("Could not load transactions").Write(w)
		return
	}
	s.renderPartial(w, r, "grid", view.NewGrid(txs), NewHTMXResponse())
}

func (s *Server) handleOpenDialog(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.URL.Query().Get("id"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	c, err := s.openController(r.Context(), id)
	if err != nil {
		s.respondMissing(w, r, err, "dialog", dialogView{})
		return
	}
	s.renderPartial(w, r, "dialog", s.newDialogView(c, nil, ""), NewHTMXResponse())
}

// handleCheckDialog re-evaluates the submit gate while the user types.
func (s *Server) handleCheckDialog(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controllerFromBody(w, r)
	if !ok {
		return
	}
	s.renderPartial(w, r, "dialog_actions", s.newDialogView(c, nil, ""), NewHTMXResponse())
}

// handleFormatAmount re-renders the amount input padded to two decimals
// when it loses focus.
func (s *Server) handleFormatAmount(w http.ResponseWriter, r *http.Request) {
	body := NewRequestBodyParser(r)
	if err := body.Parse(); err != nil {
		BadRequestError("Invalid request").Write(w)
		return
	}
	s.renderPartial(w, r, "amount_input", form.FormatAmountInput(body.Get("amount")), NewHTMXResponse())
}

func (s *Server) handleCloseDialog(w http.ResponseWriter, r *http.Request) {
	s.renderPartial(w, r, "dialog", dialogView{}, NewHTMXResponse().TriggerDialogClosed())
}

func (s *Server) handleSaveTransaction(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controllerFromBody(w, r)
	if !ok {
		return
	}
	creating := c.Form().ID() == 0

	saved, err := c.Submit(r.Context())
	var verr *form.ValidationError
	switch {
	case err == nil:
	case errors.Is(err, form.ErrPristine):
		s.renderPartial(w, r, "dialog", s.newDialogView(c, nil, msgNoChanges),
			NewHTMXResponse().Status(http.StatusUnprocessableEntity))
		return
	case errors.As(err, &verr):
		s.renderPartial(w, r, "dialog", s.newDialogView(c, verr.Fields, ""),
			NewHTMXResponse().Status(http.StatusUnprocessableEntity))
		return
	default:
		s.logError(r, "Save transaction failed", err, log.ComponentLedger, log.OpSave)
		s.renderPartial(w, r, "dialog", s.newDialogView(c, nil, msgSaveFailed),
			NewHTMXResponse().Status(http.StatusInternalServerError).TriggerErrorNotification(msgSaveFailed))
		return
	}

	notice := "Transaction updated"
	if creating {
		notice = "Transaction added"
	}
	s.renderPartial(w, r, "dialog", dialogView{}, NewHTMXResponse().
		TriggerTransactionsChanged(string(live.OpUpsert), saved.ID).
		TriggerDialogClosed().
		TriggerSuccessNotification(notice))
}

// controllerFromBody opens the dialog named by the posted id and applies the
// posted values. It writes the error response itself and reports false.
func (s *Server) controllerFromBody(w http.ResponseWriter, r *http.Request) (*form.Controller, bool) {
	body := NewRequestBodyParser(r)
	if err := body.Parse(); err != nil {
		BadRequestError("Invalid request").Write(w)
		return nil, false
	}
	id, err := parseID(body.Get("id"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return nil, false
	}
	c, err := s.openController(r.Context(), id)
	if err != nil {
		s.respondMissing(w, r, err, "dialog", dialogView{})
		return nil, false
	}
	if err := c.SetValues(body.FormValues()); err != nil {
		BadRequestError(err.Error()).Write(w)
		return nil, false
	}
	return c, true
}

func (s *Server) handleOpenDeleteDialog(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.URL.Query().Get("id"))
	if err != nil || id == 0 {
		BadRequestError("A transaction id is required").Write(w)
		return
	}
	t, err := s.svc.Get(r.Context(), id)
	if err != nil {
		s.respondMissing(w, r, err, "delete_dialog", deleteView{})
		return
	}
	d := form.NewDeleteDialog(s.svc, nil)
	d.Open(t)
	s.renderPartial(w, r, "delete_dialog", newDeleteView(d, ""), NewHTMXResponse())
}

func (s *Server) handleCloseDeleteDialog(w http.ResponseWriter, r *http.Request) {
	s.renderPartial(w, r, "delete_dialog", deleteView{}, NewHTMXResponse().TriggerDialogClosed())
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil || id == 0 {
		BadRequestError("A transaction id is required").Write(w)
		return
	}

	t, err := s.svc.Get(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		// Already gone; the outcome the user asked for.
		s.renderPartial(w, r, "delete_dialog", deleteView{}, NewHTMXResponse().
			TriggerTransactionsChanged(string(live.OpDelete), id).
			TriggerDialogClosed())
		return
	}
	if err != nil {
		s.logReadError(r, "Load transaction for delete failed", err)
		InternalServerError(msgDelFailed).Write(w)
		return
	}

	d := form.NewDeleteDialog(s.svc, s.onDeleted(r.Context()))
	d.Open(t)
	if err := d.Confirm(r.Context()); err != nil {
		s.logError(r, "Delete transaction failed", err, log.ComponentLedger, log.OpDelete)
		s.renderPartial(w, r, "delete_dialog", newDeleteView(d, msgDelFailed),
			NewHTMXResponse().Status(http.StatusInternalServerError).TriggerErrorNotification(msgDelFailed))
		return
	}

	s.renderPartial(w, r, "delete_dialog", deleteView{}, NewHTMXResponse().
		TriggerTransactionsChanged(string(live.OpDelete), id).
		TriggerDialogClosed().
		TriggerSuccessNotification("Transaction deleted"))
}

func newDeleteView(d *form.DeleteDialog, errMsg string) deleteView {
	c, ok := d.State().(form.Confirming)
	if !ok {
		return deleteView{}
	}
	return deleteView{Open: true, Row: view.NewRow(c.Record), Error: errMsg}
}

// respondMissing closes the target dialog when the record vanished, and
// reports anything else as a server error.
func (s *Server) respondMissing(w http.ResponseWriter, r *http.Request, err error, tmpl string, closed any) {
	if errors.Is(err, core.ErrNotFound) {
		s.renderPartial(w, r, tmpl, closed, NewHTMXResponse().
			TriggerTransactionsChanged("refresh", 0).
			TriggerNotification(NotificationWarning, msgGone, 4000))
		return
	}
	s.logReadError(r, "Load transaction failed", err)
	InternalServerError("Could not load the transaction").Write(w)
}
