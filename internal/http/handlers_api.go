package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/form"
	"fintrack/internal/log"
)

// apiTransaction is the JSON shape of a stored transaction. Amounts are
// decimal strings so clients never see floating point.
type apiTransaction struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// apiTransactionInput accepts the amount as a JSON string or number. A
// non-zero ID on POST replaces that record.
type apiTransactionInput struct {
	ID          int64            `json:"id"`
	Type        string           `json:"type"`
	Amount      *decimal.Decimal `json:"amount"`
	Date        string           `json:"date"`
	Category    string           `json:"category"`
	Description string           `json:"description"`
}

type apiCategoryTotal struct {
	Category string `json:"category"`
	Type     string `json:"type"`
	Amount   string `json:"amount"`
}

type apiSummary struct {
	Year       int                `json:"year"`
	Month      int                `json:"month"`
	Income     string             `json:"income"`
	Expenses   string             `json:"expenses"`
	NetSavings string             `json:"netSavings"`
	Count      int                `json:"count"`
	ByCategory []apiCategoryTotal `json:"byCategory"`
}

type apiValidationError struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func toAPI(t core.Transaction) apiTransaction {
	return apiTransaction{
		ID:          t.ID,
		Type:        string(t.Type),
		Amount:      t.Amount.String(),
		Date:        t.Time().Format(form.DateLayout),
		Category:    string(t.Category),
		Description: t.Description,
	}
}

func toAPISlice(txs []core.Transaction) []apiTransaction {
	out := make([]apiTransaction, 0, len(txs))
	for _, t := range txs {
		out = append(out, toAPI(t))
	}
	return out
}

func (in apiTransactionInput) values() form.Values {
	v := form.Values{
		Type:        in.Type,
		Date:        in.Date,
		Category:    in.Category,
		Description: sanitizeInput(in.Description),
	}
	if in.Amount != nil {
		v.Amount = in.Amount.String()
	}
	return v
}

// decodeJSON reads a bounded JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) apiListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		txs []core.Transaction
		err error
	)
	if q.Has("year") || q.Has("month") {
		window, perr := ParseMonthParams(q, s.now())
		if perr != nil {
			writeJSONError(w, http.StatusBadRequest, perr.Error())
			return
		}
		txs, err = s.svc.ListByMonth(r.Context(), window)
	} else {
		txs, err = s.svc.List(r.Context())
	}
	if err != nil {
		s.logReadError(r, "API list transactions failed", err)
		writeJSONError(w, http.StatusInternalServerError, "could not list transactions")
		return
	}
	writeJSON(w, http.StatusOK, toAPISlice(txs))
}

func (s *Server) apiGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := s.apiPathID(w, r)
	if !ok {
		return
	}
	t, err := s.svc.Get(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		s.logReadError(r, "API get transaction failed", err)
		writeJSONError(w, http.StatusInternalServerError, "could not load transaction")
		return
	}
	writeJSON(w, http.StatusOK, toAPI(t))
}

func (s *Server) apiCreateTransaction(w http.ResponseWriter, r *http.Request) {
	s.apiSubmit(w, r, 0)
}

func (s *Server) apiUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := s.apiPathID(w, r)
	if !ok {
		return
	}
	s.apiSubmit(w, r, id)
}

// apiSubmit runs the same dialog controller as the web form, so the API
// shares its validation and pristine rules. A path id wins over the body id.
func (s *Server) apiSubmit(w http.ResponseWriter, r *http.Request, pathID int64) {
	var in apiTransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	id := pathID
	if id == 0 {
		id = in.ID
	}
	if id < 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	okStatus := http.StatusOK
	if id == 0 {
		okStatus = http.StatusCreated
	}

	c, err := s.openController(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		s.logReadError(r, "API load transaction failed", err)
		writeJSONError(w, http.StatusInternalServerError, "could not load transaction")
		return
	}
	if err := c.SetValues(in.values()); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := c.Submit(r.Context())
	var verr *form.ValidationError
	switch {
	case err == nil:
		writeJSON(w, okStatus, toAPI(saved))
	case errors.Is(err, form.ErrPristine):
		writeJSON(w, http.StatusUnprocessableEntity, apiValidationError{Error: form.ErrPristine.Error()})
	case errors.As(err, &verr):
		fields := make(map[string]string, len(verr.Fields))
		for f, msg := range verr.Fields {
			fields[string(f)] = msg
		}
		writeJSON(w, http.StatusUnprocessableEntity, apiValidationError{Error: "validation failed", Fields: fields})
	default:
		s.logError(r, "API save transaction failed", err, log.ComponentLedger, log.OpSave)
		writeJSONError(w, http.StatusInternalServerError, "could not save transaction")
	}
}

// apiDeleteTransaction answers 204 whether or not the record existed.
func (s *Server) apiDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := s.apiPathID(w, r)
	if !ok {
		return
	}
	t, err := s.svc.Get(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		s.logReadError(r, "API load transaction failed", err)
		writeJSONError(w, http.StatusInternalServerError, "could not delete transaction")
		return
	}

	d := form.NewDeleteDialog(s.svc, s.onDeleted(r.Context()))
	d.Open(t)
	if err := d.Confirm(r.Context()); err != nil {
		s.logError(r, "API delete transaction failed", err, log.ComponentLedger, log.OpDelete)
		writeJSONError(w, http.StatusInternalServerError, "could not delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) apiSummary(w http.ResponseWriter, r *http.Request) {
	window, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	sum, err := s.svc.MonthSummary(r.Context(), window)
	if err != nil {
		s.logReadError(r, "API month summary failed", err)
		writeJSONError(w, http.StatusInternalServerError, "could not summarize month")
		return
	}

	out := apiSummary{
		Year:       window.Year,
		Month:      int(window.Month),
		Income:     sum.Income.String(),
		Expenses:   sum.Expenses.String(),
		NetSavings: sum.NetSavings.String(),
		Count:      sum.Count,
		ByCategory: make([]apiCategoryTotal, 0, len(sum.ByCategory)),
	}
	for _, c := range sum.ByCategory {
		out.ByCategory = append(out.ByCategory, apiCategoryTotal{Category: string(c.Category), Type: string(c.Type), Amount: c.Amount.String()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) apiOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]core.Option{
		"types":      core.TypeOptions,
		"categories": core.CategoryOptions,
	})
}

func (s *Server) apiPathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseID(r.PathValue("id"))
	if err != nil || id == 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid transaction id")
		return 0, false
	}
	return id, true
}
