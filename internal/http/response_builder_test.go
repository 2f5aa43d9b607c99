package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusOK).
		BodyHTML([]byte("test")).
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "test" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "test")
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Errorf("HX-Trigger should be absent without triggers")
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerTransactionsChanged("upsert", 7).
		TriggerDialogClosed().
		TriggerSuccessNotification("Transaction saved").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	if trigger == "" {
		t.Fatal("HX-Trigger header not set")
	}

	expectedParts := []string{
		`"transactions:changed"`,
		`"op":"upsert"`,
		`"id":7`,
		`"dialog:closed"`,
		`"show-notification"`,
		`"type":"success"`,
		`"message":"Transaction saved"`,
	}
	for _, part := range expectedParts {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %q: %s", part, trigger)
		}
	}
}

func TestHTMXResponseBuilder_Redirect(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().Redirect("/").Write(w)

	if w.Header().Get("HX-Redirect") != "/" {
		t.Errorf("HX-Redirect = %q, want /", w.Header().Get("HX-Redirect"))
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name      string
		builder   *HTMXResponseBuilder
		status    int
		wantToast bool
	}{
		{"bad request", BadRequestError("bad <input>"), http.StatusBadRequest, false},
		{"too many", ErrorResponse(http.StatusTooManyRequests, "slow down"), http.StatusTooManyRequests, false},
		{"internal", InternalServerError("Could not save transaction"), http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if !strings.Contains(w.Header().Get("Content-Type"), "text/html") {
				t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
			}
			if strings.Contains(w.Body.String(), "<input>") {
				t.Errorf("message must be escaped: %s", w.Body.String())
			}
			hasToast := strings.Contains(w.Header().Get("HX-Trigger"), `"show-notification"`)
			if hasToast != tt.wantToast {
				t.Errorf("toast = %v, want %v", hasToast, tt.wantToast)
			}
		})
	}
}
