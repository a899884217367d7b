package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func decodeTriggers(t *testing.T, raw string) map[string]json.RawMessage {
	t.Helper()
	if raw == "" {
		return nil
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("trigger header is not JSON: %v (%s)", err, raw)
	}
	return out
}

func TestHTMXResponseBuilder_Body(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().Status(http.StatusCreated).BodyHTML("<p>ok</p>").Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if w.Body.String() != "<p>ok</p>" {
		t.Errorf("Body = %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Header().Get("HX-Trigger") != "" || w.Header().Get("HX-Trigger-After-Swap") != "" {
		t.Error("no trigger headers expected without triggers")
	}
}

func TestHTMXResponseBuilder_SaveEvents(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().
		TriggerTransactionSaved("PAYMENT").
		TriggerEditorClosed().
		TriggerSuccessNotification("Payment saved").
		TriggerLedgerLoaded("ABC Traders", 3).
		Write(w)

	now := decodeTriggers(t, w.Header().Get("HX-Trigger"))
	if string(now[EventTransactionSaved]) != `{"kind":"PAYMENT"}` {
		t.Errorf("%s = %s", EventTransactionSaved, now[EventTransactionSaved])
	}
	if string(now[EventEditorClosed]) != `{}` {
		t.Errorf("%s = %s", EventEditorClosed, now[EventEditorClosed])
	}
	if string(now[EventNotification]) != `{"type":"success","message":"Payment saved","duration":3000}` {
		t.Errorf("%s = %s", EventNotification, now[EventNotification])
	}
	if _, ok := now[EventLedgerLoaded]; ok {
		t.Errorf("%s must fire after the swap", EventLedgerLoaded)
	}

	after := decodeTriggers(t, w.Header().Get("HX-Trigger-After-Swap"))
	if string(after[EventLedgerLoaded]) != `{"vendor":"ABC Traders","rows":3}` {
		t.Errorf("%s = %s", EventLedgerLoaded, after[EventLedgerLoaded])
	}
}

func TestHTMXResponseBuilder_RedirectAndHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().Redirect("/login").Header("X-Custom", "value").Write(w)

	if got := w.Header().Get("HX-Redirect"); got != "/login" {
		t.Errorf("HX-Redirect = %q, want /login", got)
	}
	if w.Header().Get("X-Custom") != "value" {
		t.Error("custom header not set")
	}
	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		builder    *HTMXResponseBuilder
		wantStatus int
		wantBody   string
	}{
		{"bad request", BadRequestError("Invalid transaction id"), http.StatusBadRequest, `<div class="error">Invalid transaction id</div>`},
		{"unprocessable entity", UnprocessableEntityError("Note is too long"), http.StatusUnprocessableEntity, `<div class="error">Note is too long</div>`},
		{"internal server error", InternalServerError("Unable to render page"), http.StatusInternalServerError, `<div class="error">Unable to render page</div>`},
		{"not found", NotFoundError("Transaction not found"), http.StatusNotFound, `<div class="error">Transaction not found</div>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("Body = %q, want %q", w.Body.String(), tt.wantBody)
			}
			toast := decodeTriggers(t, w.Header().Get("HX-Trigger"))[EventNotification]
			if !strings.Contains(string(toast), `"type":"error"`) {
				t.Errorf("error toast missing: %s", toast)
			}
		})
	}
}

func TestErrorResponse_EscapesHTML(t *testing.T) {
	w := httptest.NewRecorder()
	BadRequestError("<script>alert('xss')</script>").Write(w)

	body := w.Body.String()
	if strings.Contains(body, "<script>") {
		t.Error("Error response did not escape HTML")
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Error("Error response did not properly escape HTML entities")
	}
}
