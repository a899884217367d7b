// This file builds HTMX responses: the HX-Trigger events the account page
// listens for, toast notifications and the small error partials.

package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// Events raised on the client through HX-Trigger.
const (
	EventLedgerLoaded     = "ledger:loaded"
	EventTransactionSaved = "transaction:saved"
	EventEditorClosed     = "editor:closed"
	EventNotification     = "show-notification"
)

// HTMXResponseBuilder assembles headers, triggers and body for one
// response. Triggers in afterSwap fire once htmx has applied the
// out-of-band fragments.
type HTMXResponseBuilder struct {
	triggers   map[string]any
	afterSwap  map[string]any
	statusCode int
	body       []byte
	headers    map[string]string
}

// NewHTMXResponse creates a new response builder with default 200 status.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		triggers:   make(map[string]any),
		afterSwap:  make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds an event to HX-Trigger. A nil payload is sent as {}.
func (b *HTMXResponseBuilder) Trigger(name string, data any) *HTMXResponseBuilder {
	if data == nil {
		data = struct{}{}
	}
	b.triggers[name] = data
	return b
}

// TriggerAfterSwap adds an event to HX-Trigger-After-Swap.
func (b *HTMXResponseBuilder) TriggerAfterSwap(name string, data any) *HTMXResponseBuilder {
	if data == nil {
		data = struct{}{}
	}
	b.afterSwap[name] = data
	return b
}

// TriggerLedgerLoaded fires after the ledger panel has been replaced.
func (b *HTMXResponseBuilder) TriggerLedgerLoaded(vendor string, rows int) *HTMXResponseBuilder {
	return b.TriggerAfterSwap(EventLedgerLoaded, struct {
		Vendor string `json:"vendor"`
		Rows   int    `json:"rows"`
	}{vendor, rows})
}

func (b *HTMXResponseBuilder) TriggerTransactionSaved(kind string) *HTMXResponseBuilder {
	return b.Trigger(EventTransactionSaved, struct {
		Kind string `json:"kind"`
	}{kind})
}

func (b *HTMXResponseBuilder) TriggerEditorClosed() *HTMXResponseBuilder {
	return b.Trigger(EventEditorClosed, nil)
}

// NotificationType selects the toast style in app.js.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

type notification struct {
	Type     NotificationType `json:"type"`
	Message  string           `json:"message"`
	Duration int              `json:"duration"`
}

// TriggerNotification shows a toast for durationMs milliseconds.
func (b *HTMXResponseBuilder) TriggerNotification(kind NotificationType, message string, durationMs int) *HTMXResponseBuilder {
	return b.Trigger(EventNotification, notification{Type: kind, Message: message, Duration: durationMs})
}

func (b *HTMXResponseBuilder) TriggerSuccessNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationSuccess, message, 3000)
}

func (b *HTMXResponseBuilder) TriggerErrorNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationError, message, 5000)
}

// Redirect asks htmx to navigate the whole page to url.
func (b *HTMXResponseBuilder) Redirect(url string) *HTMXResponseBuilder {
	return b.Header("HX-Redirect", url)
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

// BodyHTML sets an HTML body.
func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

// Write sends the response. Trigger payloads that fail to encode are
// dropped rather than failing the response.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	setTriggerHeader(w, "HX-Trigger", b.triggers)
	setTriggerHeader(w, "HX-Trigger-After-Swap", b.afterSwap)

	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

func setTriggerHeader(w http.ResponseWriter, header string, events map[string]any) {
	if len(events) == 0 {
		return
	}
	if data, err := json.Marshal(events); err == nil {
		w.Header().Set(header, string(data))
	}
}

// ErrorResponse renders an escaped error partial and raises the same
// message as an error toast, since the account page swaps nothing on
// failed requests.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		TriggerErrorNotification(message).
		BodyHTML(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`)
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}
