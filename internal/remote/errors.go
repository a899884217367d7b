package remote

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failed backend call.
type Kind string

const (
	KindTransport    Kind = "transport"    // no response: dial, timeout, cancelled
	KindUnauthorized Kind = "unauthorized" // 401/403, session token no longer accepted
	KindStatus       Kind = "status"       // any other non-2xx
	KindDecode       Kind = "decode"       // 2xx with a body we cannot read
	KindRejected     Kind = "rejected"     // backend validation errors
)

// FieldError is one entry of a backend validation response.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is returned by every adapter in place of a bare error.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(string(e.Kind))
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if msg := e.UserMessage(); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage renders the backend's explanation the way the dashboard shows
// it: validation errors as "Validation Errors: Field: message", otherwise
// the backend's message verbatim.
func (e *Error) UserMessage() string {
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, capitalize(f.Field)+": "+f.Message)
		}
		return "Validation Errors: " + strings.Join(parts, "; ")
	}
	return e.Message
}

// KindOf returns the Kind of a remote error anywhere in err's chain, or ""
// when err did not come from an adapter.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// Describe is the text shown after "Error saving transaction: ".
func Describe(err error) string {
	var re *Error
	if errors.As(err, &re) {
		if msg := re.UserMessage(); msg != "" {
			return msg
		}
		switch re.Kind {
		case KindTransport:
			return "backend unreachable"
		case KindUnauthorized:
			return "session expired, please log in again"
		case KindDecode:
			return "unexpected response from backend"
		}
		if re.Status != 0 {
			return fmt.Sprintf("request failed with status %d", re.Status)
		}
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
