package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		key         string
		want        string
		wantJSON    bool
	}{
		{"form data", "vendor=ABC+Traders&x=1", "application/x-www-form-urlencoded", "vendor", "ABC Traders", false},
		{"json data", `{"amount": 12.5}`, "application/json", "amount", "12.5", true},
		{"json string", `{"vendor": " Kumar Pulp Mills "}`, "application/json", "vendor", "Kumar Pulp Mills", true},
		{"control characters stripped", "note=a%00b%07c", "application/x-www-form-urlencoded", "note", "abc", false},
		{"missing key", "a=1", "application/x-www-form-urlencoded", "b", "", false},
		{"empty body", "", "", "vendor", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			p := NewRequestBodyParser(r)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := p.Get(tt.key); got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
			if p.IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON() = %v, want %v", p.IsJSON(), tt.wantJSON)
			}
		})
	}
}

func TestRequestBodyParser_MalformedJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"vendor":`))
	if err := NewRequestBodyParser(r).Parse(); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  ABC  ", "ABC"},
		{"line1\nline2", "line1\nline2"},
		{"a\x00b", "ab"},
		{"\ttabbed", "tabbed"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStripControlKeepsSpaces(t *testing.T) {
	if got := stripControl(" traders\x07 "); got != " traders " {
		t.Errorf("stripControl() = %q, want %q", got, " traders ")
	}
}

func TestValidationMessage(t *testing.T) {
	v := validator.New()

	err := v.Struct(loginForm{})
	if got := validationMessage(err); got != "Username is required; Password is required" {
		t.Errorf("validationMessage() = %q", got)
	}

	err = v.Struct(editorForm{Note: strings.Repeat("x", 501)})
	if got := validationMessage(err); got != "Note is too long" {
		t.Errorf("validationMessage() = %q", got)
	}

	if got := validationMessage(errors.New("boom")); got != "Invalid request format" {
		t.Errorf("validationMessage() = %q", got)
	}
}
