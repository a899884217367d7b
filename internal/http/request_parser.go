// This file implements parsing and validation of HTMX form submissions.
// Bodies arrive form-encoded from hx-post, or as JSON when hx-ext=json-enc
// is in use.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxFormBytes = 64 << 10

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once, capped at maxFormBytes.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxFormBytes))
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}
	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}
	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
		}
		return p.err
	}
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitised string value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters other than tab and newlines,
// then trims.
func sanitizeInput(s string) string {
	return strings.TrimSpace(stripControl(s))
}

// stripControl drops control characters other than tab and line breaks.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

type loginForm struct {
	Username string `validate:"required,max=100"`
	Password string `validate:"required,max=256"`
}

type vendorForm struct {
	Vendor string `validate:"required,max=200"`
}

type searchForm struct {
	Query string `validate:"max=200"`
}

type rangeForm struct {
	From string `validate:"required,len=7"`
	To   string `validate:"required,len=7"`
}

// editorForm only bounds sizes; amount and date semantics belong to the
// ledger editor so its messages reach the user unchanged.
type editorForm struct {
	Date   string `validate:"max=10"`
	Amount string `validate:"max=32"`
	Note   string `validate:"max=500"`
}

var errMalformedForm = errors.New("malformed form")

// bindForm parses r and fills dst through fill, then validates it.
func (s *Server) bindForm(r *http.Request, dst any, fill func(p *RequestBodyParser)) error {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return fmt.Errorf("%w: %v", errMalformedForm, err)
	}
	fill(p)
	return s.validate.Struct(dst)
}

func (s *Server) parseLogin(r *http.Request) (loginForm, error) {
	var f loginForm
	err := s.bindForm(r, &f, func(p *RequestBodyParser) {
		f.Username = p.Get("username")
		// passwords keep their spacing
		if p.jsonData != nil {
			f.Password = stringValue(p.jsonData["password"])
		} else {
			f.Password = p.formData.Get("password")
		}
	})
	return f, err
}

func (s *Server) parseVendor(r *http.Request) (vendorForm, error) {
	var f vendorForm
	err := s.bindForm(r, &f, func(p *RequestBodyParser) { f.Vendor = p.Get("vendor") })
	return f, err
}

func (s *Server) parseSearch(r *http.Request) (searchForm, error) {
	var f searchForm
	err := s.bindForm(r, &f, func(p *RequestBodyParser) { f.Query = p.Get("q") })
	return f, err
}

func (s *Server) parseRange(r *http.Request) (rangeForm, error) {
	var f rangeForm
	err := s.bindForm(r, &f, func(p *RequestBodyParser) {
		f.From = p.Get("from")
		f.To = p.Get("to")
	})
	return f, err
}

func (s *Server) parseEditor(r *http.Request) (editorForm, error) {
	var f editorForm
	err := s.bindForm(r, &f, func(p *RequestBodyParser) {
		f.Date = p.Get("date")
		f.Amount = p.Get("amount")
		f.Note = p.Get("note")
	})
	return f, err
}

// validationMessage turns a validator error into one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request format"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "max":
			parts = append(parts, fe.Field()+" is too long")
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}
