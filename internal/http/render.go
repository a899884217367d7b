package http

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"paperdesk/internal/core"
	"paperdesk/internal/ledger"
	"paperdesk/internal/log"
	appweb "paperdesk/web"
)

var templateFuncs = template.FuncMap{
	"rupees": core.FormatRupees,
	"rowClass": func(d core.Direction) string {
		switch d {
		case core.Credit:
			return "row-credit"
		case core.Debit:
			return "row-debit"
		}
		return ""
	},
	"kindLabel": func(k core.TransactionKind) string {
		if k.Editable {
			return k.Label()
		}
		return k.Code
	},
}

func parseTemplates() (*template.Template, error) {
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

// pageData is the root value for every template.
type pageData struct {
	Brand    string
	Username string
	State    ledger.State
	// OOB marks fragments for out-of-band swapping.
	OOB bool
	// Search re-renders the vendor search input; left out while typing so
	// the field keeps focus.
	Search bool
	Error  string
	Login  string
}

func (s *Server) page(username string, st ledger.State) pageData {
	return pageData{Brand: s.opts.Brand, Username: username, State: st}
}

// renderHTML executes a template into a buffer so a failure never leaves a
// half-written response.
func (s *Server) renderHTML(r *http.Request, name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender, "template", name, log.FieldError, err)
		return "", err
	}
	return buf.String(), nil
}

func (s *Server) writePage(w http.ResponseWriter, r *http.Request, name string, status int, data any) {
	html, err := s.renderHTML(r, name, data)
	if err != nil {
		InternalServerError("Unable to render page").Write(w)
		return
	}
	NewHTMXResponse().Status(status).BodyHTML(html).Write(w)
}

// writeFragments renders the account page sections for out-of-band
// swapping. Callers add triggers through b.
func (s *Server) writeFragments(w http.ResponseWriter, r *http.Request, data pageData, b *HTMXResponseBuilder) {
	data.OOB = true
	html, err := s.renderHTML(r, "fragments", data)
	if err != nil {
		InternalServerError("Unable to render page").Write(w)
		return
	}
	if b == nil {
		b = NewHTMXResponse()
	}
	b.BodyHTML(html).Write(w)
}
