package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"paperdesk/internal/core"
	"paperdesk/internal/ledger"
	"paperdesk/internal/log"
	"paperdesk/internal/remote"
)

// handleEditorOpen opens the create editor for ?type=PAYMENT|RECEIPT.
func (s *Server) handleEditorOpen(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	st, err := s.view(sess).OpenCreate(r.URL.Query().Get("type"))
	if errors.Is(err, core.ErrNotEditable) {
		BadRequestError("Only payments and receipts can be added").Write(w)
		return
	}
	s.writeFragments(w, r, s.page(sess.Username, st), nil)
}

func (s *Server) handleEditorEdit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		BadRequestError("Invalid transaction id").Write(w)
		return
	}
	st, err := s.view(sess).OpenEdit(id)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		NotFoundError("Transaction not found in the current ledger").Write(w)
		return
	case errors.Is(err, core.ErrNotEditable):
		BadRequestError("This transaction cannot be edited").Write(w)
		return
	}
	s.writeFragments(w, r, s.page(sess.Username, st), nil)
}

func (s *Server) handleEditorCancel(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	st := s.view(sess).Cancel()
	s.writeFragments(w, r, s.page(sess.Username, st), NewHTMXResponse().TriggerEditorClosed())
}

// handleEditorSubmit saves the open editor. Validation problems and
// backend rejections re-render the editor with its inline message.
func (s *Server) handleEditorSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFrom(ctx)
	v := s.view(sess)

	form, err := s.parseEditor(r)
	if err != nil {
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return
	}
	kind := v.Snapshot().Editor.Kind

	err = s.ledger.Submit(ctx, v, caller(r), ledger.EditorInput{Date: form.Date, Amount: form.Amount, Note: form.Note})
	switch {
	case errors.Is(err, ledger.ErrSubmitInProgress):
		w.WriteHeader(http.StatusNoContent)
		return
	case remote.KindOf(err) == remote.KindUnauthorized:
		s.expire(w, r, sess)
		return
	case err != nil && !errors.Is(err, ledger.ErrInvalidInput) && !errors.Is(err, ledger.ErrEditorClosed) && !errors.Is(err, ledger.ErrNoVendor):
		log.FromContext(ctx).WarnContext(ctx, "Transaction not saved", log.FieldTxKind, kind.Code, log.FieldError, err)
	}

	b := NewHTMXResponse()
	if err == nil {
		s.count(&s.appMetrics.savedTx)
		b.TriggerTransactionSaved(kind.Code).
			TriggerEditorClosed().
			TriggerSuccessNotification(kind.Label() + " saved")
	}
	s.writeFragments(w, r, s.page(sess.Username, v.Snapshot()), b)
}
