package http

import (
	"errors"
	"net/http"

	"paperdesk/internal/ledger"
	"paperdesk/internal/log"
	"paperdesk/internal/remote"
)

func caller(r *http.Request) ledger.Caller {
	sess := sessionFrom(r.Context())
	return ledger.Caller{Token: sess.Token, Username: sess.Username}
}

// handleAccount renders the full vendor account page.
func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	data := s.page(sess.Username, s.view(sess).Snapshot())
	data.Search = true
	s.writePage(w, r, "account.html", http.StatusOK, data)
}

// handleVendorSuggest runs on every keystroke in the vendor search. The
// query keeps its surrounding spaces.
func (s *Server) handleVendorSuggest(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	form := searchForm{Query: stripControl(r.URL.Query().Get("q"))}
	if err := s.validate.Struct(form); err != nil {
		BadRequestError(validationMessage(err)).Write(w)
		return
	}
	st := s.view(sess).Type(form.Query)
	s.writeFragments(w, r, s.page(sess.Username, st), nil)
}

func (s *Server) handleVendorSelect(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	form, err := s.parseVendor(r)
	if err != nil {
		BadRequestError(validationMessage(err)).Write(w)
		return
	}
	st, err := s.view(sess).Select(form.Vendor)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Selected vendor not in directory", log.FieldVendor, form.Vendor)
	}
	data := s.page(sess.Username, st)
	data.Search = true
	s.writeFragments(w, r, data, nil)
}

// handleVendorBlur resolves the search text when the field loses focus.
// The grace wait happens inside the view, so a selection request racing
// this one wins.
func (s *Server) handleVendorBlur(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	form, err := s.parseSearch(r)
	if err != nil {
		BadRequestError(validationMessage(err)).Write(w)
		return
	}
	st, err := s.view(sess).Blur(r.Context(), form.Query)
	if err != nil {
		// client went away during the grace wait
		return
	}
	data := s.page(sess.Username, st)
	data.Search = true
	s.writeFragments(w, r, data, nil)
}

func (s *Server) handleVendorRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFrom(ctx)
	v := s.view(sess)

	dir, err := s.sessions.RefreshVendors(ctx, sess)
	if err != nil {
		if remote.KindOf(err) == remote.KindUnauthorized {
			s.expire(w, r, sess)
			return
		}
		log.FromContext(ctx).ErrorContext(ctx, "Vendor refresh failed", log.FieldOperation, log.OpRefresh, log.FieldError, err)
		s.writeFragments(w, r, s.page(sess.Username, v.Snapshot()),
			NewHTMXResponse().TriggerErrorNotification("Could not refresh vendors: "+remote.Describe(err)))
		return
	}
	v.SetDirectory(dir)
	data := s.page(sess.Username, v.Snapshot())
	data.Search = true
	s.writeFragments(w, r, data, NewHTMXResponse().TriggerSuccessNotification("Vendor list refreshed"))
}

// handleLedgerApply stores the month range and loads the account.
func (s *Server) handleLedgerApply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFrom(ctx)
	v := s.view(sess)

	form, err := s.parseRange(r)
	if err == nil {
		err = v.SetRange(form.From, form.To)
	}
	if err != nil {
		v.SetNotice(ledger.NoticeInvalidRange)
		s.writeFragments(w, r, s.page(sess.Username, v.Snapshot()), nil)
		return
	}

	s.count(&s.appMetrics.ledgerQueries)
	err = s.ledger.Apply(ctx, v, caller(r))
	switch {
	case err == nil, errors.Is(err, ledger.ErrStale), errors.Is(err, ledger.ErrNoVendor):
	case remote.KindOf(err) == remote.KindUnauthorized:
		s.expire(w, r, sess)
		return
	default:
		s.count(&s.appMetrics.ledgerFailures)
	}

	st := v.Snapshot()
	b := NewHTMXResponse()
	if err == nil && st.Loaded {
		b.TriggerLedgerLoaded(st.Vendor, len(st.Result.Transactions))
	}
	s.writeFragments(w, r, s.page(sess.Username, st), b)
}
