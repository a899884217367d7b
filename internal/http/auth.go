package http

import (
	"context"
	"errors"
	"net/http"

	"paperdesk/internal/log"
	"paperdesk/internal/remote"
	"paperdesk/internal/session"
)

type sessionKey struct{}

func sessionFrom(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey{}).(*session.Session)
	return s
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// redirect navigates the browser, through HX-Redirect for htmx requests.
func redirect(w http.ResponseWriter, r *http.Request, url string) {
	if isHTMX(r) {
		NewHTMXResponse().Redirect(url).Write(w)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// requireSession loads the session named by the cookie or sends the
// browser to the login page.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(s.opts.CookieName); err == nil {
			id = c.Value
		}
		sess, err := s.sessions.Get(r.Context(), id)
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) {
				s.logger.ErrorContext(r.Context(), "Session lookup failed", log.FieldError, err)
			}
			s.clearCookie(w)
			redirect(w, r, "/login")
			return
		}
		logger := log.FromContext(r.Context()).With(log.FieldSessionID, sess.ID, log.FieldUsername, sess.Username)
		ctx := log.NewContext(context.WithValue(r.Context(), sessionKey{}, sess), logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) setCookie(w http.ResponseWriter, sess *session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(s.opts.CookieName); err == nil {
		if _, err := s.sessions.Get(r.Context(), c.Value); err == nil {
			http.Redirect(w, r, "/account", http.StatusSeeOther)
			return
		}
	}
	s.writePage(w, r, "login.html", http.StatusOK, pageData{Brand: s.opts.Brand})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form, err := s.parseLogin(r)
	if err != nil {
		s.writePage(w, r, "login.html", http.StatusUnprocessableEntity,
			pageData{Brand: s.opts.Brand, Login: form.Username, Error: validationMessage(err)})
		return
	}

	sess, err := s.sessions.Login(ctx, form.Username, form.Password)
	if err != nil {
		s.count(&s.appMetrics.failedLogins)
		msg := "Invalid username or password"
		status := http.StatusUnauthorized
		if remote.KindOf(err) != remote.KindUnauthorized {
			msg = "Login failed: " + remote.Describe(err)
			status = http.StatusBadGateway
			log.FromContext(ctx).ErrorContext(ctx, "Login failed",
				log.FieldOperation, log.OpLogin,
				log.FieldErrorKind, string(remote.KindOf(err)),
				log.FieldError, err)
		}
		s.writePage(w, r, "login.html", status, pageData{Brand: s.opts.Brand, Login: form.Username, Error: msg})
		return
	}

	s.count(&s.appMetrics.logins)
	s.setCookie(w, sess)
	redirect(w, r, "/account")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(s.opts.CookieName); err == nil {
		s.endSession(r.Context(), c.Value)
	}
	s.clearCookie(w)
	redirect(w, r, "/login")
}

func (s *Server) endSession(ctx context.Context, id string) {
	if err := s.sessions.Logout(ctx, id); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Logout failed", log.FieldOperation, log.OpLogout, log.FieldError, err)
	}
	s.dropView(id)
}

// expire handles a token the backend no longer accepts: the session ends
// and the browser returns to the login page.
func (s *Server) expire(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Backend rejected session token, logging out")
	s.endSession(r.Context(), sess.ID)
	s.clearCookie(w)
	redirect(w, r, "/login")
}
