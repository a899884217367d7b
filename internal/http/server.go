// Package http serves the dashboard: the login page, the vendor account
// page and the HTMX partials that drive it.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"paperdesk/internal/cache"
	"paperdesk/internal/ledger"
	"paperdesk/internal/log"
	"paperdesk/internal/middleware/ratelimit"
	"paperdesk/internal/middleware/security"
	"paperdesk/internal/middleware/trace"
	"paperdesk/internal/session"
	appweb "paperdesk/web"
)

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	Brand          string
	CookieName     string
	CookieSecure   bool
	BlurGrace      time.Duration
	MaxViews       int
	ViewTTL        time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

func (o *Options) defaults() {
	if o.Brand == "" {
		o.Brand = "Shivshakti Paper"
	}
	if o.CookieName == "" {
		o.CookieName = "paperdesk_session"
	}
	if o.BlurGrace < 0 {
		o.BlurGrace = 0
	}
	if o.MaxViews <= 0 {
		o.MaxViews = 1000
	}
	if o.ViewTTL <= 0 {
		o.ViewTTL = 12 * time.Hour
	}
}

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

type appMetrics struct {
	uptime         time.Time
	ledgerQueries  int64
	ledgerFailures int64
	savedTx        int64
	logins         int64
	failedLogins   int64
}

type Server struct {
	http.Server

	templates *template.Template
	sessions  *session.Manager
	ledger    *ledger.Service
	logger    *log.Logger
	opts      Options
	validate  *validator.Validate

	// views holds one ledger.View per session, keyed by session ID.
	views   *cache.LRUCache[*ledger.View]
	viewsMu sync.Mutex

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	readiness        map[string]ReadinessCheck

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server. Template parse errors are returned rather than logged.
func NewServer(addr string, sessions *session.Manager, svc *ledger.Service, logger *log.Logger, opts Options) (*Server, error) {
	if logger == nil {
		logger = log.Discard()
	}
	opts.defaults()

	tpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		templates:        tpl,
		sessions:         sessions,
		ledger:           svc,
		logger:           logger.WithComponent(log.ComponentHTTP),
		opts:             opts,
		validate:         validator.New(),
		views:            cache.NewLRUCache[*ledger.View](opts.MaxViews, opts.ViewTTL),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerSecond: opts.RateLimitRPS, Burst: opts.RateLimitBurst}),
		securityDetector: security.NewDetector(logger),
		readiness:        make(map[string]ReadinessCheck),
		appMetrics:       appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ClientIP, logger)
	s.Handler = s.routes()
	return s, nil
}

// Views exposes the per-session view cache for registration with a
// cache.Manager.
func (s *Server) Views() *cache.LRUCache[*ledger.View] {
	return s.views
}

// AddReadinessCheck registers a dependency probed by /readyz.
func (s *Server) AddReadinessCheck(name string, check ReadinessCheck) {
	s.readiness[name] = check
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.traceMiddleware.Handler)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(trace.FromRequest))
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		r.With(security.StaticAssets(3600)).
			Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(sub))))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Group(func(r chi.Router) {
		r.Use(s.securityDetector.Middleware)
		r.Use(s.rateLimiter.Middleware(s.securityDetector.ClientIP, s.onRateLimit))
		r.Use(security.NoStore)

		r.Get("/login", s.handleLoginPage)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/account", http.StatusSeeOther)
			})
			r.Get("/account", s.handleAccount)

			r.Route("/ui/vendors", func(r chi.Router) {
				r.Get("/suggest", s.handleVendorSuggest)
				r.Post("/select", s.handleVendorSelect)
				r.Post("/blur", s.handleVendorBlur)
				r.Post("/refresh", s.handleVendorRefresh)
			})
			r.Route("/ui/ledger", func(r chi.Router) {
				r.Post("/apply", s.handleLedgerApply)
				r.Get("/editor", s.handleEditorOpen)
				r.Post("/editor", s.handleEditorSubmit)
				r.Post("/editor/cancel", s.handleEditorCancel)
				r.Get("/transactions/{id}/edit", s.handleEditorEdit)
			})
		})
	})
	return r
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please slow down.").Write(w)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// view returns the session's ledger view, creating it on first use.
func (s *Server) view(sess *session.Session) *ledger.View {
	s.viewsMu.Lock()
	defer s.viewsMu.Unlock()
	if v, ok := s.views.Get(sess.ID); ok {
		return v
	}
	v := ledger.NewView(sess.Vendors, ledger.WithBlurGrace(s.opts.BlurGrace))
	s.views.SetUntil(sess.ID, v, sess.ExpiresAt)
	return v
}

func (s *Server) dropView(id string) {
	s.views.Delete(id)
}

func (s *Server) count(p *int64) {
	atomic.AddInt64(p, 1)
}
