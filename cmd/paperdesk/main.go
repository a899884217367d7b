package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paperdesk/internal/backend"
	"paperdesk/internal/cache"
	"paperdesk/internal/config"
	apphttp "paperdesk/internal/http"
	"paperdesk/internal/ledger"
	"paperdesk/internal/log"
	"paperdesk/internal/session"
)

func main() {
	// Local development reads .env; a missing file is fine
	if err := config.LoadDotEnv(".env"); err != nil {
		log.New(log.DefaultConfig()).Error("Failed to read .env", log.FieldError, err)
		os.Exit(1)
	}

	cfg := config.Load()
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := backend.NewFactory(logger).Create(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	sessions := session.NewManager(res.Backend, res.Sessions, cfg.SessionTTL, logger)

	// A nil *amqp.Client must not reach the service as a non-nil interface
	var publisher ledger.Publisher
	if res.Publisher != nil {
		publisher = res.Publisher
	}
	svc := ledger.NewService(res.Backend, publisher, logger)

	srv, err := apphttp.NewServer(":"+cfg.Port, sessions, svc, logger, apphttp.Options{
		Brand:          cfg.BrandName,
		CookieName:     cfg.SessionCookieName,
		CookieSecure:   cfg.CookieSecure,
		BlurGrace:      cfg.BlurGrace,
		MaxViews:       cfg.MaxSessions,
		ViewTTL:        cfg.SessionTTL,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	if err != nil {
		logger.Error("Failed to initialize HTTP server", log.FieldError, err)
		os.Exit(1)
	}
	srv.ReadTimeout = 15 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	if p, ok := res.Sessions.(interface{ Ping(context.Context) error }); ok {
		srv.AddReadinessCheck("session_store", p.Ping)
	}

	caches := cache.NewManager(logger)
	for name, c := range res.Sweepers {
		caches.Register(name, c)
	}
	caches.Register("ledger_views", srv.Views())
	caches.StartCleanup(5 * time.Minute)
	defer caches.Stop()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown, "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting paperdesk server", log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"session_store", cfg.SessionStore,
		"amqp", res.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
