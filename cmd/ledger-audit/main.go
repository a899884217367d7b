package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"paperdesk/internal/amqp"
	"paperdesk/internal/config"
	"paperdesk/internal/log"
	"paperdesk/internal/worker"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.New(log.DefaultConfig()).Error("Failed to read .env", log.FieldError, err)
		os.Exit(1)
	}

	cfg := config.Load()
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentAudit,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)

	logger.Info("Starting ledger-audit")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for ledger-audit")
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	audit := worker.NewAuditWorker(logger)
	err = client.ConsumeTransactionChanges(ctx, audit.HandleTransactionChanged)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped", log.FieldError, err)
	}

	handled, rejected := audit.Counts()
	audit.LogSummary(context.Background())
	logger.Info("ledger-audit stopped", "handled", handled, "rejected", rejected)
}
