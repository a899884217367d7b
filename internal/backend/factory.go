package backend

import (
	"context"
	"fmt"

	"paperdesk/internal/amqp"
	"paperdesk/internal/cache"
	"paperdesk/internal/log"
	"paperdesk/internal/remote"
	"paperdesk/internal/remote/memory"
	"paperdesk/internal/remote/rest"
	"paperdesk/internal/session"
	"paperdesk/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Create builds the remote backend, the session store and, when
// configured, the AMQP publisher. AMQP failures are logged and the
// dashboard runs without events.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	res := &Result{Sweepers: make(map[string]cache.Cleaner)}

	remoteBackend, err := f.createRemote(config)
	if err != nil {
		return nil, err
	}
	res.Backend = remoteBackend

	if err := f.createSessionStore(config, res); err != nil {
		_ = res.Close()
		return nil, err
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
			res.Publisher = client
			res.cleanups = append(res.cleanups, client.Close)
		}
	}
	return res, nil
}

func (f *DefaultFactory) createRemote(config Config) (remote.Backend, error) {
	switch config.Type {
	case RESTBackend:
		f.logger.Info("Initialized REST backend", "base_url", config.APIBaseURL, "timeout", config.APITimeout)
		return rest.New(config.APIBaseURL, config.APITimeout, rest.WithLogger(f.logger)), nil
	case MemoryBackend:
		dir := config.SeedDir
		if dir == "" {
			dir = "data"
		}
		store := memory.NewFromFiles(dir)
		f.logger.Info("Initialized memory backend", "data_directory", dir)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSessionStore(config Config, res *Result) error {
	switch config.SessionStore {
	case SQLiteStore:
		repo, err := storage.NewSessionRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize SQLite session store: %w", err)
		}
		res.Sessions = repo
		res.Sweepers["sessions"] = repo
		res.cleanups = append(res.cleanups, repo.Close)
		f.logger.Info("Initialized SQLite session store", "db_path", config.SQLiteDBPath)
	default:
		limit := config.MaxSessions
		if limit <= 0 {
			limit = 1000
		}
		store := session.NewMemoryStore(limit, config.SessionTTL)
		res.Sessions = store
		res.Sweepers["sessions"] = store.Cache()
		f.logger.Info("Initialized in-memory session store", "max_sessions", limit)
	}
	return nil
}
