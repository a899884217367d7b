package backend

import (
	"fmt"
	"time"

	"paperdesk/internal/config"
)

// Type selects where ledger data comes from.
type Type string

const (
	RESTBackend   Type = "rest"
	MemoryBackend Type = "memory"
)

func (t Type) IsValid() bool {
	return t == RESTBackend || t == MemoryBackend
}

func (t Type) String() string {
	return string(t)
}

// StoreType selects where sessions live.
type StoreType string

const (
	MemoryStore StoreType = "memory"
	SQLiteStore StoreType = "sqlite"
)

func (t StoreType) IsValid() bool {
	return t == MemoryStore || t == SQLiteStore
}

// Config holds configuration for backend creation
type Config struct {
	Type       Type
	APIBaseURL string
	APITimeout time.Duration
	SeedDir    string

	SessionStore StoreType
	SQLiteDBPath string
	MaxSessions  int
	SessionTTL   time.Duration

	// AMQP is optional; an empty URL disables publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	c := Config{
		Type:         Type(appConfig.DataBackend),
		APIBaseURL:   appConfig.APIBaseURL,
		APITimeout:   appConfig.APITimeout,
		SeedDir:      appConfig.SeedDir,
		SessionStore: StoreType(appConfig.SessionStore),
		SQLiteDBPath: appConfig.SQLiteDBPath,
		MaxSessions:  appConfig.MaxSessions,
		SessionTTL:   appConfig.SessionTTL,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == RESTBackend && c.APIBaseURL == "" {
		return fmt.Errorf("API base URL is required for rest backend")
	}
	if !c.SessionStore.IsValid() {
		return fmt.Errorf("invalid session store: %s", c.SessionStore)
	}
	if c.SessionStore == SQLiteStore && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite session store")
	}
	return nil
}

// Types returns all valid backend types
func Types() []Type {
	return []Type{RESTBackend, MemoryBackend}
}
