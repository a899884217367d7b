package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"paperdesk/internal/config"
	"paperdesk/internal/remote/memory"
	"paperdesk/internal/remote/rest"
	"paperdesk/internal/session"
	"paperdesk/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	app := &config.Config{
		DataBackend:  "memory",
		SeedDir:      "seed",
		SessionStore: "memory",
		MaxSessions:  5,
		SessionTTL:   time.Hour,
	}
	c, err := FromAppConfig(app)
	if err != nil {
		t.Fatal(err)
	}
	if c.Type != MemoryBackend || c.SeedDir != "seed" || c.SessionStore != MemoryStore || c.MaxSessions != 5 {
		t.Fatalf("unexpected config %+v", c)
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("nil config must fail")
	}
	app.DataBackend = "sheets"
	if _, err := FromAppConfig(app); err == nil || !strings.Contains(err.Error(), "invalid backend type") {
		t.Fatalf("got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"rest without url", Config{Type: RESTBackend, SessionStore: MemoryStore}, "API base URL is required"},
		{"bad store", Config{Type: MemoryBackend, SessionStore: "redis"}, "invalid session store"},
		{"sqlite without path", Config{Type: MemoryBackend, SessionStore: SQLiteStore}, "SQLite database path is required"},
		{"ok", Config{Type: RESTBackend, APIBaseURL: "http://x", SessionStore: MemoryStore}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("got %v, want %q", err, tt.want)
			}
		})
	}
}

func TestFactory_Memory(t *testing.T) {
	res, err := NewFactory(nil).Create(context.Background(), Config{
		Type:         MemoryBackend,
		SeedDir:      t.TempDir(),
		SessionStore: MemoryStore,
		SessionTTL:   time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if _, ok := res.Backend.(*memory.Store); !ok {
		t.Fatalf("backend = %T, want *memory.Store", res.Backend)
	}
	if _, ok := res.Sessions.(*session.MemoryStore); !ok {
		t.Fatalf("sessions = %T", res.Sessions)
	}
	if res.Publisher != nil {
		t.Fatal("publisher must be nil without AMQP_URL")
	}
	if _, ok := res.Sweepers["sessions"]; !ok {
		t.Fatal("session store must be registered for sweeping")
	}
}

func TestFactory_RESTWithSQLiteSessions(t *testing.T) {
	res, err := NewFactory(nil).Create(context.Background(), Config{
		Type:         RESTBackend,
		APIBaseURL:   "http://localhost:8080",
		APITimeout:   time.Second,
		SessionStore: SQLiteStore,
		SQLiteDBPath: filepath.Join(t.TempDir(), "sessions.db"),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if _, ok := res.Backend.(*rest.Client); !ok {
		t.Fatalf("backend = %T, want *rest.Client", res.Backend)
	}
	if _, ok := res.Sessions.(*storage.SessionRepository); !ok {
		t.Fatalf("sessions = %T", res.Sessions)
	}
}
