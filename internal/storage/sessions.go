// Package storage persists dashboard sessions in SQLite so logins survive
// a restart.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"paperdesk/internal/log"
	"paperdesk/internal/session"
	"paperdesk/internal/vendors"
)

// SessionRepository implements session.Store on SQLite.
type SessionRepository struct {
	db     *sql.DB
	logger *log.Logger
	now    func() time.Time
}

var _ session.Store = (*SessionRepository)(nil)

func NewSessionRepository(dbPath string, logger *log.Logger) (*SessionRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	return &SessionRepository{
		db:     db,
		logger: logger.WithComponent(log.ComponentStorage),
		now:    time.Now,
	}, nil
}

func (r *SessionRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection, for readiness probes.
func (r *SessionRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SessionRepository) Save(ctx context.Context, s *session.Session) error {
	dir := s.Vendors
	if dir == nil {
		dir = vendors.Empty()
	}
	data, err := dir.Encode()
	if err != nil {
		return fmt.Errorf("encode vendors: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, token, user_id, username, vendors, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			user_id = excluded.user_id,
			username = excluded.username,
			vendors = excluded.vendors,
			expires_at = excluded.expires_at`,
		s.ID, s.Token, s.UserID, s.Username, string(data), s.CreatedAt.Unix(), s.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load returns the session. A vendor column that cannot be decoded is
// logged and treated as an empty directory.
func (r *SessionRepository) Load(ctx context.Context, id string) (*session.Session, error) {
	var (
		s                  session.Session
		raw                string
		created, expiresAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, token, user_id, username, vendors, created_at, expires_at
		FROM sessions WHERE id = ?`, id).
		Scan(&s.ID, &s.Token, &s.UserID, &s.Username, &raw, &created, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	s.CreatedAt = time.Unix(created, 0)
	s.ExpiresAt = time.Unix(expiresAt, 0)

	dir, dups, err := vendors.Decode([]byte(raw))
	if err != nil {
		r.logger.ErrorContext(ctx, "Stored vendor directory unreadable", log.FieldSessionID, id, log.FieldError, err)
		dir = vendors.Empty()
	}
	for _, d := range dups {
		r.logger.WarnContext(ctx, "Duplicate vendor name dropped", log.FieldVendor, d.Name)
	}
	s.Vendors = dir
	return &s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CleanExpired deletes expired sessions and returns how many went. It
// satisfies cache.Cleaner so the cache manager can sweep it.
func (r *SessionRepository) CleanExpired() int {
	res, err := r.db.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, r.now().Unix())
	if err != nil {
		r.logger.Error("Failed to purge expired sessions", log.FieldError, err)
		return 0
	}
	n, _ := res.RowsAffected()
	return int(n)
}
