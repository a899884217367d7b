package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"paperdesk/internal/core"
	"paperdesk/internal/log"
	"paperdesk/internal/remote"
	"paperdesk/internal/vendors"
)

// Backend is what login needs from the remote service.
type Backend interface {
	remote.Authenticator
	remote.VendorLister
}

type Manager struct {
	backend Backend
	store   Store
	ttl     time.Duration
	logger  *log.Logger
	now     func() time.Time
}

func NewManager(backend Backend, store Store, ttl time.Duration, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{
		backend: backend,
		store:   store,
		ttl:     ttl,
		logger:  logger.WithComponent(log.ComponentSession),
		now:     time.Now,
	}
}

// Login exchanges credentials for a token, then loads the profile and the
// vendor directory concurrently.
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	token, err := m.backend.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	var (
		profile remote.Profile
		list    []core.Vendor
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := m.backend.Me(gctx, token)
		profile = p
		return err
	})
	g.Go(func() error {
		vs, err := m.backend.ListVendors(gctx, token)
		list = vs
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		Token:     token,
		UserID:    profile.ID,
		Username:  profile.Username,
		Vendors:   m.directory(ctx, list),
		CreatedAt: now,
		ExpiresAt: ExpiryFromToken(token, now, m.ttl),
	}
	if s.Username == "" {
		s.Username = username
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	m.logger.InfoContext(ctx, "User logged in",
		log.FieldUsername, s.Username,
		log.FieldSessionID, s.ID,
		log.FieldCount, s.Vendors.Len(),
		"expires_at", s.ExpiresAt)
	return s, nil
}

// Get returns a live session. Expired sessions are removed.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	s, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Expired(m.now()) {
		_ = m.store.Delete(ctx, id)
		return nil, ErrNotFound
	}
	return s, nil
}

// Logout forgets the session. Unknown ids are not an error.
func (m *Manager) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	m.logger.InfoContext(ctx, "User logged out", log.FieldSessionID, id)
	return nil
}

// RefreshVendors reloads the vendor directory for a session.
func (m *Manager) RefreshVendors(ctx context.Context, s *Session) (*vendors.Directory, error) {
	list, err := m.backend.ListVendors(ctx, s.Token)
	if err != nil {
		return nil, err
	}
	updated := *s
	updated.Vendors = m.directory(ctx, list)
	if err := m.store.Save(ctx, &updated); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	m.logger.InfoContext(ctx, "Vendor directory refreshed", log.FieldSessionID, s.ID, log.FieldCount, updated.Vendors.Len())
	return updated.Vendors, nil
}

func (m *Manager) directory(ctx context.Context, list []core.Vendor) *vendors.Directory {
	dir, dups := vendors.New(list)
	for _, d := range dups {
		m.logger.WarnContext(ctx, "Duplicate vendor name dropped", log.FieldVendor, d.Name, "vendor_id", d.ID)
	}
	return dir
}
