// Package session manages logged-in dashboard users: the backend token,
// the user's profile and the vendor directory loaded at login.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"paperdesk/internal/cache"
	"paperdesk/internal/vendors"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID        string
	Token     string
	UserID    int64
	Username  string
	Vendors   *vendors.Directory
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its deadline.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists sessions between requests.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// ExpiryFromToken returns the token's exp claim when it lies in the
// future, else now+ttl. The signature is not checked; the backend remains
// the authority on the token.
func ExpiryFromToken(token string, now time.Time, ttl time.Duration) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		if exp := claims.ExpiresAt.Time; exp.After(now) {
			return exp
		}
	}
	return now.Add(ttl)
}

// MemoryStore keeps sessions in an LRU cache, each expiring at its own
// deadline.
type MemoryStore struct {
	items *cache.LRUCache[*Session]
}

func NewMemoryStore(maxSessions int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{items: cache.NewLRUCache[*Session](maxSessions, ttl)}
}

// Cache exposes the underlying cache for registration with a cache.Manager.
func (m *MemoryStore) Cache() *cache.LRUCache[*Session] {
	return m.items
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.items.SetUntil(s.ID, s, s.ExpiresAt)
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	s, ok := m.items.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.items.Delete(id)
	return nil
}
