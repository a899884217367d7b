package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"paperdesk/internal/core"
	"paperdesk/internal/remote"
	"paperdesk/internal/remote/memory"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestExpiryFromToken(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ttl := 8 * time.Hour

	exp := now.Add(2 * time.Hour)
	if got := ExpiryFromToken(signedToken(t, exp), now, ttl); !got.Equal(exp) {
		t.Fatalf("expected exp claim %v, got %v", exp, got)
	}
	if got := ExpiryFromToken(signedToken(t, now.Add(-time.Hour)), now, ttl); !got.Equal(now.Add(ttl)) {
		t.Fatalf("past exp must fall back to ttl, got %v", got)
	}
	if got := ExpiryFromToken("opaque-token", now, ttl); !got.Equal(now.Add(ttl)) {
		t.Fatalf("opaque token must fall back to ttl, got %v", got)
	}
}

func newBackend() *memory.Store {
	return memory.New([]core.Vendor{
		{ID: 1, Name: "ABC Traders", Types: core.VendorTypes{core.RawMaterial}},
		{ID: 2, Name: "abc traders", Types: core.VendorTypes{core.Dispatch}},
		{ID: 3, Name: "Kumar Pulp", Types: core.VendorTypes{core.RawMaterial}},
	}, memory.WithUser("admin", "secret"))
}

func TestLoginLoadsProfileAndVendors(t *testing.T) {
	store := NewMemoryStore(10, time.Hour)
	m := NewManager(newBackend(), store, time.Hour, nil)
	ctx := context.Background()

	s, err := m.Login(ctx, "admin", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if s.ID == "" || s.Token == "" || s.Username != "admin" {
		t.Fatalf("unexpected session %+v", s)
	}
	if s.Vendors.Len() != 2 {
		t.Fatalf("duplicate vendor names must be dropped, got %d vendors", s.Vendors.Len())
	}
	if !s.ExpiresAt.After(time.Now()) {
		t.Fatalf("session must expire in the future, got %v", s.ExpiresAt)
	}

	got, err := m.Get(ctx, s.ID)
	if err != nil || got.ID != s.ID {
		t.Fatalf("expected stored session, got %v (err=%v)", got, err)
	}

	if err := m.Logout(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after logout, got %v", err)
	}
}

func TestLoginFailure(t *testing.T) {
	m := NewManager(newBackend(), NewMemoryStore(10, time.Hour), time.Hour, nil)
	if _, err := m.Login(context.Background(), "admin", "wrong"); remote.KindOf(err) != remote.KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

type failingVendors struct {
	*memory.Store
	calls atomic.Int32
}

func (f *failingVendors) ListVendors(context.Context, string) ([]core.Vendor, error) {
	f.calls.Add(1)
	return nil, &remote.Error{Kind: remote.KindStatus, Status: 500}
}

func TestLoginFailsWhenVendorsCannotLoad(t *testing.T) {
	backend := &failingVendors{Store: newBackend()}
	store := NewMemoryStore(10, time.Hour)
	m := NewManager(backend, store, time.Hour, nil)
	if _, err := m.Login(context.Background(), "admin", "secret"); remote.KindOf(err) != remote.KindStatus {
		t.Fatalf("expected status error, got %v", err)
	}
	if store.Cache().Size() != 0 {
		t.Fatalf("no session may be stored after a failed login")
	}
}

func TestExpiredSessionIsRemoved(t *testing.T) {
	store := NewMemoryStore(10, time.Hour)
	m := NewManager(newBackend(), store, time.Hour, nil)
	ctx := context.Background()
	s := &Session{ID: "old", ExpiresAt: time.Now().Add(time.Hour)}
	_ = store.Save(ctx, s)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := m.Get(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if store.Cache().Size() != 0 {
		t.Fatalf("expired session must be deleted")
	}
}

func TestRefreshVendors(t *testing.T) {
	backend := newBackend()
	store := NewMemoryStore(10, time.Hour)
	m := NewManager(backend, store, time.Hour, nil)
	ctx := context.Background()
	s, err := m.Login(ctx, "admin", "secret")
	if err != nil {
		t.Fatal(err)
	}
	dir, err := m.RefreshVendors(ctx, s)
	if err != nil || dir.Len() != 2 {
		t.Fatalf("unexpected refresh result %v (err=%v)", dir, err)
	}
	again, _ := m.Get(ctx, s.ID)
	if again.Vendors != dir {
		t.Fatalf("refreshed directory must be stored")
	}
}
