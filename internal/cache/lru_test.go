package cache

import (
	"testing"
	"time"
)

func TestLRUEvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)
	var evicted []string
	c.OnEvict(func(k string, _ int) { evicted = append(evicted, k) })

	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted as least recently used")
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("unexpected evictions %v", evicted)
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("short", "x")
	c.SetUntil("long", "y", now.Add(time.Hour))

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("short"); ok {
		t.Fatal("short should have expired")
	}
	if v, ok := c.Get("long"); !ok || v != "y" {
		t.Fatal("long should still be live")
	}

	now = now.Add(2 * time.Hour)
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("expected 1 expired entry, got %d", n)
	}
}

func TestDeleteDoesNotNotify(t *testing.T) {
	c := NewLRUCache[int](10, time.Hour)
	called := false
	c.OnEvict(func(string, int) { called = true })
	c.Set("a", 1)
	c.Delete("a")
	if called || c.Size() != 0 {
		t.Fatal("delete must remove silently")
	}
}

func TestManagerSweep(t *testing.T) {
	c := NewLRUCache[int](10, time.Nanosecond)
	c.Set("a", 1)
	time.Sleep(time.Millisecond)
	m := NewManager(nil)
	m.Register("test", c)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("expected 1 removed, got %d", n)
	}
	m.StartCleanup(time.Hour)
	m.Stop()
}
