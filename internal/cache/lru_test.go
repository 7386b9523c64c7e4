package cache

import (
	"testing"
	"time"
)

func newTestCache(maxSize int, ttl time.Duration) (*LRUCache[string], *time.Time) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](maxSize, ttl)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // b is now the oldest
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Errorf("expected a to survive, got %q %v", v, ok)
	}
	if c.Stats().Evictions != 1 {
		t.Errorf("expected 1 eviction, got %+v", c.Stats())
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c, now := newTestCache(10, time.Minute)
	c.Set("roster", "v1")
	c.Set("other", "v2")

	*now = now.Add(30 * time.Second)
	if _, ok := c.Get("roster"); !ok {
		t.Fatal("entry should still be fresh")
	}

	*now = now.Add(time.Minute)
	if removed := c.CleanExpired(); removed != 2 {
		t.Errorf("expected 2 expired entries, got %d", removed)
	}
	if _, ok := c.Get("roster"); ok {
		t.Error("expired entry returned")
	}
	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestLRUCachePurge(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Purge()
	if c.Size() != 0 {
		t.Errorf("expected empty cache after purge, got %d", c.Size())
	}
	c.Set("a", "3")
	if v, _ := c.Get("a"); v != "3" {
		t.Errorf("cache unusable after purge, got %q", v)
	}
}

func TestManagerCleanNow(t *testing.T) {
	c, now := newTestCache(10, time.Second)
	c.Set("a", "1")
	m := NewManager()
	m.Register(c)
	*now = now.Add(2 * time.Second)
	if n := m.CleanNow(); n != 1 {
		t.Errorf("expected 1 cleaned entry, got %d", n)
	}
	m.Stop() // no-op when never started
}
