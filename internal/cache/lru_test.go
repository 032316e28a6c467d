package cache

import (
	"testing"
	"time"
)

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // b is now least recently used
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, key := range []string{"a", "c"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("%s should still be cached", key)
		}
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestLRU_Expiry(t *testing.T) {
	c := NewLRU[string](10, time.Minute)
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("2025-03", "tab")
	now = now.Add(59 * time.Second)
	if v, ok := c.Get("2025-03"); !ok || v != "tab" {
		t.Fatalf("Get() = %q, %v before expiry", v, ok)
	}

	now = now.Add(time.Second)
	if _, ok := c.Get("2025-03"); ok {
		t.Error("entry should expire after ttl")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be removed on access, Len() = %d", c.Len())
	}
}

func TestLRU_SetRefreshesAndDelete(t *testing.T) {
	c := NewLRU[int](0, time.Hour)
	c.Set("k", 1)
	c.Set("k", 2)
	if v, _ := c.Get("k"); v != 2 {
		t.Errorf("Get() = %d, want 2", v)
	}
	c.Set("other", 3)
	if _, ok := c.Get("k"); ok {
		t.Error("size is clamped to 1, k should be evicted")
	}
	c.Delete("other")
	if c.Len() != 0 {
		t.Errorf("Len() = %d after delete", c.Len())
	}
}
