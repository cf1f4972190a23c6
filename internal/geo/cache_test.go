package geo

import (
	"fmt"
	"testing"
	"time"
)

func TestTTLCacheExpiry(t *testing.T) {
	cache := newTTLCache[string](time.Hour, 0)
	start := time.Now()

	cache.put("k", "v", start)

	if got, ok := cache.get("k", start.Add(59*time.Minute)); !ok || got != "v" {
		t.Fatalf("get before TTL = (%q, %v), want (v, true)", got, ok)
	}

	if _, ok := cache.get("k", start.Add(time.Hour)); ok {
		t.Fatal("entry should expire at TTL")
	}

	// Lazy eviction removed the entry on that lookup.
	if cache.len() != 0 {
		t.Fatalf("cache.len() = %d, want 0 after expired lookup", cache.len())
	}
}

func TestTTLCacheOverwriteRefreshesTimestamp(t *testing.T) {
	cache := newTTLCache[int](time.Hour, 0)
	start := time.Now()

	cache.put("k", 1, start)
	cache.put("k", 2, start.Add(30*time.Minute))

	if got, ok := cache.get("k", start.Add(80*time.Minute)); !ok || got != 2 {
		t.Fatalf("get = (%d, %v), want (2, true): overwrite should refresh the timestamp", got, ok)
	}
}

func TestTTLCacheCapEvictsOldest(t *testing.T) {
	cache := newTTLCache[int](time.Hour, 3)
	start := time.Now()

	for i := 0; i < 3; i++ {
		cache.put(fmt.Sprintf("k%d", i), i, start.Add(time.Duration(i)*time.Minute))
	}
	cache.put("k3", 3, start.Add(3*time.Minute))

	if cache.len() != 3 {
		t.Fatalf("cache.len() = %d, want 3", cache.len())
	}
	if _, ok := cache.get("k0", start.Add(4*time.Minute)); ok {
		t.Error("oldest entry k0 should have been evicted")
	}
	for i := 1; i <= 3; i++ {
		if _, ok := cache.get(fmt.Sprintf("k%d", i), start.Add(4*time.Minute)); !ok {
			t.Errorf("entry k%d should survive eviction", i)
		}
	}
}

func TestTTLCacheCapPrefersExpiredEntries(t *testing.T) {
	cache := newTTLCache[int](10*time.Minute, 2)
	start := time.Now()

	cache.put("stale", 0, start)
	cache.put("fresh", 1, start.Add(9*time.Minute))
	// "stale" is past its TTL by now; the insert should drop it, not "fresh".
	cache.put("new", 2, start.Add(11*time.Minute))

	if _, ok := cache.get("fresh", start.Add(11*time.Minute)); !ok {
		t.Error("unexpired entry evicted while an expired one existed")
	}
	if _, ok := cache.get("new", start.Add(11*time.Minute)); !ok {
		t.Error("new entry missing after insert")
	}
}
