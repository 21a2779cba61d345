package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestStore_GetSetDelete(t *testing.T) {
	store := NewStore[string](DefaultConfig())

	if _, ok := store.Get("missing"); ok {
		t.Error("Get on empty store should miss")
	}

	store.Set("k", "v")
	got, ok := store.Get("k")
	if !ok || got != "v" {
		t.Errorf("Get = (%q, %v), want (%q, true)", got, ok, "v")
	}

	if !store.Delete("k") {
		t.Error("Delete should report the key existed")
	}
	if _, ok := store.Get("k"); ok {
		t.Error("Get after Delete should miss")
	}
	if store.Delete("k") {
		t.Error("Delete should be idempotent")
	}
}

func TestStore_TTLBoundary(t *testing.T) {
	clock := newFakeClock()
	store := NewStore[int](Config{TTL: 5 * time.Second, Now: clock.Now})

	store.Set("k", 42)

	// Exactly at expiry the entry is still live (expired iff now > expiresAt).
	clock.Advance(5 * time.Second)
	if _, ok := store.Get("k"); !ok {
		t.Error("entry at exactly storedAt+ttl should still be live")
	}

	// One tick past expiry it is gone, and the miss deletes it.
	clock.Advance(time.Millisecond)
	if _, ok := store.Get("k"); ok {
		t.Error("entry past expiry should miss")
	}
	if store.Len() != 0 {
		t.Errorf("expired read should delete the entry, Len = %d", store.Len())
	}
}

func TestStore_DisabledTTL(t *testing.T) {
	store := NewStore[int](Config{TTL: -1})
	store.Set("k", 1)
	if store.Len() != 0 {
		t.Error("Set with TTL <= 0 should be a no-op")
	}
}

func TestStore_EvictsOldestFirst(t *testing.T) {
	clock := newFakeClock()
	store := NewStore[string](Config{TTL: time.Hour, MaxEntries: 2, Now: clock.Now})

	var evicted []string
	store.OnEvict = func(key string, _ Entry[string]) {
		evicted = append(evicted, key)
	}

	store.Set("a", "1")
	clock.Advance(time.Second)
	store.Set("b", "2")
	clock.Advance(time.Second)
	store.Set("c", "3")

	if store.Len() != 2 {
		t.Fatalf("Len = %d, want 2", store.Len())
	}
	if _, ok := store.Get("a"); ok {
		t.Error("oldest entry should have been evicted")
	}
	for _, key := range []string{"b", "c"} {
		if _, ok := store.Get(key); !ok {
			t.Errorf("entry %q should survive eviction", key)
		}
	}
	if len(evicted) != 1 || evicted[0] != "a" {
		t.Errorf("OnEvict saw %v, want [a]", evicted)
	}
}

func TestStore_DeleteFunc(t *testing.T) {
	store := NewStore[string](DefaultConfig())
	store.Set("folders:s1", "x")
	store.Set("folders:s2", "y")
	store.Set("lists:space:s1", "z")

	n := store.DeleteFunc(func(key string, _ Entry[string]) bool {
		return key == "folders:s1" || key == "lists:space:s1"
	})
	if n != 2 {
		t.Errorf("DeleteFunc removed %d, want 2", n)
	}
	if _, ok := store.Get("folders:s2"); !ok {
		t.Error("unmatched entry should survive")
	}
}

func TestStore_ForEachOrderAndExpiry(t *testing.T) {
	clock := newFakeClock()
	store := NewStore[int](Config{TTL: time.Minute, Now: clock.Now})

	store.Set("b", 2)
	store.Set("a", 1)
	clock.Advance(2 * time.Minute)
	store.Set("c", 3)

	var keys []string
	store.ForEach(func(key string, _ Entry[int]) bool {
		keys = append(keys, key)
		return true
	})
	if len(keys) != 1 || keys[0] != "c" {
		t.Errorf("ForEach visited %v, want [c] (expired entries skipped)", keys)
	}
}

func TestStore_EnsureHitMissForce(t *testing.T) {
	clock := newFakeClock()
	store := NewStore[string](Config{TTL: time.Minute, Now: clock.Now})
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) (string, error) {
		calls++
		return "fetched", nil
	}

	entry, fromCache, err := store.Ensure(ctx, "k", false, fetch)
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if fromCache || entry.Value != "fetched" || calls != 1 {
		t.Errorf("first Ensure = (%q, fromCache=%v, calls=%d)", entry.Value, fromCache, calls)
	}

	_, fromCache, err = store.Ensure(ctx, "k", false, fetch)
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if !fromCache || calls != 1 {
		t.Errorf("second Ensure should hit cache, fromCache=%v calls=%d", fromCache, calls)
	}

	// forceRefresh bypasses a live entry and overwrites it.
	_, fromCache, err = store.Ensure(ctx, "k", true, func(context.Context) (string, error) {
		calls++
		return "replaced", nil
	})
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if fromCache || calls != 2 {
		t.Errorf("forced Ensure should refetch, fromCache=%v calls=%d", fromCache, calls)
	}
	if got, _ := store.Get("k"); got != "replaced" {
		t.Errorf("forced Ensure should overwrite, got %q", got)
	}
}

func TestStore_EnsureErrorPassthrough(t *testing.T) {
	store := NewStore[string](DefaultConfig())
	wantErr := errors.New("upstream down")

	_, _, err := store.Ensure(context.Background(), "k", false, func(context.Context) (string, error) {
		return "", wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Ensure error = %v, want passthrough of %v", err, wantErr)
	}
	if store.Len() != 0 {
		t.Error("nothing should be stored on fetch error")
	}
}

func TestStore_EnsureCoalescesConcurrentMisses(t *testing.T) {
	store := NewStore[string](DefaultConfig())
	ctx := context.Background()

	var calls atomic.Int64
	release := make(chan struct{})
	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([]string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry, _, err := store.Ensure(ctx, "k", false, fetch)
			if err != nil {
				t.Errorf("Ensure failed: %v", err)
				return
			}
			results[i] = entry.Value
		}(i)
	}

	// Give the goroutines a moment to pile onto the flight, then release.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("fetch ran %d times, want 1 (coalesced)", got)
	}
	for i, r := range results {
		if r != "shared" {
			t.Errorf("worker %d got %q, want %q", i, r, "shared")
		}
	}
}
