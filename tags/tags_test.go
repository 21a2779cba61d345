package tags

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

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

func TestCache_ReadStoreInvalidate(t *testing.T) {
	c := New(Config{}, nil)
	ctx := context.Background()

	if _, ok := c.Read(ctx, "space-1"); ok {
		t.Error("Read on empty cache should miss")
	}

	urgent := []Tag{{Name: "urgent", Foreground: "#fff", Background: "#f00"}}
	c.Store("space-1", urgent)

	got, ok := c.Read(ctx, "space-1")
	if !ok || len(got) != 1 || got[0].Name != "urgent" {
		t.Errorf("Read = (%v, %v), want the stored tags", got, ok)
	}

	c.Invalidate(ctx, "space-1")
	if _, ok := c.Read(ctx, "space-1"); ok {
		t.Error("Read after Invalidate should miss")
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	clock := newFakeClock()
	c := New(Config{TTL: time.Minute, Now: clock.Now}, nil)
	ctx := context.Background()

	c.Store("space-1", []Tag{{Name: "bug"}})

	clock.Advance(59 * time.Second)
	if _, ok := c.Read(ctx, "space-1"); !ok {
		t.Error("tags should still be live before the TTL")
	}

	clock.Advance(2 * time.Second)
	if _, ok := c.Read(ctx, "space-1"); ok {
		t.Error("tags should expire after the TTL")
	}
}

func TestCache_Ensure(t *testing.T) {
	c := New(Config{}, nil)
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) ([]Tag, error) {
		calls++
		return []Tag{{Name: "feature"}}, nil
	}

	got, err := c.Ensure(ctx, "space-1", false, fetch)
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if len(got) != 1 || got[0].Name != "feature" {
		t.Errorf("Ensure = %v, want the fetched tags", got)
	}

	if _, err := c.Ensure(ctx, "space-1", false, fetch); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("fetch ran %d times, want 1 (second call cached)", calls)
	}

	if _, err := c.Ensure(ctx, "space-1", true, fetch); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("forceRefresh should bypass the live entry, calls = %d", calls)
	}
}

func TestCache_EnsureErrorPassthrough(t *testing.T) {
	c := New(Config{}, nil)
	wantErr := errors.New("upstream 502")

	_, err := c.Ensure(context.Background(), "space-1", false, func(context.Context) ([]Tag, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Ensure error = %v, want passthrough", err)
	}
}

func TestCache_InvalidateAll(t *testing.T) {
	c := New(Config{}, nil)
	ctx := context.Background()

	c.Store("space-1", []Tag{{Name: "a"}})
	c.Store("space-2", []Tag{{Name: "b"}})

	c.InvalidateAll(ctx)

	for _, id := range []string{"space-1", "space-2"} {
		if _, ok := c.Read(ctx, id); ok {
			t.Errorf("space %s should be cleared", id)
		}
	}
}
