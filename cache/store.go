package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Entry is a stored value with its fetch and expiry timestamps.
type Entry[V any] struct {
	Value     V
	FetchedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry is past its expiry at the given time.
func (e Entry[V]) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Store is a keyed TTL store.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: Get never errors; it returns (zero, false) on miss.
// - Expiry: expired entries are deleted lazily on read.
type Store[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]
	config  Config
	group   singleflight.Group

	// OnEvict, when set, is called for every entry removed by
	// size-pressure eviction. It runs outside the store lock. Explicit
	// deletes do not trigger it; callers own their invalidation cascades.
	OnEvict func(key string, entry Entry[V])
}

// NewStore creates a new store with the given configuration.
func NewStore[V any](config Config) *Store[V] {
	if config.TTL == 0 {
		config.TTL = DefaultConfig().TTL
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Store[V]{
		entries: make(map[string]Entry[V]),
		config:  config,
	}
}

// TTL returns the configured entry lifetime.
func (s *Store[V]) TTL() time.Duration {
	return s.config.TTL
}

// Get retrieves a value. Returns (zero, false) on miss or expiry.
func (s *Store[V]) Get(key string) (V, bool) {
	entry, ok := s.GetEntry(key)
	if !ok {
		var zero V
		return zero, false
	}
	return entry.Value, true
}

// GetEntry retrieves a value with its timestamps. Expired entries are
// deleted as a side effect.
func (s *Store[V]) GetEntry(key string) (Entry[V], bool) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return Entry[V]{}, false
	}

	if entry.Expired(s.config.Now()) {
		// Expired - clean up lazily
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return Entry[V]{}, false
	}

	return entry, true
}

// Set stores a value with the configured TTL. A no-op when TTL <= 0.
func (s *Store[V]) Set(key string, value V) {
	if s.config.TTL <= 0 {
		return
	}
	now := s.config.Now()
	s.SetEntry(key, Entry[V]{
		Value:     value,
		FetchedAt: now,
		ExpiresAt: now.Add(s.config.TTL),
	})
}

// SetEntry stores an entry with explicit timestamps. Used to restore
// persisted snapshots without refreshing their fetch time.
func (s *Store[V]) SetEntry(key string, entry Entry[V]) {
	if s.config.TTL <= 0 {
		return
	}

	s.mu.Lock()
	s.entries[key] = entry
	evicted := s.evictLocked()
	s.mu.Unlock()

	if s.OnEvict != nil {
		for _, ev := range evicted {
			s.OnEvict(ev.key, ev.entry)
		}
	}
}

// Delete removes a value. Idempotent; reports whether the key existed.
func (s *Store[V]) Delete(key string) bool {
	s.mu.Lock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	s.mu.Unlock()
	return ok
}

// DeleteFunc removes every entry the predicate matches and returns the
// number of deleted entries.
func (s *Store[V]) DeleteFunc(match func(key string, entry Entry[V]) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for key, entry := range s.entries {
		if match(key, entry) {
			delete(s.entries, key)
			deleted++
		}
	}
	return deleted
}

// Clear removes all entries and returns the number removed.
func (s *Store[V]) Clear() int {
	s.mu.Lock()
	n := len(s.entries)
	s.entries = make(map[string]Entry[V])
	s.mu.Unlock()
	return n
}

// Len returns the number of stored entries, expired ones included.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// ForEach calls fn for every live entry on a point-in-time snapshot.
// Returning false stops the iteration. Iteration order is sorted by key
// so scans behave identically regardless of map ordering.
func (s *Store[V]) ForEach(fn func(key string, entry Entry[V]) bool) {
	now := s.config.Now()

	s.mu.RLock()
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	snapshot := make([]Entry[V], len(keys))
	for i, key := range keys {
		snapshot[i] = s.entries[key]
	}
	s.mu.RUnlock()

	for i, key := range keys {
		if snapshot[i].Expired(now) {
			continue
		}
		if !fn(key, snapshot[i]) {
			return
		}
	}
}

// Ensure returns the live entry for key, or invokes fetch on a miss (or
// when forceRefresh is set), stores the result, and returns it. The bool
// reports whether the value came from cache. Concurrent misses on the
// same key share a single fetch.
//
// Fetch errors pass through unwrapped; nothing is stored on error.
func (s *Store[V]) Ensure(ctx context.Context, key string, forceRefresh bool, fetch func(ctx context.Context) (V, error)) (Entry[V], bool, error) {
	if !forceRefresh {
		if entry, ok := s.GetEntry(key); ok {
			return entry, true, nil
		}
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		if !forceRefresh {
			// Another flight may have populated the key while this call
			// waited on the group.
			if entry, ok := s.GetEntry(key); ok {
				return entry, nil
			}
		}

		value, err := fetch(ctx)
		if err != nil {
			return Entry[V]{}, err
		}

		now := s.config.Now()
		entry := Entry[V]{
			Value:     value,
			FetchedAt: now,
			ExpiresAt: now.Add(s.config.TTL),
		}
		s.SetEntry(key, entry)
		return entry, nil
	})
	if err != nil {
		return Entry[V]{}, false, err
	}

	return v.(Entry[V]), false, nil
}

type evictedEntry[V any] struct {
	key   string
	entry Entry[V]
}

// evictLocked removes the oldest-fetched entries above the size cap.
// Caller must hold the write lock.
func (s *Store[V]) evictLocked() []evictedEntry[V] {
	if s.config.MaxEntries <= 0 || len(s.entries) <= s.config.MaxEntries {
		return nil
	}

	all := make([]evictedEntry[V], 0, len(s.entries))
	for key, entry := range s.entries {
		all = append(all, evictedEntry[V]{key: key, entry: entry})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].entry.FetchedAt.Equal(all[j].entry.FetchedAt) {
			return all[i].key < all[j].key
		}
		return all[i].entry.FetchedAt.Before(all[j].entry.FetchedAt)
	})

	excess := all[:len(s.entries)-s.config.MaxEntries]
	for _, ev := range excess {
		delete(s.entries, ev.key)
	}
	return excess
}
