package session

import (
	"context"
	"sync"
)

// Store persists opaque snapshots keyed by team ID.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Load returns (nil, nil) when no snapshot exists; callers must
//   treat any error as "no snapshot" and keep functioning in-memory.
type Store interface {
	// Load returns the stored snapshot for the team, or (nil, nil).
	Load(ctx context.Context, teamID string) ([]byte, error)

	// Save stores the snapshot for the team, replacing any previous one.
	Save(ctx context.Context, teamID string, snapshot []byte) error
}

// MemoryStore is an in-process Store, useful for tests and single-session
// deployments.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string][]byte)}
}

// Load returns the stored snapshot for the team, or (nil, nil).
func (s *MemoryStore) Load(_ context.Context, teamID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[teamID]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(snapshot))
	copy(out, snapshot)
	return out, nil
}

// Save stores a copy of the snapshot for the team.
func (s *MemoryStore) Save(_ context.Context, teamID string, snapshot []byte) error {
	stored := make([]byte, len(snapshot))
	copy(stored, snapshot)

	s.mu.Lock()
	s.snapshots[teamID] = stored
	s.mu.Unlock()
	return nil
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
