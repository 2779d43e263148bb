package memory

import (
	"context"
	"sync"

	"github.com/schemashift/migrate/rollback"
)

// Store is an in-memory implementation of rollback.SnapshotStore for
// testing and examples. It provides thread-safe access using a
// sync.RWMutex.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]rollback.Snapshot
}

// Compile-time check that Store implements rollback.SnapshotStore.
var _ rollback.SnapshotStore = (*Store)(nil)

// New creates a new in-memory snapshot store.
func New() *Store {
	return &Store{
		snapshots: make(map[string]rollback.Snapshot),
	}
}

// Save persists a snapshot.
func (s *Store) Save(ctx context.Context, snapshot rollback.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[snapshot.ID] = snapshot
	return nil
}

// Get returns a snapshot by id.
// Returns rollback.ErrSnapshotNotFound if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (rollback.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[id]
	if !ok {
		return rollback.Snapshot{}, rollback.ErrSnapshotNotFound
	}

	return snapshot, nil
}

// MarkRestored marks a snapshot as applied.
// Returns rollback.ErrSnapshotNotFound if it does not exist.
func (s *Store) MarkRestored(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, ok := s.snapshots[id]
	if !ok {
		return rollback.ErrSnapshotNotFound
	}

	snapshot.Restored = true
	s.snapshots[id] = snapshot
	return nil
}

// Delete discards a snapshot. Deleting an absent snapshot is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.snapshots, id)
	return nil
}

// Len returns the number of stored snapshots.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.snapshots)
}
