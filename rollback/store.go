package rollback

import (
	"context"
	"errors"
)

var (
	// ErrSnapshotNotFound indicates the snapshot does not exist.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// SnapshotStore persists snapshots. Persistence must complete before
// the owning phase mutates any row; the manager enforces that ordering
// by not returning from Snapshot until Save has succeeded.
type SnapshotStore interface {
	// Save durably persists a snapshot.
	Save(ctx context.Context, snapshot Snapshot) error

	// Get returns a snapshot by id.
	// Returns ErrSnapshotNotFound if it does not exist.
	Get(ctx context.Context, id string) (Snapshot, error)

	// MarkRestored marks a snapshot as applied.
	// Returns ErrSnapshotNotFound if it does not exist.
	MarkRestored(ctx context.Context, id string) error

	// Delete discards a snapshot after its phase commits.
	// Deleting an absent snapshot is a no-op.
	Delete(ctx context.Context, id string) error
}
