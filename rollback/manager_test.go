package rollback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemashift/migrate"
	"github.com/schemashift/migrate/store"
	"github.com/schemashift/migrate/store/memory"
)

// memorySnapshots is a minimal in-memory SnapshotStore for manager tests.
// The dedicated memory package has its own tests; using a local copy here
// avoids an import cycle between rollback and rollback/memory.
type memorySnapshots struct {
	snapshots map[string]Snapshot
	saveErr   error
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{snapshots: make(map[string]Snapshot)}
}

func (s *memorySnapshots) Save(ctx context.Context, snapshot Snapshot) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snapshots[snapshot.ID] = snapshot
	return nil
}

func (s *memorySnapshots) Get(ctx context.Context, id string) (Snapshot, error) {
	snapshot, ok := s.snapshots[id]
	if !ok {
		return Snapshot{}, ErrSnapshotNotFound
	}
	return snapshot, nil
}

func (s *memorySnapshots) MarkRestored(ctx context.Context, id string) error {
	snapshot, ok := s.snapshots[id]
	if !ok {
		return ErrSnapshotNotFound
	}
	snapshot.Restored = true
	s.snapshots[id] = snapshot
	return nil
}

func (s *memorySnapshots) Delete(ctx context.Context, id string) error {
	delete(s.snapshots, id)
	return nil
}

func TestSnapshot_CapturesBeforeImagesAndTombstones(t *testing.T) {
	s := memory.New()
	snapshots := newMemorySnapshots()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "accounts", []migrate.Row{
		migrate.NewMapRowWithFields("a-1", map[migrate.FieldID]any{"tier": "pro"}),
	}))

	manager := New(Config{Store: s, Snapshots: snapshots})
	snapshot, err := manager.Snapshot(ctx, "p-1", "run-1", "accounts", []migrate.RowKey{"a-1", "a-2"})
	require.NoError(t, err)

	assert.NotEmpty(t, snapshot.ID)
	assert.Equal(t, "p-1", snapshot.PhaseID)
	assert.Equal(t, "run-1", snapshot.RunID)
	require.Len(t, snapshot.Rows, 2)

	assert.Equal(t, migrate.RowKey("a-1"), snapshot.Rows[0].Key)
	assert.False(t, snapshot.Rows[0].Missing)
	assert.Equal(t, "pro", snapshot.Rows[0].Fields["tier"])

	// The row absent at capture time is recorded as a tombstone, so a
	// restore knows to delete whatever the phase inserted under that key.
	assert.Equal(t, migrate.RowKey("a-2"), snapshot.Rows[1].Key)
	assert.True(t, snapshot.Rows[1].Missing)
}

func TestSnapshot_MissingTableCapturesTombstones(t *testing.T) {
	manager := New(Config{Store: memory.New(), Snapshots: newMemorySnapshots()})

	snapshot, err := manager.Snapshot(context.Background(), "p-1", "run-1", "brand_new", []migrate.RowKey{"k-1"})

	require.NoError(t, err)
	require.Len(t, snapshot.Rows, 1)
	assert.True(t, snapshot.Rows[0].Missing)
}

func TestSnapshot_PersistedBeforeReturning(t *testing.T) {
	snapshots := newMemorySnapshots()
	manager := New(Config{Store: memory.New(), Snapshots: snapshots})

	snapshot, err := manager.Snapshot(context.Background(), "p-1", "run-1", "accounts", []migrate.RowKey{"k-1"})
	require.NoError(t, err)

	stored, err := snapshots.Get(context.Background(), snapshot.ID)
	require.NoError(t, err)
	assert.Equal(t, snapshot.ID, stored.ID)
}

func TestSnapshot_PersistFailureFailsCapture(t *testing.T) {
	snapshots := newMemorySnapshots()
	snapshots.saveErr = errors.New("disk full")
	manager := New(Config{Store: memory.New(), Snapshots: snapshots})

	_, err := manager.Snapshot(context.Background(), "p-1", "run-1", "accounts", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist snapshot")
}

func TestRestore_ReplaysBeforeImages(t *testing.T) {
	s := memory.New()
	snapshots := newMemorySnapshots()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "accounts", []migrate.Row{
		migrate.NewMapRowWithFields("a-1", map[migrate.FieldID]any{"tier": "pro"}),
	}))

	manager := New(Config{Store: s, Snapshots: snapshots})
	snapshot, err := manager.Snapshot(ctx, "p-1", "run-1", "accounts", []migrate.RowKey{"a-1", "a-2"})
	require.NoError(t, err)

	// The phase mutates: overwrites a-1 and inserts a-2.
	require.NoError(t, s.Upsert(ctx, "accounts", []migrate.Row{
		migrate.NewMapRowWithFields("a-1", map[migrate.FieldID]any{"tier": "broken"}),
		migrate.NewMapRowWithFields("a-2", map[migrate.FieldID]any{"tier": "inserted"}),
	}))

	require.NoError(t, manager.Restore(ctx, snapshot))

	row, err := s.Get(ctx, "accounts", "a-1")
	require.NoError(t, err)
	tier, _ := row.Get("tier")
	assert.Equal(t, "pro", tier)

	// The inserted row is gone; its before-image was a tombstone.
	_, err = s.Get(ctx, "accounts", "a-2")
	assert.ErrorIs(t, err, store.ErrRowNotFound)
}

func TestRestore_SecondRestoreIsNoOp(t *testing.T) {
	s := memory.New()
	snapshots := newMemorySnapshots()
	ctx := context.Background()

	manager := New(Config{Store: s, Snapshots: snapshots})
	snapshot, err := manager.Snapshot(ctx, "p-1", "run-1", "accounts", []migrate.RowKey{"a-1"})
	require.NoError(t, err)

	require.NoError(t, manager.Restore(ctx, snapshot))

	// Mutate after the restore; a second restore must not touch it.
	require.NoError(t, s.Upsert(ctx, "accounts", []migrate.Row{
		migrate.NewMapRowWithFields("a-1", map[migrate.FieldID]any{"tier": "post-restore"}),
	}))
	require.NoError(t, manager.Restore(ctx, snapshot))

	row, err := s.Get(ctx, "accounts", "a-1")
	require.NoError(t, err)
	tier, _ := row.Get("tier")
	assert.Equal(t, "post-restore", tier)
}

func TestRestore_FailureWrapsRestoreError(t *testing.T) {
	mock := store.NewMockStore()
	mock.UpsertFunc = func(ctx context.Context, table migrate.TableName, rows []migrate.Row) error {
		return errors.New("write refused")
	}
	snapshots := newMemorySnapshots()
	manager := New(Config{Store: mock, Snapshots: snapshots})

	snapshot := Snapshot{
		ID:      "snap-1",
		PhaseID: "p-1",
		Table:   "accounts",
		Rows:    []CapturedRow{{Key: "a-1", Fields: map[migrate.FieldID]any{"x": 1}}},
	}
	require.NoError(t, snapshots.Save(context.Background(), snapshot))

	err := manager.Restore(context.Background(), snapshot)

	var restoreErr *RestoreError
	require.ErrorAs(t, err, &restoreErr)
	assert.Equal(t, "snap-1", restoreErr.SnapshotID)
	assert.Equal(t, "p-1", restoreErr.PhaseID)
	assert.Contains(t, restoreErr.Error(), "write refused")
}

func TestRestore_UnknownSnapshotFails(t *testing.T) {
	manager := New(Config{Store: memory.New(), Snapshots: newMemorySnapshots()})

	err := manager.Restore(context.Background(), Snapshot{ID: "ghost"})

	var restoreErr *RestoreError
	require.ErrorAs(t, err, &restoreErr)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestDiscard_RemovesSnapshot(t *testing.T) {
	snapshots := newMemorySnapshots()
	manager := New(Config{Store: memory.New(), Snapshots: snapshots})

	snapshot, err := manager.Snapshot(context.Background(), "p-1", "run-1", "accounts", nil)
	require.NoError(t, err)

	require.NoError(t, manager.Discard(context.Background(), snapshot.ID))

	_, err = snapshots.Get(context.Background(), snapshot.ID)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}
