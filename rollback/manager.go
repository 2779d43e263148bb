package rollback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/schemashift/migrate"
	"github.com/schemashift/migrate/store"
)

// RestoreError indicates a rollback itself failed. This is the most
// severe error class the engine produces: it is surfaced directly to
// the operator and never retried automatically, since retrying an
// unsound rollback risks further corruption.
type RestoreError struct {
	// SnapshotID identifies the snapshot whose restore failed.
	SnapshotID string

	// PhaseID is the phase the snapshot belongs to.
	PhaseID string

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *RestoreError) Error() string {
	return fmt.Sprintf("restore of snapshot %s (phase %s) failed: %v", e.SnapshotID, e.PhaseID, e.Err)
}

// Unwrap returns the underlying error.
func (e *RestoreError) Unwrap() error {
	return e.Err
}

// Config holds configuration for the rollback Manager.
type Config struct {
	// Store is the record store before-images are read from and
	// restored into (required).
	Store store.Store

	// Snapshots persists captured snapshots (required).
	Snapshots SnapshotStore

	// Logger is for observability (optional).
	Logger migrate.Logger
}

// Manager captures and restores before-images of rows mutated by a
// phase.
type Manager struct {
	config Config
}

// New creates a new rollback Manager with the given configuration.
func New(cfg Config) *Manager {
	return &Manager{config: cfg}
}

// Snapshot captures the before-images of the given target rows and
// durably persists them. It must be called, and must return
// successfully, before the phase mutates any row; the snapshot is only
// usable for rollback if it predates the mutation.
func (m *Manager) Snapshot(ctx context.Context, phaseID, runID string, table migrate.TableName, keys []migrate.RowKey) (Snapshot, error) {
	snapshot := Snapshot{
		ID:        uuid.New().String(),
		PhaseID:   phaseID,
		RunID:     runID,
		Table:     table,
		Rows:      make([]CapturedRow, 0, len(keys)),
		CreatedAt: time.Now(),
	}

	for _, key := range keys {
		row, err := m.config.Store.Get(ctx, table, key)
		if err != nil {
			if errors.Is(err, store.ErrRowNotFound) || errors.Is(err, store.ErrTableNotFound) {
				snapshot.Rows = append(snapshot.Rows, CapturedRow{Key: key, Missing: true})
				continue
			}
			return Snapshot{}, fmt.Errorf("failed to capture row %s: %w", key, err)
		}

		fields := make(map[migrate.FieldID]any)
		for _, id := range row.Fields() {
			if v, ok := row.Get(id); ok {
				fields[id] = v
			}
		}
		snapshot.Rows = append(snapshot.Rows, CapturedRow{Key: key, Fields: fields})
	}

	if err := m.config.Snapshots.Save(ctx, snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("failed to persist snapshot: %w", err)
	}

	if m.config.Logger != nil {
		m.config.Logger.Info(ctx, "snapshot captured",
			"phase", phaseID, "snapshot", snapshot.ID, "rows", len(snapshot.Rows))
	}

	return snapshot, nil
}

// Restore replays a snapshot's before-images in reverse order of
// capture: captured rows are upserted back, rows that were missing at
// capture time are deleted. Restore is idempotent; restoring an
// already-restored snapshot is a no-op. Failures are returned as a
// *RestoreError.
func (m *Manager) Restore(ctx context.Context, snapshot Snapshot) error {
	// Re-read the persisted restored flag so two restores of the same
	// snapshot cannot both run.
	stored, err := m.config.Snapshots.Get(ctx, snapshot.ID)
	if err != nil {
		return &RestoreError{SnapshotID: snapshot.ID, PhaseID: snapshot.PhaseID, Err: err}
	}
	if stored.Restored {
		if m.config.Logger != nil {
			m.config.Logger.Debug(ctx, "snapshot already restored", "snapshot", snapshot.ID)
		}
		return nil
	}

	for i := len(stored.Rows) - 1; i >= 0; i-- {
		captured := stored.Rows[i]

		if captured.Missing {
			if err := m.config.Store.Delete(ctx, stored.Table, captured.Key); err != nil {
				return &RestoreError{
					SnapshotID: snapshot.ID,
					PhaseID:    snapshot.PhaseID,
					Err:        fmt.Errorf("failed to delete row %s: %w", captured.Key, err),
				}
			}
			continue
		}

		row := migrate.NewMapRowWithFields(captured.Key, captured.Fields)
		if err := m.config.Store.Upsert(ctx, stored.Table, []migrate.Row{row}); err != nil {
			return &RestoreError{
				SnapshotID: snapshot.ID,
				PhaseID:    snapshot.PhaseID,
				Err:        fmt.Errorf("failed to restore row %s: %w", captured.Key, err),
			}
		}
	}

	if err := m.config.Snapshots.MarkRestored(ctx, snapshot.ID); err != nil {
		return &RestoreError{SnapshotID: snapshot.ID, PhaseID: snapshot.PhaseID, Err: err}
	}

	if m.config.Logger != nil {
		m.config.Logger.Info(ctx, "snapshot restored",
			"phase", snapshot.PhaseID, "snapshot", snapshot.ID, "rows", len(stored.Rows))
	}

	return nil
}

// Discard deletes a snapshot after its phase committed successfully.
func (m *Manager) Discard(ctx context.Context, snapshotID string) error {
	return m.config.Snapshots.Delete(ctx, snapshotID)
}
