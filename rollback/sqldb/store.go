// Package sqldb provides a database/sql implementation of the snapshot
// store for PostgreSQL, MySQL, and SQLite. Before-images are
// JSON-encoded; the engine does not prescribe a snapshot serialization
// format, and JSON keeps snapshots human-auditable.
package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/schemashift/migrate"
	"github.com/schemashift/migrate/internal/sqldialect"
	"github.com/schemashift/migrate/rollback"
)

const (
	// DefaultSnapshotsTable is the snapshot header table used by New.
	DefaultSnapshotsTable = "migration_snapshots"

	// DefaultSnapshotRowsTable is the before-image table used by New.
	DefaultSnapshotRowsTable = "migration_snapshot_rows"
)

// Config holds configuration for the SQL snapshot store.
type Config struct {
	// SnapshotsTable is the snapshot header table
	// (default: migration_snapshots).
	SnapshotsTable string

	// SnapshotRowsTable is the before-image table
	// (default: migration_snapshot_rows).
	SnapshotRowsTable string
}

// Store is a SQL implementation of rollback.SnapshotStore. A snapshot
// and its before-images are written in one transaction, so a snapshot
// is either fully persisted or absent; the rollback manager relies on
// that to guarantee snapshot-before-mutation ordering.
type Store struct {
	db          *sql.DB
	dialect     sqldialect.Dialect
	headerTable string
	rowsTable   string
}

// Compile-time check that Store implements rollback.SnapshotStore.
var _ rollback.SnapshotStore = (*Store)(nil)

// New creates a SQL snapshot store with default table names.
func New(db *sql.DB, dialect sqldialect.Dialect) *Store {
	return NewWithConfig(db, dialect, Config{})
}

// NewWithConfig creates a SQL snapshot store with custom configuration.
// Applies default table names if not set.
func NewWithConfig(db *sql.DB, dialect sqldialect.Dialect, cfg Config) *Store {
	if cfg.SnapshotsTable == "" {
		cfg.SnapshotsTable = DefaultSnapshotsTable
	}
	if cfg.SnapshotRowsTable == "" {
		cfg.SnapshotRowsTable = DefaultSnapshotRowsTable
	}

	return &Store{
		db:          db,
		dialect:     dialect,
		headerTable: cfg.SnapshotsTable,
		rowsTable:   cfg.SnapshotRowsTable,
	}
}

// Save persists a snapshot and its before-images in one transaction.
func (s *Store) Save(ctx context.Context, snapshot rollback.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot save: %w", err)
	}

	headerQuery := fmt.Sprintf(`
		INSERT INTO %s (id, phase_id, run_id, tbl, restored, created_at)
		VALUES (%s)
	`, s.headerTable, s.dialect.Placeholders(1, 6))

	_, err = tx.ExecContext(ctx, headerQuery,
		snapshot.ID, snapshot.PhaseID, snapshot.RunID, string(snapshot.Table),
		snapshot.Restored, snapshot.CreatedAt.UTC())
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to save snapshot header: %w", err)
	}

	rowQuery := fmt.Sprintf(`
		INSERT INTO %s (snapshot_id, position, row_key, missing, before_image)
		VALUES (%s)
	`, s.rowsTable, s.dialect.Placeholders(1, 5))

	for i, captured := range snapshot.Rows {
		var beforeImage []byte
		if !captured.Missing {
			beforeImage, err = json.Marshal(captured.Fields)
			if err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("failed to encode before-image of row %s: %w", captured.Key, err)
			}
		}

		_, err = tx.ExecContext(ctx, rowQuery,
			snapshot.ID, i, string(captured.Key), captured.Missing, beforeImage)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to save before-image of row %s: %w", captured.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot save: %w", err)
	}

	return nil
}

// Get returns a snapshot by id with its before-images in capture order.
// Returns rollback.ErrSnapshotNotFound if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (snapshot rollback.Snapshot, err error) {
	headerQuery := fmt.Sprintf(`
		SELECT phase_id, run_id, tbl, restored, created_at
		FROM %s
		WHERE id = %s
	`, s.headerTable, s.dialect.Placeholder(1))

	snapshot = rollback.Snapshot{ID: id}
	var table string
	err = s.db.QueryRowContext(ctx, headerQuery, id).Scan(
		&snapshot.PhaseID,
		&snapshot.RunID,
		&table,
		&snapshot.Restored,
		&snapshot.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return rollback.Snapshot{}, rollback.ErrSnapshotNotFound
	}
	if err != nil {
		return rollback.Snapshot{}, fmt.Errorf("failed to get snapshot: %w", err)
	}
	snapshot.Table = migrate.TableName(table)

	rowQuery := fmt.Sprintf(`
		SELECT row_key, missing, before_image
		FROM %s
		WHERE snapshot_id = %s
		ORDER BY position
	`, s.rowsTable, s.dialect.Placeholder(1))

	rows, err := s.db.QueryContext(ctx, rowQuery, id)
	if err != nil {
		return rollback.Snapshot{}, fmt.Errorf("failed to get before-images: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		var key string
		var missing bool
		var beforeImage []byte
		if err := rows.Scan(&key, &missing, &beforeImage); err != nil {
			return rollback.Snapshot{}, fmt.Errorf("failed to scan before-image: %w", err)
		}

		captured := rollback.CapturedRow{Key: migrate.RowKey(key), Missing: missing}
		if !missing {
			if err := json.Unmarshal(beforeImage, &captured.Fields); err != nil {
				return rollback.Snapshot{}, fmt.Errorf("failed to decode before-image of row %s: %w", key, err)
			}
		}
		snapshot.Rows = append(snapshot.Rows, captured)
	}

	if err := rows.Err(); err != nil {
		return rollback.Snapshot{}, fmt.Errorf("error iterating before-images: %w", err)
	}

	return snapshot, nil
}

// MarkRestored marks a snapshot as applied.
// Returns rollback.ErrSnapshotNotFound if it does not exist.
func (s *Store) MarkRestored(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET restored = %s
		WHERE id = %s
	`, s.headerTable, s.dialect.Placeholder(1), s.dialect.Placeholder(2))

	result, err := s.db.ExecContext(ctx, query, true, id)
	if err != nil {
		return fmt.Errorf("failed to mark snapshot restored: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return rollback.ErrSnapshotNotFound
	}

	return nil
}

// Delete discards a snapshot and its before-images.
// Deleting an absent snapshot is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot delete: %w", err)
	}

	rowQuery := fmt.Sprintf(`DELETE FROM %s WHERE snapshot_id = %s`, s.rowsTable, s.dialect.Placeholder(1))
	if _, err := tx.ExecContext(ctx, rowQuery, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to delete before-images: %w", err)
	}

	headerQuery := fmt.Sprintf(`DELETE FROM %s WHERE id = %s`, s.headerTable, s.dialect.Placeholder(1))
	if _, err := tx.ExecContext(ctx, headerQuery, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to delete snapshot header: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot delete: %w", err)
	}

	return nil
}
