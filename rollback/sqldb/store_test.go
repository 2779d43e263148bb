package sqldb

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemashift/migrate"
	"github.com/schemashift/migrate/internal/sqldialect"
	"github.com/schemashift/migrate/rollback"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = db.Close()
	})

	_, err = db.Exec(`
		CREATE TABLE migration_snapshots (
			id TEXT PRIMARY KEY,
			phase_id TEXT NOT NULL,
			run_id TEXT NOT NULL,
			tbl TEXT NOT NULL,
			restored INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE migration_snapshot_rows (
			snapshot_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			row_key TEXT NOT NULL,
			missing INTEGER NOT NULL DEFAULT 0,
			before_image TEXT,
			PRIMARY KEY (snapshot_id, position)
		);
	`)
	require.NoError(t, err)

	return db
}

func testSnapshot() rollback.Snapshot {
	return rollback.Snapshot{
		ID:      "snap-1",
		PhaseID: "phase-1",
		RunID:   "run-1",
		Table:   "accounts",
		Rows: []rollback.CapturedRow{
			{Key: "a-1", Fields: map[migrate.FieldID]any{"tier": "pro"}},
			{Key: "a-2", Missing: true},
			{Key: "a-3", Fields: map[migrate.FieldID]any{"tier": "free"}},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestSave_ThenGetRoundTrips(t *testing.T) {
	s := New(openTestDB(t), sqldialect.SQLite)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, testSnapshot()))

	got, err := s.Get(ctx, "snap-1")
	require.NoError(t, err)
	assert.Equal(t, "phase-1", got.PhaseID)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, migrate.TableName("accounts"), got.Table)
	assert.False(t, got.Restored)

	require.Len(t, got.Rows, 3)
	// Before-images come back in capture order; restore replays them in reverse.
	assert.Equal(t, migrate.RowKey("a-1"), got.Rows[0].Key)
	assert.Equal(t, "pro", got.Rows[0].Fields["tier"])
	assert.True(t, got.Rows[1].Missing)
	assert.Nil(t, got.Rows[1].Fields)
	assert.Equal(t, migrate.RowKey("a-3"), got.Rows[2].Key)
}

func TestGet_MissingSnapshot(t *testing.T) {
	s := New(openTestDB(t), sqldialect.SQLite)

	_, err := s.Get(context.Background(), "nope")

	assert.ErrorIs(t, err, rollback.ErrSnapshotNotFound)
}

func TestMarkRestored(t *testing.T) {
	s := New(openTestDB(t), sqldialect.SQLite)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, testSnapshot()))
	require.NoError(t, s.MarkRestored(ctx, "snap-1"))

	got, err := s.Get(ctx, "snap-1")
	require.NoError(t, err)
	assert.True(t, got.Restored)
}

func TestMarkRestored_MissingSnapshot(t *testing.T) {
	s := New(openTestDB(t), sqldialect.SQLite)

	err := s.MarkRestored(context.Background(), "nope")

	assert.ErrorIs(t, err, rollback.ErrSnapshotNotFound)
}

func TestDelete_RemovesHeaderAndRows(t *testing.T) {
	db := openTestDB(t)
	s := New(db, sqldialect.SQLite)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, testSnapshot()))
	require.NoError(t, s.Delete(ctx, "snap-1"))

	_, err := s.Get(ctx, "snap-1")
	assert.ErrorIs(t, err, rollback.ErrSnapshotNotFound)

	var count int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM migration_snapshot_rows WHERE snapshot_id = 'snap-1'`).Scan(&count))
	assert.Zero(t, count)

	// Deleting again is a no-op.
	assert.NoError(t, s.Delete(ctx, "snap-1"))
}
