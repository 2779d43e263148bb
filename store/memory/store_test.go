package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemashift/migrate"
	"github.com/schemashift/migrate/store"
)

func TestGet_ReturnsStoredRow(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Upsert(ctx, "users", []migrate.Row{
		migrate.NewMapRowWithFields("u-1", map[migrate.FieldID]any{"name": "ada"}),
	})
	require.NoError(t, err)

	row, err := s.Get(ctx, "users", "u-1")
	require.NoError(t, err)
	assert.Equal(t, migrate.RowKey("u-1"), row.Key())
	name, _ := row.Get("name")
	assert.Equal(t, "ada", name)
}

func TestGet_MissingTable(t *testing.T) {
	s := New()

	_, err := s.Get(context.Background(), "nope", "u-1")

	assert.ErrorIs(t, err, store.ErrTableNotFound)
}

func TestGet_MissingRow(t *testing.T) {
	s := New()
	s.CreateTable("users")

	_, err := s.Get(context.Background(), "users", "u-1")

	assert.ErrorIs(t, err, store.ErrRowNotFound)
}

func TestGet_ReturnsClone(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "users", []migrate.Row{
		migrate.NewMapRowWithFields("u-1", map[migrate.FieldID]any{"name": "ada"}),
	}))

	row, err := s.Get(ctx, "users", "u-1")
	require.NoError(t, err)
	row.Set("name", "mutated")

	again, err := s.Get(ctx, "users", "u-1")
	require.NoError(t, err)
	name, _ := again.Get("name")
	assert.Equal(t, "ada", name)
}

func TestUpsert_OverwritesByKey(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "users", []migrate.Row{
		migrate.NewMapRowWithFields("u-1", map[migrate.FieldID]any{"name": "ada"}),
	}))
	require.NoError(t, s.Upsert(ctx, "users", []migrate.Row{
		migrate.NewMapRowWithFields("u-1", map[migrate.FieldID]any{"name": "grace"}),
	}))

	assert.Equal(t, 1, s.Len("users"))
	row, err := s.Get(ctx, "users", "u-1")
	require.NoError(t, err)
	name, _ := row.Get("name")
	assert.Equal(t, "grace", name)
}

func TestFind_ReturnsRowsInKeyOrder(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "users", []migrate.Row{
		migrate.NewMapRow("u-3"),
		migrate.NewMapRow("u-1"),
		migrate.NewMapRow("u-2"),
	}))

	cursor, err := s.Find(ctx, "users", nil)
	require.NoError(t, err)
	defer func() {
		_ = cursor.Close()
	}()

	var keys []migrate.RowKey
	for cursor.Next() {
		keys = append(keys, cursor.Row().Key())
	}
	require.NoError(t, cursor.Err())
	assert.Equal(t, []migrate.RowKey{"u-1", "u-2", "u-3"}, keys)
}

func TestFind_AppliesFilter(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "users", []migrate.Row{
		migrate.NewMapRowWithFields("u-1", map[migrate.FieldID]any{"active": true}),
		migrate.NewMapRowWithFields("u-2", map[migrate.FieldID]any{"active": false}),
		migrate.NewMapRowWithFields("u-3", map[migrate.FieldID]any{"active": true}),
	}))

	cursor, err := s.Find(ctx, "users", func(row migrate.Row) bool {
		v, ok := row.Get("active")
		return ok && v == true
	})
	require.NoError(t, err)
	defer func() {
		_ = cursor.Close()
	}()

	var keys []migrate.RowKey
	for cursor.Next() {
		keys = append(keys, cursor.Row().Key())
	}
	require.NoError(t, cursor.Err())
	assert.Equal(t, []migrate.RowKey{"u-1", "u-3"}, keys)
}

func TestFind_MissingTable(t *testing.T) {
	s := New()

	_, err := s.Find(context.Background(), "nope", nil)

	assert.ErrorIs(t, err, store.ErrTableNotFound)
}

func TestFind_SnapshotUnaffectedByConcurrentUpsert(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "users", []migrate.Row{migrate.NewMapRow("u-1")}))

	cursor, err := s.Find(ctx, "users", nil)
	require.NoError(t, err)
	defer func() {
		_ = cursor.Close()
	}()

	require.NoError(t, s.Upsert(ctx, "users", []migrate.Row{migrate.NewMapRow("u-2")}))

	count := 0
	for cursor.Next() {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestDelete_RemovesRow(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "users", []migrate.Row{migrate.NewMapRow("u-1")}))
	require.NoError(t, s.Delete(ctx, "users", "u-1"))

	_, err := s.Get(ctx, "users", "u-1")
	assert.ErrorIs(t, err, store.ErrRowNotFound)
}

func TestDelete_AbsentRowIsNoOp(t *testing.T) {
	s := New()

	assert.NoError(t, s.Delete(context.Background(), "users", "u-1"))
	assert.NoError(t, s.Delete(context.Background(), "nope", "u-1"))
}

func TestCreateTable_IsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.CreateTable("users")
	require.NoError(t, s.Upsert(ctx, "users", []migrate.Row{migrate.NewMapRow("u-1")}))
	s.CreateTable("users")

	assert.Equal(t, 1, s.Len("users"))
}
