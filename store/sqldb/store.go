// Package sqldb provides a database/sql implementation of the record
// store for PostgreSQL, MySQL, and SQLite. Rows are persisted as
// (table, key, JSON fields) triples in a single backing table, which
// keeps the store schema-free: the engine's field mapping layer is the
// one that knows row shapes.
package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/schemashift/migrate"
	"github.com/schemashift/migrate/internal/sqldialect"
	"github.com/schemashift/migrate/store"
)

// DefaultRowsTable is the backing table name used by New.
const DefaultRowsTable = "migration_rows"

// Config holds configuration for the SQL row store.
type Config struct {
	// RowsTable is the name of the backing table (default: migration_rows).
	RowsTable string
}

// Store is a SQL implementation of store.Store. Upsert is keyed on the
// (tbl, row_key) primary key, which is what gives re-run transfers
// overwrite-not-duplicate semantics.
type Store struct {
	db        *sql.DB
	dialect   sqldialect.Dialect
	rowsTable string
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New creates a SQL row store with the default backing table name.
func New(db *sql.DB, dialect sqldialect.Dialect) *Store {
	return NewWithConfig(db, dialect, Config{})
}

// NewWithConfig creates a SQL row store with custom configuration.
// Applies the default table name if not set.
func NewWithConfig(db *sql.DB, dialect sqldialect.Dialect, cfg Config) *Store {
	if cfg.RowsTable == "" {
		cfg.RowsTable = DefaultRowsTable
	}

	return &Store{
		db:        db,
		dialect:   dialect,
		rowsTable: cfg.RowsTable,
	}
}

// Get returns a single row by key.
// Returns store.ErrRowNotFound if the row does not exist.
func (s *Store) Get(ctx context.Context, table migrate.TableName, key migrate.RowKey) (migrate.Row, error) {
	query := fmt.Sprintf(`
		SELECT fields
		FROM %s
		WHERE tbl = %s AND row_key = %s
	`, s.rowsTable, s.dialect.Placeholder(1), s.dialect.Placeholder(2))

	var encoded []byte
	err := s.db.QueryRowContext(ctx, query, string(table), string(key)).Scan(&encoded)
	if err == sql.ErrNoRows {
		return nil, store.ErrRowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get row: %w", err)
	}

	return decodeRow(key, encoded)
}

// Find opens a cursor over the rows of a table matching the filter.
// The filter is opaque to the store and is applied as rows are decoded.
func (s *Store) Find(ctx context.Context, table migrate.TableName, filter migrate.Filter) (store.Cursor, error) {
	query := fmt.Sprintf(`
		SELECT row_key, fields
		FROM %s
		WHERE tbl = %s
		ORDER BY row_key
	`, s.rowsTable, s.dialect.Placeholder(1))

	rows, err := s.db.QueryContext(ctx, query, string(table))
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}

	return &cursor{rows: rows, filter: filter}, nil
}

// Upsert writes rows keyed by row identity inside a single transaction,
// so a flushed batch is atomic per call.
func (s *Store) Upsert(ctx context.Context, table migrate.TableName, rows []migrate.Row) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (tbl, row_key, fields)
		VALUES (%s)
		%s
	`, s.rowsTable, s.dialect.Placeholders(1, 3),
		s.dialect.UpsertSuffix([]string{"tbl", "row_key"}, []string{"fields"}))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert: %w", err)
	}

	for _, row := range rows {
		encoded, err := encodeRow(row)
		if err != nil {
			_ = tx.Rollback()
			return err
		}

		if _, err := tx.ExecContext(ctx, query, string(table), string(row.Key()), encoded); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to upsert row %s: %w", row.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}

	return nil
}

// Delete removes a row by key. Deleting an absent row is a no-op.
func (s *Store) Delete(ctx context.Context, table migrate.TableName, key migrate.RowKey) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE tbl = %s AND row_key = %s
	`, s.rowsTable, s.dialect.Placeholder(1), s.dialect.Placeholder(2))

	if _, err := s.db.ExecContext(ctx, query, string(table), string(key)); err != nil {
		return fmt.Errorf("failed to delete row: %w", err)
	}

	return nil
}

func encodeRow(row migrate.Row) ([]byte, error) {
	fields := make(map[migrate.FieldID]any)
	for _, id := range row.Fields() {
		if v, ok := row.Get(id); ok {
			fields[id] = v
		}
	}

	encoded, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode row %s: %w", row.Key(), err)
	}

	return encoded, nil
}

func decodeRow(key migrate.RowKey, encoded []byte) (migrate.Row, error) {
	var fields map[migrate.FieldID]any
	if err := json.Unmarshal(encoded, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode row %s: %w", key, err)
	}

	return migrate.NewMapRowWithFields(key, fields), nil
}

// cursor adapts sql.Rows to store.Cursor, applying the filter lazily.
type cursor struct {
	rows    *sql.Rows
	filter  migrate.Filter
	current migrate.Row
	err     error
}

// Next implements store.Cursor.
func (c *cursor) Next() bool {
	for c.rows.Next() {
		var key string
		var encoded []byte
		if err := c.rows.Scan(&key, &encoded); err != nil {
			c.err = fmt.Errorf("failed to scan row: %w", err)
			return false
		}

		row, err := decodeRow(migrate.RowKey(key), encoded)
		if err != nil {
			c.err = err
			return false
		}

		if c.filter == nil || c.filter(row) {
			c.current = row
			return true
		}
	}

	return false
}

// Row implements store.Cursor.
func (c *cursor) Row() migrate.Row {
	return c.current
}

// Err implements store.Cursor.
func (c *cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

// Close implements store.Cursor.
func (c *cursor) Close() error {
	return c.rows.Close()
}
