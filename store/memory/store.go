package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/schemashift/migrate"
	"github.com/schemashift/migrate/store"
)

// Store is an in-memory implementation of store.Store for testing and
// examples. It provides thread-safe access to tabular data using a
// sync.RWMutex. Rows are copied on the way in and out, so callers can
// never mutate stored state through a retained reference.
type Store struct {
	mu     sync.RWMutex
	tables map[migrate.TableName]map[migrate.RowKey]*migrate.MapRow
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New creates a new in-memory store with initialized maps.
func New() *Store {
	return &Store{
		tables: make(map[migrate.TableName]map[migrate.RowKey]*migrate.MapRow),
	}
}

// CreateTable creates an empty table. Creating an existing table is a
// no-op. Upsert creates tables implicitly; CreateTable exists so tests
// can distinguish an empty table from a missing one.
func (s *Store) CreateTable(table migrate.TableName) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[table]; !ok {
		s.tables[table] = make(map[migrate.RowKey]*migrate.MapRow)
	}
}

// Get returns a single row by key.
// Returns store.ErrTableNotFound or store.ErrRowNotFound accordingly.
func (s *Store) Get(ctx context.Context, table migrate.TableName, key migrate.RowKey) (migrate.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.tables[table]
	if !ok {
		return nil, store.ErrTableNotFound
	}

	row, ok := rows[key]
	if !ok {
		return nil, store.ErrRowNotFound
	}

	return row.Clone(), nil
}

// Find opens a cursor over the rows of a table matching the filter.
// Rows are materialized in key order at call time, so a concurrent
// Upsert does not affect an open cursor.
func (s *Store) Find(ctx context.Context, table migrate.TableName, filter migrate.Filter) (store.Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.tables[table]
	if !ok {
		return nil, store.ErrTableNotFound
	}

	keys := make([]migrate.RowKey, 0, len(rows))
	for key := range rows {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var matched []migrate.Row
	for _, key := range keys {
		row := rows[key]
		if filter == nil || filter(row) {
			matched = append(matched, row.Clone())
		}
	}

	return store.NewSliceCursor(matched), nil
}

// Upsert writes rows keyed by row identity, creating the table if needed.
func (s *Store) Upsert(ctx context.Context, table migrate.TableName, rows []migrate.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[table]
	if !ok {
		t = make(map[migrate.RowKey]*migrate.MapRow)
		s.tables[table] = t
	}

	for _, row := range rows {
		t[row.Key()] = migrate.CloneRow(row)
	}

	return nil
}

// Delete removes a row by key. Deleting an absent row is a no-op.
func (s *Store) Delete(ctx context.Context, table migrate.TableName, key migrate.RowKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.tables[table]
	if !ok {
		return nil
	}

	delete(rows, key)
	return nil
}

// Len returns the number of rows in a table. Returns 0 for a missing table.
func (s *Store) Len(table migrate.TableName) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.tables[table])
}
