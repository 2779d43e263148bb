package store

import (
	"context"
	"sync"

	"github.com/schemashift/migrate"
)

// MockStore is a configurable mock implementation of Store for use in
// tests. It allows setting up expected return values, tracking method
// calls, and injecting errors for testing error paths.
type MockStore struct {
	mu sync.RWMutex

	// GetFunc is called by Get if set.
	GetFunc func(ctx context.Context, table migrate.TableName, key migrate.RowKey) (migrate.Row, error)

	// FindFunc is called by Find if set.
	FindFunc func(ctx context.Context, table migrate.TableName, filter migrate.Filter) (Cursor, error)

	// UpsertFunc is called by Upsert if set.
	UpsertFunc func(ctx context.Context, table migrate.TableName, rows []migrate.Row) error

	// DeleteFunc is called by Delete if set.
	DeleteFunc func(ctx context.Context, table migrate.TableName, key migrate.RowKey) error

	// Call tracking
	GetCalls    []GetCall
	FindCalls   []FindCall
	UpsertCalls []UpsertCall
	DeleteCalls []DeleteCall
}

// Call tracking structs
type GetCall struct {
	Table migrate.TableName
	Key   migrate.RowKey
}

type FindCall struct {
	Table migrate.TableName
}

type UpsertCall struct {
	Table migrate.TableName
	Rows  []migrate.Row
}

type DeleteCall struct {
	Table migrate.TableName
	Key   migrate.RowKey
}

// Compile-time check that MockStore implements Store.
var _ Store = (*MockStore)(nil)

// NewMockStore creates a new mock store.
func NewMockStore() *MockStore {
	return &MockStore{}
}

// Get implements Store.
func (m *MockStore) Get(ctx context.Context, table migrate.TableName, key migrate.RowKey) (migrate.Row, error) {
	m.mu.Lock()
	m.GetCalls = append(m.GetCalls, GetCall{Table: table, Key: key})
	m.mu.Unlock()

	if m.GetFunc != nil {
		return m.GetFunc(ctx, table, key)
	}

	return nil, ErrRowNotFound
}

// Find implements Store.
func (m *MockStore) Find(ctx context.Context, table migrate.TableName, filter migrate.Filter) (Cursor, error) {
	m.mu.Lock()
	m.FindCalls = append(m.FindCalls, FindCall{Table: table})
	m.mu.Unlock()

	if m.FindFunc != nil {
		return m.FindFunc(ctx, table, filter)
	}

	return NewSliceCursor(nil), nil
}

// Upsert implements Store.
func (m *MockStore) Upsert(ctx context.Context, table migrate.TableName, rows []migrate.Row) error {
	m.mu.Lock()
	m.UpsertCalls = append(m.UpsertCalls, UpsertCall{Table: table, Rows: rows})
	m.mu.Unlock()

	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, table, rows)
	}

	return nil
}

// Delete implements Store.
func (m *MockStore) Delete(ctx context.Context, table migrate.TableName, key migrate.RowKey) error {
	m.mu.Lock()
	m.DeleteCalls = append(m.DeleteCalls, DeleteCall{Table: table, Key: key})
	m.mu.Unlock()

	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, table, key)
	}

	return nil
}

// Reset clears all call tracking data.
func (m *MockStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls = nil
	m.FindCalls = nil
	m.UpsertCalls = nil
	m.DeleteCalls = nil
}

// SliceCursor is a Cursor over an in-memory slice of rows.
// Useful for mocks and stores that materialize results up front.
type SliceCursor struct {
	rows   []migrate.Row
	pos    int
	err    error
	closed bool
}

// Compile-time check that SliceCursor implements Cursor.
var _ Cursor = (*SliceCursor)(nil)

// NewSliceCursor creates a cursor over the given rows.
func NewSliceCursor(rows []migrate.Row) *SliceCursor {
	return &SliceCursor{rows: rows}
}

// NewSliceCursorWithErr creates a cursor that yields the given rows and
// then reports err. Useful for testing iteration error paths.
func NewSliceCursorWithErr(rows []migrate.Row, err error) *SliceCursor {
	return &SliceCursor{rows: rows, err: err}
}

// Next implements Cursor.
func (c *SliceCursor) Next() bool {
	if c.closed || c.pos >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

// Row implements Cursor.
func (c *SliceCursor) Row() migrate.Row {
	return c.rows[c.pos-1]
}

// Err implements Cursor.
func (c *SliceCursor) Err() error {
	if c.pos >= len(c.rows) {
		return c.err
	}
	return nil
}

// Close implements Cursor.
func (c *SliceCursor) Close() error {
	c.closed = true
	return nil
}
