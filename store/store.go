package store

import (
	"context"

	"github.com/schemashift/migrate"
)

// Store is the record storage collaborator the engine reads from and
// writes to. The engine never assumes a specific query language: filters
// are opaque predicates passed through unmodified.
// Implementations must be safe for concurrent access.
type Store interface {
	// Get returns a single row by key.
	// Returns ErrRowNotFound if the row does not exist.
	Get(ctx context.Context, table migrate.TableName, key migrate.RowKey) (migrate.Row, error)

	// Find opens a cursor over the rows of a table matching the filter.
	// A nil filter matches all rows. The caller must Close the cursor.
	Find(ctx context.Context, table migrate.TableName, filter migrate.Filter) (Cursor, error)

	// Upsert writes rows keyed by row identity: existing rows are
	// replaced, missing rows are inserted. The batch is atomic per call
	// where the backend supports it.
	Upsert(ctx context.Context, table migrate.TableName, rows []migrate.Row) error

	// Delete removes a row by key. Deleting an absent row is a no-op.
	Delete(ctx context.Context, table migrate.TableName, key migrate.RowKey) error
}

// Cursor iterates rows returned by Find, in the style of sql.Rows.
type Cursor interface {
	// Next advances to the next row. It returns false when the cursor is
	// exhausted or an error occurred; check Err after the loop.
	Next() bool

	// Row returns the current row. Only valid after a true Next.
	Row() migrate.Row

	// Err returns the first error encountered during iteration.
	Err() error

	// Close releases cursor resources. Safe to call more than once.
	Close() error
}
