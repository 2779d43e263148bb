// Package ledger defines the durable idempotency registry the engine
// consults before and after each phase.
package ledger

import (
	"context"

	"github.com/schemashift/migrate"
)

// Ledger is the durable idempotency registry. It is the only engine
// state whose lifetime spans migration runs: tags are appended when a
// phase commits and are never deleted in normal operation.
// Implementations must be safe for concurrent access.
type Ledger interface {
	// HasTag reports whether a tag has been committed for the given id
	// and scope.
	HasTag(ctx context.Context, id string, scope migrate.Scope) (bool, error)

	// CommitTag durably records a tag for the given id and scope with
	// check-and-set semantics: concurrent callers racing to commit the
	// same tag have exactly one winner. Losers receive
	// migrate.ErrAlreadyCommitted and must treat it as
	// success-equivalent, since the migration already ran.
	CommitTag(ctx context.Context, id string, scope migrate.Scope) error

	// AppliedTags returns all committed tags for a scope, for auditing.
	AppliedTags(ctx context.Context, scope migrate.Scope) ([]migrate.Tag, error)
}
