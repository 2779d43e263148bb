// Package rollback captures before-images of rows a phase is about to
// mutate and restores them when the phase fails.
package rollback

import (
	"time"

	"github.com/schemashift/migrate"
)

// CapturedRow is the before-image of one target row. A row absent from
// the target at capture time is recorded as Missing; restoring it
// deletes whatever the failed phase wrote under that key.
type CapturedRow struct {
	// Key is the row identity.
	Key migrate.RowKey

	// Missing is true when the row did not exist at capture time.
	Missing bool

	// Fields is the row's field values at capture time. Nil when Missing.
	Fields map[migrate.FieldID]any
}

// Snapshot is the set of before-images captured for one phase.
// Lifecycle: created and durably persisted immediately before the phase
// mutates any row; applied only on rollback; discarded on phase success.
type Snapshot struct {
	// ID uniquely identifies the snapshot (UUID).
	ID string

	// PhaseID is the phase the snapshot was captured for.
	PhaseID string

	// RunID is the run the snapshot belongs to.
	RunID string

	// Table is the target table the before-images were read from.
	Table migrate.TableName

	// Rows are the captured before-images in capture order.
	Rows []CapturedRow

	// Restored is true once the snapshot has been applied. Restoring an
	// already-restored snapshot is a no-op.
	Restored bool

	// CreatedAt is when the snapshot was captured.
	CreatedAt time.Time
}
