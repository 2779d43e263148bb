// Package transfer streams source rows through compiled field mappings
// and writes target rows in bounded batches.
package transfer

import (
	"github.com/schemashift/migrate"
	"github.com/schemashift/migrate/mapping"
)

// Job describes one bulk transfer from a source table to a target
// table. A job is owned by exactly one phase during its execution and
// is immutable once its mappings are compiled.
type Job struct {
	// PhaseID identifies the owning phase, for logging and metrics.
	PhaseID string

	// Source is the table rows are read from.
	Source migrate.TableName

	// Target is the table rows are written to.
	Target migrate.TableName

	// Filter selects source rows. Passed through to the store
	// unmodified; nil selects all rows.
	Filter migrate.Filter

	// Mappings are the compiled transformation rules.
	Mappings []mapping.FieldMapping

	// BatchSize bounds the number of rows per flushed batch.
	// Zero uses the executor's default.
	BatchSize int

	// FatalRowErrors aborts the job on the first row error instead of
	// recording it and continuing. Default: continue, report.
	FatalRowErrors bool
}

// Result reports the outcome of an executed job. Batches already
// flushed stay flushed even when the job returns an error; undoing them
// is the rollback manager's responsibility at the phase level.
type Result struct {
	// Copied is the number of rows written to the target.
	Copied int

	// Skipped is the number of source rows skipped due to row errors.
	Skipped int

	// Errors lists per-row failures, one entry per skipped row.
	Errors []migrate.RowError
}
