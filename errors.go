package migrate

import "errors"

var (
	// ErrAlreadyCommitted indicates a tag was already committed for the
	// same id and scope. Callers racing to commit must treat this as
	// success-equivalent: the migration already ran.
	ErrAlreadyCommitted = errors.New("tag already committed")

	// ErrDependencyNotMet indicates a phase was scheduled before one of
	// the phases it depends on reached a terminal success state.
	ErrDependencyNotMet = errors.New("phase dependency not met")
)
