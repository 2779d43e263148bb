package transfer

import "context"

// Runner executes transfer jobs. The orchestrator depends on this
// interface rather than the concrete Executor so tests can substitute a
// mock.
type Runner interface {
	// Execute runs the job to completion or first fatal error.
	// The returned Result is valid even when err is non-nil and reflects
	// the rows flushed before the failure.
	Execute(ctx context.Context, job Job) (Result, error)
}
