package migrate

import "context"

// Runner is the surface a surrounding upgrade tool drives the engine
// through. A run executes every phase of a migration plan, in order,
// against one scope.
//
// A run will, for each phase:
//  1. Consult the ledger and skip the phase if its tag is committed
//  2. Run pre-validation
//  3. Capture a rollback snapshot if the phase requires one
//  4. Stream source rows through the compiled field mappings in batches
//  5. Run post-validation
//  6. Commit the phase tag, or restore the snapshot on failure
//
// Both entry points return a structured RunReport; they return an error
// only for failures that make the report itself unreliable (for example
// context cancellation mid-phase).
type Runner interface {
	// RunPerGlobal executes the plan once for the whole deployment.
	RunPerGlobal(ctx context.Context) (RunReport, error)

	// RunPerScope executes the plan for a single scope, typically one
	// tenant. Invoke once per tenant.
	RunPerScope(ctx context.Context, scope Scope) (RunReport, error)
}
