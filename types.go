package migrate

import (
	"fmt"
	"time"
)

// TableName identifies a table in the underlying record store.
type TableName string

// FieldID identifies a single field within a row.
type FieldID string

// RowKey is the stable identity of a row within its table.
// Target writes are keyed by row identity, so re-running a transfer
// overwrites rather than duplicates.
type RowKey string

// ScopeKind distinguishes global tags from per-tenant tags.
type ScopeKind string

const (
	// ScopeGlobal marks work applied once per deployment.
	ScopeGlobal ScopeKind = "global"

	// ScopePerTenant marks work applied once per tenant.
	ScopePerTenant ScopeKind = "tenant"
)

// Scope is the granularity at which a migration tag is tracked.
type Scope struct {
	// Kind is the scope granularity.
	Kind ScopeKind

	// TenantID identifies the tenant for ScopePerTenant scopes.
	// Empty for ScopeGlobal.
	TenantID string
}

// GlobalScope returns the deployment-wide scope.
func GlobalScope() Scope {
	return Scope{Kind: ScopeGlobal}
}

// TenantScope returns a per-tenant scope for the given tenant.
func TenantScope(tenantID string) Scope {
	return Scope{Kind: ScopePerTenant, TenantID: tenantID}
}

// String returns a stable, human-auditable form of the scope,
// suitable for use in ledger keys.
func (s Scope) String() string {
	if s.Kind == ScopePerTenant {
		return fmt.Sprintf("tenant:%s", s.TenantID)
	}
	return string(ScopeGlobal)
}

// Tag is an idempotency marker proving that a named migration unit has
// been durably applied at a given scope. Tags are append-only and are
// never mutated once committed.
type Tag struct {
	// ID is the tag identifier, conventionally
	// "{componentId}-{featureName}-{isoDate}" (see TagID).
	ID string

	// Scope is the granularity the tag was committed at.
	Scope Scope

	// AppliedAt is when the tag was committed.
	AppliedAt time.Time
}

// TagID builds a tag identifier following the
// "{componentId}-{featureName}-{isoDate}" naming convention.
func TagID(componentID, featureName string, date time.Time) string {
	return fmt.Sprintf("%s-%s-%s", componentID, featureName, date.Format("20060102"))
}

// PhaseStatus is the state of a phase within the run state machine.
type PhaseStatus string

const (
	// PhaseStatusPending indicates the phase has not started.
	PhaseStatusPending PhaseStatus = "pending"

	// PhaseStatusValidating indicates pre-validation is running.
	PhaseStatusValidating PhaseStatus = "validating"

	// PhaseStatusSnapshotting indicates before-images are being captured.
	PhaseStatusSnapshotting PhaseStatus = "snapshotting"

	// PhaseStatusTransferring indicates the batch transfer is running.
	PhaseStatusTransferring PhaseStatus = "transferring"

	// PhaseStatusPostValidating indicates post-validation is running.
	PhaseStatusPostValidating PhaseStatus = "postvalidating"

	// PhaseStatusCommitted indicates the phase completed and its tag
	// was committed to the ledger. Terminal.
	PhaseStatusCommitted PhaseStatus = "committed"

	// PhaseStatusRollingBack indicates a captured snapshot is being restored.
	PhaseStatusRollingBack PhaseStatus = "rollingback"

	// PhaseStatusFailed indicates the phase failed. Terminal.
	PhaseStatusFailed PhaseStatus = "failed"

	// PhaseStatusSkipped indicates the ledger already had the phase's tag
	// and no work was performed. Terminal.
	PhaseStatusSkipped PhaseStatus = "skipped"
)

// Terminal reports whether the status is a terminal state.
func (s PhaseStatus) Terminal() bool {
	return s == PhaseStatusCommitted || s == PhaseStatusFailed || s == PhaseStatusSkipped
}

// ValidationStage distinguishes pre-transfer checks from post-transfer checks.
type ValidationStage string

const (
	// StagePre runs before any row is mutated.
	StagePre ValidationStage = "pre"

	// StagePost runs after the transfer completes.
	StagePost ValidationStage = "post"
)

// Severity controls whether a failed validation rule aborts the phase.
type Severity string

const (
	// SeverityBlocking aborts the phase on failure.
	SeverityBlocking Severity = "blocking"

	// SeverityWarning is reported but does not block.
	SeverityWarning Severity = "warning"
)

// RowError records a single row whose transform or write failed.
// The row is skipped; the phase continues unless its policy marks
// row errors as fatal.
type RowError struct {
	// Key is the identity of the failed row.
	Key RowKey

	// Message describes the failure.
	Message string
}

// Error implements the error interface.
func (e RowError) Error() string {
	return fmt.Sprintf("row %s: %s", e.Key, e.Message)
}

// ValidationFailure records a validation rule that did not pass.
type ValidationFailure struct {
	// Rule is the name of the failed rule.
	Rule string

	// PhaseID is the phase the rule belongs to.
	PhaseID string

	// Stage is when the rule ran.
	Stage ValidationStage

	// Severity is whether the failure blocked the phase.
	Severity Severity

	// Message describes the failure.
	Message string
}

// PhaseResult reports the outcome of a single phase within a run.
type PhaseResult struct {
	// PhaseID identifies the phase.
	PhaseID string

	// Status is the state the phase reached.
	Status PhaseStatus

	// RowsTransferred is the number of rows copied to the target.
	RowsTransferred int

	// RowsSkipped is the number of rows skipped due to row errors.
	RowsSkipped int

	// RowErrors lists per-row failures. Row errors do not fail the run.
	RowErrors []RowError

	// ValidationFailures lists failed validation rules, including warnings.
	ValidationFailures []ValidationFailure

	// Error describes the failure for a Failed phase, empty otherwise.
	Error string
}

// RunReport is returned to the caller of a migration run.
type RunReport struct {
	// RunID uniquely identifies this run.
	RunID string

	// Scope is the scope the run was invoked for.
	Scope Scope

	// PhasesRun lists per-phase outcomes in execution order.
	PhasesRun []PhaseResult

	// OverallSuccess is true when every phase reached Committed or Skipped.
	OverallSuccess bool

	// DurationMs is the wall-clock duration of the run in milliseconds.
	DurationMs int64
}
