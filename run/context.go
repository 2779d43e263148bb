package run

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/schemashift/migrate"
)

// RunContext is the explicit per-run state threaded through every call
// of one migration run. Its lifecycle is exactly one run; nothing in
// the engine holds run state in package-level variables.
type RunContext struct {
	// RunID uniquely identifies the run (UUID).
	RunID string

	// Scope is the scope the run was invoked for.
	Scope migrate.Scope

	// StartedAt is when the run began.
	StartedAt time.Time

	mu       sync.Mutex
	statuses map[string]migrate.PhaseStatus
}

// NewRunContext creates a run context for one invocation.
func NewRunContext(scope migrate.Scope) *RunContext {
	return &RunContext{
		RunID:     uuid.New().String(),
		Scope:     scope,
		StartedAt: time.Now(),
		statuses:  make(map[string]migrate.PhaseStatus),
	}
}

// Status returns the current status of a phase.
// Phases not yet reached report PhaseStatusPending.
func (rc *RunContext) Status(phaseID string) migrate.PhaseStatus {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	status, ok := rc.statuses[phaseID]
	if !ok {
		return migrate.PhaseStatusPending
	}
	return status
}

func (rc *RunContext) setStatus(phaseID string, status migrate.PhaseStatus) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.statuses[phaseID] = status
}
