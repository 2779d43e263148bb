// Package run sequences migration phases: it consults the ledger for
// idempotency, runs validation gates, captures rollback snapshots,
// drives the batch transfer executor, and commits phase tags.
package run

import (
	"fmt"

	"github.com/schemashift/migrate/transfer"
	"github.com/schemashift/migrate/validate"
)

// Phase is an ordered, named unit of migration work with its own
// validation rules and rollback policy.
type Phase struct {
	// ID uniquely identifies the phase within its plan.
	ID string

	// Name is a human-readable description.
	Name string

	// Order positions the phase in the run. Phases execute in strictly
	// increasing order.
	Order int

	// DependsOn lists phase ids that must reach Committed or Skipped
	// before this phase may start.
	DependsOn []string

	// Tag is the ledger key committed when the phase succeeds,
	// conventionally built with migrate.TagID.
	Tag string

	// RollbackRequired captures a before-image snapshot prior to the
	// transfer and restores it on failure.
	RollbackRequired bool

	// Independent lets the run continue past this phase if it fails.
	// By default the run halts on the first failed phase.
	Independent bool

	// FatalRowErrors aborts the phase on the first row error instead of
	// recording it and continuing.
	FatalRowErrors bool

	// Job is the transfer this phase executes. The phase owns the job
	// exclusively during its execution.
	Job transfer.Job

	// Rules are the validation rules guarding this phase.
	Rules []validate.Rule
}

// Plan is a complete migration definition: the phases of one component,
// executed together in one run.
type Plan struct {
	// Component identifies the component the plan migrates. Used as the
	// metrics label and conventionally as the tag prefix.
	Component string

	// Phases are the units of work, in any order; the orchestrator
	// sorts by Phase.Order.
	Phases []Phase
}

// Validate checks plan-level invariants: non-empty ids and tags, unique
// ids, strictly increasing unique orders, and dependencies that
// reference earlier phases.
func (p Plan) Validate() error {
	ids := make(map[string]int, len(p.Phases))
	orders := make(map[int]string, len(p.Phases))

	for _, phase := range p.Phases {
		if phase.ID == "" {
			return fmt.Errorf("phase with order %d has no id", phase.Order)
		}
		if phase.Tag == "" {
			return fmt.Errorf("phase %s has no tag", phase.ID)
		}
		if _, ok := ids[phase.ID]; ok {
			return fmt.Errorf("duplicate phase id %s", phase.ID)
		}
		ids[phase.ID] = phase.Order

		if other, ok := orders[phase.Order]; ok {
			return fmt.Errorf("phases %s and %s share order %d", other, phase.ID, phase.Order)
		}
		orders[phase.Order] = phase.ID
	}

	for _, phase := range p.Phases {
		for _, dep := range phase.DependsOn {
			depOrder, ok := ids[dep]
			if !ok {
				return fmt.Errorf("phase %s depends on unknown phase %s", phase.ID, dep)
			}
			if depOrder >= phase.Order {
				return fmt.Errorf("phase %s depends on phase %s which does not run before it", phase.ID, dep)
			}
		}
	}

	return nil
}
