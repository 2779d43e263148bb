package run

import (
	"context"

	"github.com/schemashift/migrate"
)

// BeforePhaseHook is invoked before a phase starts.
type BeforePhaseHook func(ctx context.Context, rc *RunContext, phase Phase)

// AfterPhaseHook is invoked after a phase reaches a terminal state.
type AfterPhaseHook func(ctx context.Context, rc *RunContext, phase Phase, result migrate.PhaseResult)

// OnBeforePhase registers a hook invoked synchronously, in registration
// order, before each phase starts. Register before calling Run; hooks
// are not safe to register concurrently with a run.
func (o *Orchestrator) OnBeforePhase(hook BeforePhaseHook) {
	o.beforeHooks = append(o.beforeHooks, hook)
}

// OnAfterPhase registers a hook invoked synchronously, in registration
// order, after each phase reaches a terminal state.
func (o *Orchestrator) OnAfterPhase(hook AfterPhaseHook) {
	o.afterHooks = append(o.afterHooks, hook)
}

func (o *Orchestrator) fireBefore(ctx context.Context, rc *RunContext, phase Phase) {
	for _, hook := range o.beforeHooks {
		hook(ctx, rc, phase)
	}
}

func (o *Orchestrator) fireAfter(ctx context.Context, rc *RunContext, phase Phase, result migrate.PhaseResult) {
	for _, hook := range o.afterHooks {
		hook(ctx, rc, phase, result)
	}
}
