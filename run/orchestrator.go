package run

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/schemashift/migrate"
	"github.com/schemashift/migrate/ledger"
	"github.com/schemashift/migrate/metrics"
	"github.com/schemashift/migrate/rollback"
	rollbackmemory "github.com/schemashift/migrate/rollback/memory"
	"github.com/schemashift/migrate/store"
	"github.com/schemashift/migrate/transfer"
	"github.com/schemashift/migrate/validate"
)

// Config holds configuration for the Orchestrator.
type Config struct {
	// Ledger is the durable idempotency registry (required).
	Ledger ledger.Ledger

	// Store is the record store phases read from and write to (required).
	Store store.Store

	// Snapshots persists rollback snapshots. Required when any phase
	// has RollbackRequired; defaults to an in-memory store otherwise.
	// An in-memory snapshot store does not survive a process crash, so
	// production runs with rollback phases should use a durable one.
	Snapshots rollback.SnapshotStore

	// Executor is an optional custom executor for running transfers.
	// If nil, a default executor is created over Store.
	Executor transfer.Runner

	// BatchSize is the default batch size for jobs that do not set
	// their own (default: 100).
	BatchSize int

	// Workers is the number of concurrent batch flushers passed to the
	// default executor (default: 1, sequential).
	Workers int

	// Logger is for observability (optional).
	Logger migrate.Logger

	// MetricsEnabled enables Prometheus metrics collection (default: true).
	// Set to false explicitly to disable metrics.
	MetricsEnabled *bool
}

// Orchestrator sequences the phases of one migration plan. Phases
// execute strictly sequentially in increasing order; the run halts on
// the first failed phase unless that phase is marked independent.
type Orchestrator struct {
	config    Config
	plan      Plan
	phases    []Phase
	executor  transfer.Runner
	gate      *validate.Gate
	rollback  *rollback.Manager
	collector *metrics.Collector

	beforeHooks []BeforePhaseHook
	afterHooks  []AfterPhaseHook
}

// Compile-time check that Orchestrator implements migrate.Runner.
var _ migrate.Runner = (*Orchestrator)(nil)

// New creates an Orchestrator for the given plan.
// Applies default values for all optional config fields and validates
// the plan; plan violations are returned before any phase can run.
func New(cfg Config, plan Plan) (*Orchestrator, error) {
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	if cfg.Snapshots == nil {
		cfg.Snapshots = rollbackmemory.New()
	}

	// Create metrics collector if enabled (default: true)
	var collector *metrics.Collector
	metricsEnabled := true
	if cfg.MetricsEnabled != nil {
		metricsEnabled = *cfg.MetricsEnabled
	}
	if metricsEnabled {
		collector = metrics.NewCollector(plan.Component)
	}

	// Create or use provided executor
	exec := cfg.Executor
	if exec == nil {
		exec = transfer.New(transfer.Config{
			Store:     cfg.Store,
			BatchSize: cfg.BatchSize,
			Workers:   cfg.Workers,
			Logger:    cfg.Logger,
			Collector: collector,
		})
	}

	// Collect every phase's rules into one gate
	var rules []validate.Rule
	for _, phase := range plan.Phases {
		rules = append(rules, phase.Rules...)
	}

	phases := make([]Phase, len(plan.Phases))
	copy(phases, plan.Phases)
	sort.Slice(phases, func(i, j int) bool { return phases[i].Order < phases[j].Order })

	return &Orchestrator{
		config:   cfg,
		plan:     plan,
		phases:   phases,
		executor: exec,
		gate:     validate.New(rules, cfg.Logger),
		rollback: rollback.New(rollback.Config{
			Store:     cfg.Store,
			Snapshots: cfg.Snapshots,
			Logger:    cfg.Logger,
		}),
		collector: collector,
	}, nil
}

// RunPerGlobal executes the plan once for the whole deployment.
func (o *Orchestrator) RunPerGlobal(ctx context.Context) (migrate.RunReport, error) {
	return o.run(ctx, migrate.GlobalScope())
}

// RunPerScope executes the plan for a single scope, typically one tenant.
func (o *Orchestrator) RunPerScope(ctx context.Context, scope migrate.Scope) (migrate.RunReport, error) {
	return o.run(ctx, scope)
}

func (o *Orchestrator) run(ctx context.Context, scope migrate.Scope) (migrate.RunReport, error) {
	rc := NewRunContext(scope)
	report := migrate.RunReport{
		RunID: rc.RunID,
		Scope: scope,
	}

	if o.config.Logger != nil {
		o.config.Logger.Info(ctx, "migration run started",
			"run", rc.RunID, "component", o.plan.Component, "scope", scope.String(),
			"phases", len(o.phases))
	}

	var runErr error
	for _, phase := range o.phases {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		result := o.runPhase(ctx, rc, phase)
		report.PhasesRun = append(report.PhasesRun, result)

		// A cancelled run leaves the current phase in whatever state it
		// reached; the operator decides whether to roll back or resume.
		if !result.Status.Terminal() {
			runErr = ctx.Err()
			break
		}

		if result.Status == migrate.PhaseStatusFailed && !phase.Independent {
			if o.config.Logger != nil {
				o.config.Logger.Error(ctx, "run halted on failed phase",
					"run", rc.RunID, "phase", phase.ID, "error", result.Error)
			}
			break
		}
	}

	report.OverallSuccess = len(report.PhasesRun) == len(o.phases) && runErr == nil
	for _, result := range report.PhasesRun {
		if result.Status != migrate.PhaseStatusCommitted && result.Status != migrate.PhaseStatusSkipped {
			report.OverallSuccess = false
		}
	}
	report.DurationMs = time.Since(rc.StartedAt).Milliseconds()

	if o.config.Logger != nil {
		o.config.Logger.Info(ctx, "migration run finished",
			"run", rc.RunID, "success", report.OverallSuccess, "durationMs", report.DurationMs)
	}

	return report, runErr
}

func (o *Orchestrator) runPhase(ctx context.Context, rc *RunContext, phase Phase) migrate.PhaseResult {
	result := migrate.PhaseResult{
		PhaseID: phase.ID,
		Status:  migrate.PhaseStatusPending,
	}
	start := time.Now()

	o.fireBefore(ctx, rc, phase)
	defer func() {
		if o.collector != nil {
			o.collector.ObservePhaseDuration(phase.ID, time.Since(start).Seconds())
		}
		o.fireAfter(ctx, rc, phase, result)
	}()

	setStatus := func(status migrate.PhaseStatus) {
		result.Status = status
		rc.setStatus(phase.ID, status)
		if o.config.Logger != nil {
			o.config.Logger.Debug(ctx, "phase state changed",
				"run", rc.RunID, "phase", phase.ID, "state", status)
		}
	}

	// Unmet dependencies fail the phase before any work happens.
	for _, dep := range phase.DependsOn {
		depStatus := rc.Status(dep)
		if depStatus != migrate.PhaseStatusCommitted && depStatus != migrate.PhaseStatusSkipped {
			result.Error = fmt.Sprintf("%v: %s is %s", migrate.ErrDependencyNotMet, dep, depStatus)
			setStatus(migrate.PhaseStatusFailed)
			if o.collector != nil {
				o.collector.IncPhasesFailed()
			}
			return result
		}
	}

	// Pending -> Skipped when the ledger already has the tag.
	hasTag, err := o.config.Ledger.HasTag(ctx, phase.Tag, rc.Scope)
	if err != nil {
		result.Error = fmt.Sprintf("ledger check failed: %v", err)
		setStatus(migrate.PhaseStatusFailed)
		if o.collector != nil {
			o.collector.IncPhasesFailed()
		}
		return result
	}
	if hasTag {
		setStatus(migrate.PhaseStatusSkipped)
		if o.collector != nil {
			o.collector.IncPhasesSkipped()
		}
		if o.config.Logger != nil {
			o.config.Logger.Info(ctx, "phase skipped, tag already committed",
				"run", rc.RunID, "phase", phase.ID, "tag", phase.Tag)
		}
		return result
	}

	// Pre-validation runs before any row is mutated. A blocking failure
	// here fails the phase with nothing to roll back.
	setStatus(migrate.PhaseStatusValidating)
	failures, err := o.gate.RunPre(ctx, phase.ID)
	result.ValidationFailures = append(result.ValidationFailures, failures...)
	if err != nil {
		result.Error = err.Error()
		setStatus(migrate.PhaseStatusFailed)
		if o.collector != nil {
			o.collector.IncPhasesFailed()
		}
		return result
	}

	// The snapshot must be captured and persisted before the executor
	// mutates any row; snapshotting after mutation would make rollback
	// unsound.
	var snapshot *rollback.Snapshot
	if phase.RollbackRequired {
		setStatus(migrate.PhaseStatusSnapshotting)

		keys, err := o.affectedKeys(ctx, phase.Job)
		if err != nil {
			result.Error = fmt.Sprintf("failed to determine affected rows: %v", err)
			setStatus(migrate.PhaseStatusFailed)
			if o.collector != nil {
				o.collector.IncPhasesFailed()
			}
			return result
		}

		snap, err := o.rollback.Snapshot(ctx, phase.ID, rc.RunID, phase.Job.Target, keys)
		if err != nil {
			result.Error = fmt.Sprintf("snapshot failed: %v", err)
			setStatus(migrate.PhaseStatusFailed)
			if o.collector != nil {
				o.collector.IncPhasesFailed()
			}
			return result
		}
		snapshot = &snap
	}

	setStatus(migrate.PhaseStatusTransferring)
	job := phase.Job
	job.PhaseID = phase.ID
	job.FatalRowErrors = phase.FatalRowErrors

	transferResult, execErr := o.executor.Execute(ctx, job)
	result.RowsTransferred = transferResult.Copied
	result.RowsSkipped = transferResult.Skipped
	result.RowErrors = transferResult.Errors

	if execErr != nil {
		if errors.Is(execErr, context.Canceled) || errors.Is(execErr, context.DeadlineExceeded) {
			// No implicit rollback on cancellation; the phase stays in
			// the state it reached.
			result.Error = execErr.Error()
			return result
		}
		o.failWithRollback(ctx, rc, phase, &result, snapshot, setStatus,
			fmt.Errorf("transfer failed: %w", execErr))
		return result
	}

	setStatus(migrate.PhaseStatusPostValidating)
	failures, err = o.gate.RunPost(ctx, phase.ID, transferResult)
	result.ValidationFailures = append(result.ValidationFailures, failures...)
	if err != nil {
		o.failWithRollback(ctx, rc, phase, &result, snapshot, setStatus,
			fmt.Errorf("post-validation failed: %w", err))
		return result
	}

	// Committing the tag is the last action of a phase. Losing the
	// commit race means another run already applied this phase; our
	// transfer work was redundant but harmless since all writes were
	// keyed upserts.
	if err := o.config.Ledger.CommitTag(ctx, phase.Tag, rc.Scope); err != nil {
		if !errors.Is(err, migrate.ErrAlreadyCommitted) {
			o.failWithRollback(ctx, rc, phase, &result, snapshot, setStatus,
				fmt.Errorf("tag commit failed: %w", err))
			return result
		}
		if o.config.Logger != nil {
			o.config.Logger.Info(ctx, "tag committed by a concurrent run",
				"run", rc.RunID, "phase", phase.ID, "tag", phase.Tag)
		}
	}

	if snapshot != nil {
		if err := o.rollback.Discard(ctx, snapshot.ID); err != nil && o.config.Logger != nil {
			o.config.Logger.Error(ctx, "failed to discard snapshot",
				"run", rc.RunID, "phase", phase.ID, "snapshot", snapshot.ID, "error", err)
		}
	}

	setStatus(migrate.PhaseStatusCommitted)
	if o.collector != nil {
		o.collector.IncPhasesCommitted()
	}

	return result
}

// failWithRollback moves a phase to Failed, restoring the snapshot
// first when one was captured. A failed restore is appended to the
// phase error and surfaced to the operator; it is never retried.
func (o *Orchestrator) failWithRollback(ctx context.Context, rc *RunContext, phase Phase,
	result *migrate.PhaseResult, snapshot *rollback.Snapshot,
	setStatus func(migrate.PhaseStatus), cause error) {

	result.Error = cause.Error()

	if snapshot != nil {
		setStatus(migrate.PhaseStatusRollingBack)
		if o.collector != nil {
			o.collector.IncRollbacks()
		}

		if restoreErr := o.rollback.Restore(ctx, *snapshot); restoreErr != nil {
			result.Error = fmt.Sprintf("%v; %v", cause, restoreErr)
			if o.collector != nil {
				o.collector.IncRestoreFailures()
			}
			if o.config.Logger != nil {
				o.config.Logger.Error(ctx, "snapshot restore failed",
					"run", rc.RunID, "phase", phase.ID, "snapshot", snapshot.ID,
					"error", restoreErr)
			}
		}
	}

	setStatus(migrate.PhaseStatusFailed)
	if o.collector != nil {
		o.collector.IncPhasesFailed()
	}
}

// affectedKeys returns the identities of the target rows the job will
// upsert. Target row identity is the source row key, so the prospective
// targets are exactly the filtered source keys.
func (o *Orchestrator) affectedKeys(ctx context.Context, job transfer.Job) ([]migrate.RowKey, error) {
	cursor, err := o.config.Store.Find(ctx, job.Source, job.Filter)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close()
	}()

	var keys []migrate.RowKey
	for cursor.Next() {
		keys = append(keys, cursor.Row().Key())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return keys, nil
}
