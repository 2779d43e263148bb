// Package validate runs pre-condition and post-condition rules around a
// phase and blocks progression when a blocking rule fails.
package validate

import (
	"context"
	"errors"

	"github.com/schemashift/migrate"
	"github.com/schemashift/migrate/transfer"
)

// ErrBlocked indicates at least one blocking rule failed. Warning-only
// failures never produce this error; they are reported and the phase
// continues.
var ErrBlocked = errors.New("blocking validation failed")

// Rule is a single validation predicate attached to a phase.
type Rule struct {
	// Name identifies the rule in reports.
	Name string

	// PhaseID is the phase the rule guards.
	PhaseID string

	// Stage selects pre- or post-transfer execution.
	Stage migrate.ValidationStage

	// Severity controls whether a failure blocks the phase.
	Severity migrate.Severity

	// Check is the predicate. For StagePre rules, result is nil; for
	// StagePost rules it carries the transfer outcome. A non-nil error
	// is a failed rule, with the error text as the failure message.
	Check func(ctx context.Context, result *transfer.Result) error
}

// Gate runs the rules of a migration plan around each phase.
type Gate struct {
	rules  []Rule
	logger migrate.Logger
}

// New creates a Gate over the given rules. A nil logger disables logging.
func New(rules []Rule, logger migrate.Logger) *Gate {
	return &Gate{rules: rules, logger: logger}
}

// RunPre runs the phase's pre-stage rules, before any row is mutated.
// All failures are returned, warnings included; the error is ErrBlocked
// when any blocking rule failed.
func (g *Gate) RunPre(ctx context.Context, phaseID string) ([]migrate.ValidationFailure, error) {
	return g.run(ctx, phaseID, migrate.StagePre, nil)
}

// RunPost runs the phase's post-stage rules against the transfer result.
func (g *Gate) RunPost(ctx context.Context, phaseID string, result transfer.Result) ([]migrate.ValidationFailure, error) {
	return g.run(ctx, phaseID, migrate.StagePost, &result)
}

func (g *Gate) run(ctx context.Context, phaseID string, stage migrate.ValidationStage, result *transfer.Result) ([]migrate.ValidationFailure, error) {
	var failures []migrate.ValidationFailure
	blocked := false

	for _, rule := range g.rules {
		if rule.PhaseID != phaseID || rule.Stage != stage {
			continue
		}

		if err := rule.Check(ctx, result); err != nil {
			failure := migrate.ValidationFailure{
				Rule:     rule.Name,
				PhaseID:  phaseID,
				Stage:    stage,
				Severity: rule.Severity,
				Message:  err.Error(),
			}
			failures = append(failures, failure)

			if rule.Severity == migrate.SeverityBlocking {
				blocked = true
			}

			if g.logger != nil {
				g.logger.Info(ctx, "validation rule failed",
					"phase", phaseID, "rule", rule.Name,
					"stage", stage, "severity", rule.Severity, "error", err)
			}
		}
	}

	if blocked {
		return failures, ErrBlocked
	}
	return failures, nil
}
