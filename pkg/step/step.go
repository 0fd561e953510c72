// pkg/step/step.go

// Package step defines the atomic unit of remediation: a named action
// guarded by a precondition, with a dry-run projection and a captured
// result. Nothing a step does - including a panic in its action - escapes
// to the runner as anything other than a StepResult.
package step

import (
	"fmt"
	"time"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_io"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/precheck"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Outcome is the recorded disposition of one step execution.
type Outcome string

const (
	OutcomePerformed Outcome = "Performed"
	OutcomeSkipped   Outcome = "Skipped-NotNeeded"
	OutcomeDryRun    Outcome = "Performed-DryRun"
	OutcomeFailed    Outcome = "Failed"
)

// Config is the per-run execution mode a step receives. Immutable for the
// duration of the run.
type Config struct {
	DryRun bool
}

// Action is a declared side effect. Apply may return outcome detail for the
// result record (exit codes, indeterminate waits); an empty detail falls
// back to Describe, which doubles as the dry-run projection text. Kind keys
// the report's follow-up recommendations.
type Action interface {
	Apply(rc *iaso_io.RuntimeContext) (detail string, err error)
	Describe() string
	Kind() string
}

// Step is one atomic, preconditioned, loggable remediation action.
type Step struct {
	Name        string
	Critical    bool
	Destructive bool
	Check       precheck.Checker
	Action      Action
}

// Result captures what one step execution did.
type Result struct {
	StepName string
	Kind     string
	Outcome  Outcome
	Detail   string
	Duration time.Duration
}

// Execute runs the step: dry-run projection, precondition consultation, then
// the side effect. Failures from the underlying OS calls are translated into
// OutcomeFailed with the captured diagnostic; they never propagate.
func (s Step) Execute(rc *iaso_io.RuntimeContext, cfg Config) (result Result) {
	logger := otelzap.Ctx(rc.Ctx)
	start := time.Now()

	result = Result{StepName: s.Name, Kind: s.Action.Kind()}
	defer func() {
		result.Duration = time.Since(start)
		if r := recover(); r != nil {
			result.Outcome = OutcomeFailed
			result.Detail = fmt.Sprintf("panic: %v", r)
			logger.Error("Step panicked",
				zap.String("step", s.Name),
				zap.Any("panic", r))
		}
	}()

	if cfg.DryRun {
		result.Outcome = OutcomeDryRun
		result.Detail = s.Action.Describe()
		logger.Info("Dry run - would perform",
			zap.String("step", s.Name),
			zap.String("effect", result.Detail))
		return result
	}

	finding, err := s.Check.Evaluate(rc)
	if err != nil {
		// A failed check is treated like a failed action: we cannot prove
		// the step is needed, and guessing is worse than reporting.
		result.Outcome = OutcomeFailed
		result.Detail = fmt.Sprintf("precondition check failed: %v", err)
		logger.Error("Precondition check failed",
			zap.String("step", s.Name),
			zap.Error(err))
		return result
	}

	if !finding.Status.ActionNeeded() {
		result.Outcome = OutcomeSkipped
		result.Detail = finding.Detail
		logger.Info("Step skipped",
			zap.String("step", s.Name),
			zap.String("status", finding.Status.String()),
			zap.String("detail", finding.Detail))
		return result
	}

	logger.Info("Performing step",
		zap.String("step", s.Name),
		zap.String("effect", s.Action.Describe()),
		zap.Bool("critical", s.Critical))

	detail, err := s.Action.Apply(rc)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Detail = err.Error()
		logger.Error("Step failed",
			zap.String("step", s.Name),
			zap.Error(err))
		return result
	}

	result.Outcome = OutcomePerformed
	if detail == "" {
		detail = s.Action.Describe()
	}
	result.Detail = detail
	logger.Info("Step performed",
		zap.String("step", s.Name),
		zap.Duration("took", time.Since(start)))
	return result
}
