// pkg/runner/runner.go

// Package runner executes an ordered remediation sequence. Steps run
// strictly in declaration order (order encodes real dependency); a critical
// step's failure aborts the rest, anything else is logged and the sequence
// continues.
package runner

import (
	"fmt"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/backup"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_err"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_io"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/step"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// State is the runner's lifecycle position.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateAborted
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateRunning:
		return "running"
	case StateAborted:
		return "aborted"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// BackupRequest asks for a pre-remediation backup of a source tree.
type BackupRequest struct {
	Source   string
	DestRoot string
}

// Config is the immutable run configuration the runner receives.
type Config struct {
	DryRun bool
	Backup *BackupRequest // nil disables the backup
}

// BackupStepName is the pseudo-step under which backup outcomes are recorded.
const BackupStepName = "backup"

// Runner executes remediation sequences.
type Runner struct {
	state     State
	collector *backup.Collector
}

// New returns a runner using the real backup collector.
func New() *Runner {
	return &Runner{collector: backup.NewCollector()}
}

// NewWithCollector injects a collector; used by tests to fake free space.
func NewWithCollector(c *backup.Collector) *Runner {
	return &Runner{collector: c}
}

// State reports the runner's lifecycle position.
func (r *Runner) State() State { return r.state }

// Run executes steps in order and returns one result per step (plus the
// backup pseudo-step when a backup was requested). The returned error is
// non-nil only for a critical abort; non-critical failures are recorded in
// the results and are exit-0 compatible.
func (r *Runner) Run(rc *iaso_io.RuntimeContext, steps []step.Step, cfg Config) ([]step.Result, error) {
	logger := otelzap.Ctx(rc.Ctx)
	r.state = StateRunning

	results := make([]step.Result, 0, len(steps)+1)
	stepCfg := step.Config{DryRun: cfg.DryRun}

	backupDone := false
	backupFailed := false
	var abortCause error

	logger.Info("Remediation sequence starting",
		zap.Int("steps", len(steps)),
		zap.Bool("dry_run", cfg.DryRun),
		zap.Bool("backup_requested", cfg.Backup != nil))

	for i, s := range steps {
		if abortCause != nil {
			results = append(results, step.Result{
				StepName: s.Name,
				Kind:     s.Action.Kind(),
				Outcome:  step.OutcomeSkipped,
				Detail:   "aborted by prior failure",
			})
			continue
		}

		// The backup, when requested, runs once, immediately before the
		// first destructive step.
		if s.Destructive && cfg.Backup != nil && !backupDone {
			backupResult := r.runBackup(rc, cfg)
			backupDone = true
			backupFailed = backupResult.Outcome == step.OutcomeFailed
			results = append(results, backupResult)
		}

		if s.Destructive && backupFailed && !cfg.DryRun {
			// Resource gates block only the dependent steps; the rest of
			// the sequence still runs.
			logger.Warn("Skipping destructive step, backup unavailable",
				zap.String("step", s.Name))
			results = append(results, step.Result{
				StepName: s.Name,
				Kind:     s.Action.Kind(),
				Outcome:  step.OutcomeSkipped,
				Detail:   "skipped: backup unavailable",
			})
			continue
		}

		result := s.Execute(rc, stepCfg)
		results = append(results, result)

		if result.Outcome == step.OutcomeFailed && s.Critical {
			logger.Error("Critical step failed, aborting sequence",
				zap.String("step", s.Name),
				zap.Int("remaining", len(steps)-i-1))
			abortCause = iaso_err.NewCriticalAbortError(s.Name, fmt.Errorf("%s", result.Detail))
		}
	}

	if abortCause != nil {
		r.state = StateAborted
		return results, abortCause
	}

	r.state = StateCompleted
	logger.Info("Remediation sequence completed", zap.Int("steps", len(results)))
	return results, nil
}

func (r *Runner) runBackup(rc *iaso_io.RuntimeContext, cfg Config) step.Result {
	logger := otelzap.Ctx(rc.Ctx)

	if cfg.DryRun {
		detail := fmt.Sprintf("would back up %q to %q", cfg.Backup.Source, cfg.Backup.DestRoot)
		logger.Info("Dry run - would perform", zap.String("step", BackupStepName), zap.String("effect", detail))
		return step.Result{
			StepName: BackupStepName,
			Kind:     BackupStepName,
			Outcome:  step.OutcomeDryRun,
			Detail:   detail,
		}
	}

	manifest, err := r.collector.Collect(rc, cfg.Backup.Source, cfg.Backup.DestRoot)
	if err != nil {
		return step.Result{
			StepName: BackupStepName,
			Kind:     BackupStepName,
			Outcome:  step.OutcomeFailed,
			Detail:   err.Error(),
		}
	}
	return step.Result{
		StepName: BackupStepName,
		Kind:     BackupStepName,
		Outcome:  step.OutcomePerformed,
		Detail:   fmt.Sprintf("backed up %d bytes to %s", manifest.ByteSize, manifest.DestPath),
	}
}
