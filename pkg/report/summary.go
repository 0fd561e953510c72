// pkg/report/summary.go

// Package report turns a sequence of step results into the final digest:
// counts by outcome, failed steps with concrete remedies, and follow-up
// recommendations. Pure over the results; the only side effect is emission
// through the session logger.
package report

import (
	"fmt"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_io"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/runner"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/step"
	"github.com/hashicorp/go-multierror"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// FailedStep pairs a failed result with its suggested remedy.
type FailedStep struct {
	Result step.Result
	Remedy string
}

// Summary is the final digest of a remediation run.
type Summary struct {
	Counts    map[step.Outcome]int
	Failed    []FailedStep
	Aborted   bool
	FollowUps []string
}

// Options adjusts follow-up recommendations.
type Options struct {
	Aborted  bool
	NoReboot bool
}

// Summarize folds step results into a Summary.
func Summarize(results []step.Result, opts Options) Summary {
	summary := Summary{
		Counts:  make(map[step.Outcome]int),
		Aborted: opts.Aborted,
	}

	for _, r := range results {
		summary.Counts[r.Outcome]++
		if r.Outcome == step.OutcomeFailed {
			summary.Failed = append(summary.Failed, FailedStep{
				Result: r,
				Remedy: remedyFor(r),
			})
		}
	}

	if opts.Aborted {
		summary.FollowUps = append(summary.FollowUps,
			"The sequence aborted on a critical failure; re-run after addressing it - completed steps will be skipped")
	}
	if opts.NoReboot && summary.Counts[step.OutcomePerformed] > 0 {
		summary.FollowUps = append(summary.FollowUps,
			"A restart was suppressed (--no-reboot); reboot at the next opportunity to finish applying changes")
	}
	return summary
}

// FailureDetail aggregates every failed step into one error for the log.
// Nil when nothing failed. This never drives the exit code; non-critical
// failures are exit-0 compatible.
func (s Summary) FailureDetail() error {
	var merr *multierror.Error
	for _, f := range s.Failed {
		merr = multierror.Append(merr, fmt.Errorf("step %q: %s", f.Result.StepName, f.Result.Detail))
	}
	return merr.ErrorOrNil()
}

// Log emits the digest through the session logger.
func (s Summary) Log(rc *iaso_io.RuntimeContext) {
	logger := otelzap.Ctx(rc.Ctx)

	logger.Info("Remediation summary",
		zap.Int("performed", s.Counts[step.OutcomePerformed]),
		zap.Int("skipped", s.Counts[step.OutcomeSkipped]),
		zap.Int("dry_run", s.Counts[step.OutcomeDryRun]),
		zap.Int("failed", s.Counts[step.OutcomeFailed]),
		zap.Bool("aborted", s.Aborted))

	for _, f := range s.Failed {
		logger.Warn("Failed step",
			zap.String("step", f.Result.StepName),
			zap.String("detail", f.Result.Detail),
			zap.String("remedy", f.Remedy))
	}
	for _, followUp := range s.FollowUps {
		logger.Info("Follow-up", zap.String("recommendation", followUp))
	}
}

// remedyFor keys a concrete suggestion to the step kind, so the summary
// ends with actionable instructions instead of a raw error dump.
func remedyFor(r step.Result) string {
	switch r.Kind {
	case step.KindRegistrySet, step.KindRegistryDelete:
		return "adjust the registry value manually (see step detail for the exact path), then re-run"
	case step.KindEnsureService:
		return "inspect the unit with 'systemctl status' and 'journalctl -u <unit> -n 50', then re-run"
	case step.KindStopProcess:
		return "the process resisted termination; stop it manually and re-run"
	case step.KindDeletePath, step.KindMovePath, step.KindCopyPath:
		return "check path permissions and whether another process holds the file open, then re-run"
	case step.KindRunInstaller:
		return "run the installer manually with the logged arguments and inspect its exit code"
	case runner.BackupStepName:
		return "free space at the backup destination or pass --backup-path, then re-run"
	default:
		return "review the session log for the captured diagnostic"
	}
}
