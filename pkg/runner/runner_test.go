package runner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/backup"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_err"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_io"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/precheck"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/runner"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/step"
	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCheck struct {
	finding precheck.Finding
	err     error
}

func (c fakeCheck) Describe() string { return "fake check" }
func (c fakeCheck) Evaluate(*iaso_io.RuntimeContext) (precheck.Finding, error) {
	return c.finding, c.err
}

type fakeAction struct {
	applied *int
	err     error
}

func (a fakeAction) Kind() string     { return "fake" }
func (a fakeAction) Describe() string { return "fake effect" }
func (a fakeAction) Apply(*iaso_io.RuntimeContext) (string, error) {
	if a.applied != nil {
		*a.applied++
	}
	return "", a.err
}

func actionable() fakeCheck {
	return fakeCheck{finding: precheck.Finding{Status: precheck.PresentAndActionable, Detail: "needs work"}}
}

func testRC(t *testing.T) *iaso_io.RuntimeContext {
	t.Helper()
	return iaso_io.NewContext(context.Background(), "test")
}

func okStep(name string, applied *int) step.Step {
	return step.Step{Name: name, Check: actionable(), Action: fakeAction{applied: applied}}
}

func TestRunCriticalFailureAbortsRemainder(t *testing.T) {
	t.Parallel()
	var applied int

	steps := []step.Step{
		okStep("one", &applied),
		{Name: "two", Critical: true, Check: actionable(), Action: fakeAction{err: cerr.New("disk on fire")}},
		okStep("three", &applied),
		okStep("four", &applied),
		okStep("five", &applied),
	}

	r := runner.New()
	results, err := r.Run(testRC(t), steps, runner.Config{})

	require.Error(t, err)
	assert.Equal(t, 1, iaso_err.GetExitCode(err))
	assert.Equal(t, runner.StateAborted, r.State())
	require.Len(t, results, 5)

	assert.Equal(t, step.OutcomePerformed, results[0].Outcome)
	assert.Equal(t, step.OutcomeFailed, results[1].Outcome)
	for _, res := range results[2:] {
		assert.Equal(t, step.OutcomeSkipped, res.Outcome)
		assert.Equal(t, "aborted by prior failure", res.Detail)
	}
	assert.Equal(t, 1, applied, "steps after the abort must not run")
}

func TestRunNonCriticalFailureContinues(t *testing.T) {
	t.Parallel()
	var applied int

	steps := []step.Step{
		{Name: "one", Check: actionable(), Action: fakeAction{err: cerr.New("transient")}},
		okStep("two", &applied),
	}

	r := runner.New()
	results, err := r.Run(testRC(t), steps, runner.Config{})

	require.NoError(t, err)
	assert.Equal(t, runner.StateCompleted, r.State())
	require.Len(t, results, 2)
	assert.Equal(t, step.OutcomeFailed, results[0].Outcome)
	assert.Equal(t, step.OutcomePerformed, results[1].Outcome)
	assert.Equal(t, 1, applied)
}

func TestRunIsIdempotentWhenNothingIsNeeded(t *testing.T) {
	t.Parallel()
	var applied int

	done := fakeCheck{finding: precheck.Finding{Status: precheck.NotPresent, Detail: "already done"}}
	steps := []step.Step{
		{Name: "one", Check: done, Action: fakeAction{applied: &applied}},
		{Name: "two", Check: done, Action: fakeAction{applied: &applied}},
	}

	r := runner.New()
	results, err := r.Run(testRC(t), steps, runner.Config{})

	require.NoError(t, err)
	for _, res := range results {
		assert.Equal(t, step.OutcomeSkipped, res.Outcome)
	}
	assert.Zero(t, applied, "a second run over a remediated host must change nothing")
}

func TestRunBackupPrecedesFirstDestructiveStep(t *testing.T) {
	t.Parallel()
	rc := testRC(t)
	dir := t.TempDir()

	source := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(source, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(source, "f.txt"), []byte("payload"), 0o644))

	var applied int
	steps := []step.Step{
		okStep("prepare", &applied),
		{Name: "purge", Destructive: true, Check: actionable(), Action: fakeAction{applied: &applied}},
	}

	collector := backup.NewCollector()
	collector.FreeSpace = func(string) (uint64, error) { return 1 << 40, nil }

	r := runner.NewWithCollector(collector)
	results, err := r.Run(rc, steps, runner.Config{
		Backup: &runner.BackupRequest{Source: source, DestRoot: filepath.Join(dir, "backups")},
	})

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "prepare", results[0].StepName)
	assert.Equal(t, runner.BackupStepName, results[1].StepName)
	assert.Equal(t, step.OutcomePerformed, results[1].Outcome)
	assert.Equal(t, "purge", results[2].StepName)
	assert.Equal(t, step.OutcomePerformed, results[2].Outcome)
	assert.Equal(t, 2, applied)
}

func TestRunBackupFailureBlocksOnlyDestructiveSteps(t *testing.T) {
	t.Parallel()
	rc := testRC(t)
	dir := t.TempDir()

	source := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(source, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(source, "f.txt"), []byte("payload"), 0o644))

	var applied int
	steps := []step.Step{
		{Name: "purge", Destructive: true, Check: actionable(), Action: fakeAction{applied: &applied}},
		okStep("report", &applied),
	}

	collector := backup.NewCollector()
	collector.FreeSpace = func(string) (uint64, error) { return 0, nil }

	r := runner.NewWithCollector(collector)
	results, err := r.Run(rc, steps, runner.Config{
		Backup: &runner.BackupRequest{Source: source, DestRoot: filepath.Join(dir, "backups")},
	})

	require.NoError(t, err, "a gated backup is not a critical failure")
	require.Len(t, results, 3)

	assert.Equal(t, runner.BackupStepName, results[0].StepName)
	assert.Equal(t, step.OutcomeFailed, results[0].Outcome)

	assert.Equal(t, "purge", results[1].StepName)
	assert.Equal(t, step.OutcomeSkipped, results[1].Outcome)
	assert.Equal(t, "skipped: backup unavailable", results[1].Detail)

	assert.Equal(t, "report", results[2].StepName)
	assert.Equal(t, step.OutcomePerformed, results[2].Outcome)
	assert.Equal(t, 1, applied, "only the non-destructive step may act")
}

func TestRunDryRunProjectsBackupAndSteps(t *testing.T) {
	t.Parallel()
	var applied int

	steps := []step.Step{
		{Name: "purge", Destructive: true, Check: actionable(), Action: fakeAction{applied: &applied}},
	}

	r := runner.New()
	results, err := r.Run(testRC(t), steps, runner.Config{
		DryRun: true,
		Backup: &runner.BackupRequest{Source: "/var/lib/agent", DestRoot: "/var/backups"},
	})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, step.OutcomeDryRun, results[0].Outcome)
	assert.Equal(t, step.OutcomeDryRun, results[1].Outcome)
	assert.Zero(t, applied)
	assert.Equal(t, runner.StateCompleted, r.State())
}

func TestStateStrings(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "not-started", runner.StateNotStarted.String())
	assert.Equal(t, "running", runner.StateRunning.String())
	assert.Equal(t, "aborted", runner.StateAborted.String())
	assert.Equal(t, "completed", runner.StateCompleted.String())
}
