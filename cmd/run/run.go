// cmd/run/run.go

package run

import (
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/config"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/fileops"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_cli"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_io"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/logger"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/plan"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/privilege_check"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/registry"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/report"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/runner"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

var (
	runDryRun         bool
	runSilent         bool
	runNoBackup       bool
	runBackupPath     string
	runNoReboot       bool
	runConflictPolicy string
	runCritical       []string
	runNonCritical    []string
)

// RunCmd executes a remediation plan.
var RunCmd = &cobra.Command{
	Use:   "run <plan.yaml>",
	Short: "Execute a remediation plan",
	Long: `Execute a remediation plan: each step checks its precondition first
and only acts when the condition is actionable, so re-running a plan skips
work that is already done.

Examples:
  iaso run plans/remove-legacy-agent.yaml               # Execute the plan
  iaso run plans/remove-legacy-agent.yaml --dry-run     # Report intended effects only
  iaso run plans/remove-legacy-agent.yaml --silent      # Warnings and errors on the console only
  iaso run plans/remove-legacy-agent.yaml --no-backup   # Skip the pre-remediation backup`,

	Args: cobra.ExactArgs(1),
	RunE: iaso_cli.Wrap(func(rc *iaso_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		log := otelzap.Ctx(rc.Ctx)
		planPath := args[0]

		logger.SetSilent(runSilent)

		cfg := plan.DefaultRunConfig()
		cfg.DryRun = runDryRun
		cfg.Silent = runSilent
		cfg.NoBackup = runNoBackup
		cfg.BackupPath = runBackupPath
		cfg.NoReboot = runNoReboot
		cfg.ConflictPolicy = fileops.ConflictPolicy(runConflictPolicy)
		for _, name := range runCritical {
			cfg.CriticalOverrides[name] = true
		}
		for _, name := range runNonCritical {
			cfg.CriticalOverrides[name] = false
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		settings, err := config.Load(logger.L())
		if err != nil {
			return err
		}

		doc, err := plan.Load(planPath)
		if err != nil {
			return err
		}
		log.Info("Plan loaded",
			zap.String("plan", doc.Name),
			zap.String("path", planPath),
			zap.Int("steps", len(doc.Steps)),
			zap.Bool("dry_run", cfg.DryRun))

		// The privilege gate runs once, before any step. Dry runs only
		// inspect state and may proceed unprivileged.
		if doc.RequiresRoot && !cfg.DryRun {
			if err := privilege_check.RequireRoot(rc, "plan "+doc.Name); err != nil {
				return err
			}
		}

		store := registry.NewFileStore(settings.RegistryRoot)
		steps, backupReq, err := doc.Build(store, cfg)
		if err != nil {
			return err
		}
		if backupReq != nil && backupReq.DestRoot == "" {
			backupReq.DestRoot = settings.BackupRoot
		}

		r := runner.New()
		results, runErr := r.Run(rc, steps, runner.Config{
			DryRun: cfg.DryRun,
			Backup: backupReq,
		})

		summary := report.Summarize(results, report.Options{
			Aborted:  r.State() == runner.StateAborted,
			NoReboot: cfg.NoReboot,
		})
		summary.Log(rc)

		if detail := summary.FailureDetail(); detail != nil {
			log.Warn("Run finished with step failures", zap.Error(detail))
		}

		// Only a critical abort propagates; non-critical failures are
		// recorded in the summary and exit 0.
		return runErr
	}),
}

func init() {
	RunCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Report intended effects without changing anything")
	RunCmd.Flags().BoolVar(&runSilent, "silent", false, "Console shows warnings and errors only; the session log stays complete")
	RunCmd.Flags().BoolVar(&runNoBackup, "no-backup", false, "Skip the plan's pre-remediation backup")
	RunCmd.Flags().StringVar(&runBackupPath, "backup-path", "", "Override the backup destination directory")
	RunCmd.Flags().BoolVar(&runNoReboot, "no-reboot", false, "Suppress any restart; the summary records the follow-up")
	RunCmd.Flags().StringVar(&runConflictPolicy, "conflict-policy", "rename", "Default collision policy for copy/move steps: none, delete, rename, newer")
	RunCmd.Flags().StringSliceVar(&runCritical, "critical", nil, "Treat the named step as critical (repeatable)")
	RunCmd.Flags().StringSliceVar(&runNonCritical, "non-critical", nil, "Treat the named step as non-critical (repeatable)")
}
