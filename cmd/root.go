/* cmd/root.go */

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_cli"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_err"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_io"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	// Subcommands
	"github.com/CodeMonkeyCybersecurity/iaso/cmd/backup"
	"github.com/CodeMonkeyCybersecurity/iaso/cmd/inspect"
	"github.com/CodeMonkeyCybersecurity/iaso/cmd/run"
)

// RootCmd is the base command for iaso.
var RootCmd = &cobra.Command{
	Use:   "iaso",
	Short: "Iaso CLI for idempotent endpoint remediation",
	Long: `Iaso executes declarative remediation plans: ordered sequences of
idempotent steps (stop processes, move and delete paths, adjust settings,
manage services, run installers), each gated by a precondition check so that
re-running a plan never repeats work already done.`,

	RunE: iaso_cli.Wrap(func(rc *iaso_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		fmt.Println("No subcommand provided. Try `iaso help`.")
		return cmd.Help()
	}),
}

// RegisterCommands adds all subcommands to the root command.
func RegisterCommands() {
	// Accept underscore spellings of flags (--dry_run) for operators used to
	// the plan files' key style.
	RootCmd.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	for _, subCmd := range []*cobra.Command{
		run.RunCmd,
		inspect.InspectCmd,
		backup.BackupCmd,
	} {
		RootCmd.AddCommand(subCmd)
	}
}

// Execute runs the root command and maps the outcome to an exit code.
// Expected user errors and non-critical step failures exit 0; classified
// errors carry their own code.
func Execute() {
	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to flush logs: %v\n", err)
		}
	}()

	RegisterCommands()

	if err := RootCmd.Execute(); err != nil {
		code := iaso_err.GetExitCode(err)
		if code == 0 {
			logger.L().Warn("CLI completed with user error", zap.Error(err))
		} else {
			logger.L().Error("CLI execution error", zap.Error(err), zap.Int("exit_code", code))
		}
		os.Exit(code)
	}
}
