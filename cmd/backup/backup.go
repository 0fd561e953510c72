// cmd/backup/backup.go

package backup

import (
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/backup"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/config"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_cli"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_io"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

var backupDest string

// BackupCmd collects a backup of a directory tree, outside any plan.
var BackupCmd = &cobra.Command{
	Use:   "backup <source>",
	Short: "Back up a directory tree before manual intervention",
	Long: `Copy a directory tree into a timestamped backup directory, after
verifying the destination has free space for the payload plus headroom.

Examples:
  iaso backup /var/lib/legacy-agent
  iaso backup /var/lib/legacy-agent --dest /mnt/backups`,

	Args: cobra.ExactArgs(1),
	RunE: iaso_cli.Wrap(func(rc *iaso_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		log := otelzap.Ctx(rc.Ctx)
		source := args[0]

		destRoot := backupDest
		if destRoot == "" {
			settings, err := config.Load(logger.L())
			if err != nil {
				return err
			}
			destRoot = settings.BackupRoot
		}

		manifest, err := backup.NewCollector().Collect(rc, source, destRoot)
		if err != nil {
			return err
		}

		log.Info("Backup complete",
			zap.String("source", manifest.SourcePath),
			zap.String("dest", manifest.DestPath),
			zap.Int64("bytes", manifest.ByteSize))
		return nil
	}),
}

func init() {
	BackupCmd.Flags().StringVar(&backupDest, "dest", "", "Backup destination root (defaults to the configured backup root)")
}
