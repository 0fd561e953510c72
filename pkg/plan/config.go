// pkg/plan/config.go

package plan

import (
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/fileops"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_err"
	"github.com/go-playground/validator/v10"
)

// RunConfig is the immutable per-invocation configuration, built once from
// flags and the tool config before the runner starts.
type RunConfig struct {
	DryRun     bool
	Silent     bool
	NoBackup   bool
	BackupPath string
	NoReboot   bool

	// ConflictPolicy applies to copy/move steps that don't declare their own.
	ConflictPolicy fileops.ConflictPolicy `validate:"oneof=none delete rename newer"`

	// CriticalOverrides forces a step's criticality by name.
	CriticalOverrides map[string]bool
}

// DefaultRunConfig returns the baseline configuration.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		ConflictPolicy:    fileops.ConflictRename,
		CriticalOverrides: make(map[string]bool),
	}
}

// Validate checks flag combinations before anything runs.
func (c *RunConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return iaso_err.NewValidationError(err.Error(),
			"--conflict-policy accepts: none, delete, rename, newer")
	}
	if c.NoBackup && c.BackupPath != "" {
		return iaso_err.NewValidationError("--no-backup and --backup-path are mutually exclusive")
	}
	return nil
}
