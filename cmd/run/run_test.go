package run

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_err"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRefusesPrivilegedPlanWithoutRoot(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("running as root, the privilege gate passes by definition")
	}

	dir := t.TempDir()
	target := filepath.Join(dir, "agent-state")
	require.NoError(t, os.WriteFile(target, []byte("payload"), 0o644))

	planPath := filepath.Join(dir, "plan.yaml")
	doc := fmt.Sprintf(`name: privileged-cleanup
requires_root: true
steps:
  - name: purge-state
    kind: delete-path
    path: %s
`, target)
	require.NoError(t, os.WriteFile(planPath, []byte(doc), 0o644))

	err := RunCmd.RunE(RunCmd, []string{planPath})
	require.Error(t, err)
	assert.Equal(t, 4, iaso_err.GetExitCode(err), "missing rights surface once, before any step")

	_, statErr := os.Stat(target)
	assert.NoError(t, statErr, "no step may perform after the gate fails")
}
