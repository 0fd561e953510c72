// pkg/process/check.go
//
// Process detection - exact binary name matching with /proc verification.

package process

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_io"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Info describes the running instances of a named binary.
type Info struct {
	ProcessName string
	PIDs        []int
}

// Running reports whether any instance of the named binary is running.
func Running(rc *iaso_io.RuntimeContext, processName string) (bool, error) {
	info, err := List(rc, processName)
	if err != nil {
		return false, err
	}
	return len(info.PIDs) > 0, nil
}

// List finds processes matching the exact binary name. pgrep -x narrows the
// candidates; each PID is then verified against /proc/$PID/exe so substring
// matches never produce false positives.
func List(rc *iaso_io.RuntimeContext, processName string) (*Info, error) {
	logger := otelzap.Ctx(rc.Ctx)

	info := &Info{ProcessName: processName}

	cmd := exec.CommandContext(rc.Ctx, "pgrep", "-x", processName)
	output, err := cmd.Output()

	// pgrep exits 1 when nothing matched; that is not an error.
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok && exitError.ExitCode() == 1 {
			logger.Debug("No running processes found",
				zap.String("process_name", processName))
			return info, nil
		}
		return nil, fmt.Errorf("failed to check for running processes: %w", err)
	}

	for _, pidStr := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		pidStr = strings.TrimSpace(pidStr)
		if pidStr == "" {
			continue
		}
		pid, err := strconv.Atoi(pidStr)
		if err != nil {
			continue
		}

		target, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
		if err != nil {
			// Process may have exited, or we lack permission.
			logger.Debug("Cannot read process exe link (may have exited)",
				zap.Int("pid", pid),
				zap.Error(err))
			continue
		}

		binaryName := target
		if lastSlash := strings.LastIndex(target, "/"); lastSlash != -1 {
			binaryName = target[lastSlash+1:]
		}
		if binaryName != processName {
			logger.Debug("PID binary name mismatch (false positive from pgrep)",
				zap.Int("pid", pid),
				zap.String("expected", processName),
				zap.String("actual", binaryName))
			continue
		}

		info.PIDs = append(info.PIDs, pid)
	}

	if len(info.PIDs) > 0 {
		logger.Debug("Found running processes",
			zap.String("process_name", processName),
			zap.Ints("pids", info.PIDs))
	}

	return info, nil
}
