// pkg/process/stop.go

package process

import (
	"syscall"
	"time"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const pollInterval = time.Second

// Stop terminates every instance of the named binary: SIGTERM first, then a
// bounded once-per-second wait, then SIGKILL for anything still alive.
// Returns nil when no matching process remains.
func Stop(rc *iaso_io.RuntimeContext, processName string, timeout time.Duration) error {
	logger := otelzap.Ctx(rc.Ctx)

	// ASSESS
	info, err := List(rc, processName)
	if err != nil {
		return err
	}
	if len(info.PIDs) == 0 {
		logger.Debug("Process not running, nothing to stop",
			zap.String("process_name", processName))
		return nil
	}

	// INTERVENE
	logger.Info("Stopping process",
		zap.String("process_name", processName),
		zap.Ints("pids", info.PIDs))

	for _, pid := range info.PIDs {
		if err := syscall.Kill(pid, syscall.SIGTERM); err != nil && err != syscall.ESRCH {
			logger.Warn("SIGTERM failed",
				zap.Int("pid", pid),
				zap.Error(err))
		}
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		remaining, err := List(rc, processName)
		if err != nil {
			return err
		}
		if len(remaining.PIDs) == 0 {
			logger.Info("Process stopped", zap.String("process_name", processName))
			return nil
		}

		select {
		case <-rc.Ctx.Done():
			return rc.Ctx.Err()
		case <-time.After(pollInterval):
		}
	}

	// EVALUATE - escalate to SIGKILL for survivors
	remaining, err := List(rc, processName)
	if err != nil {
		return err
	}
	for _, pid := range remaining.PIDs {
		logger.Warn("Process did not exit on SIGTERM, sending SIGKILL",
			zap.Int("pid", pid))
		if err := syscall.Kill(pid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
			return cerr.Wrapf(err, "failed to kill pid %d", pid)
		}
	}

	final, err := List(rc, processName)
	if err != nil {
		return err
	}
	if len(final.PIDs) > 0 {
		return cerr.Newf("process %s still running after SIGKILL (pids %v)", processName, final.PIDs)
	}
	return nil
}
