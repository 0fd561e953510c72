// pkg/installer/installer.go

// Package installer is the install/uninstall execution facility: run a
// packaged installer or uninstaller with fixed arguments, waiting for exit
// (with the code captured), waiting up to a bound and then proceeding with
// an indeterminate outcome, or launching detached for long-running scans.
package installer

import (
	"context"
	"os/exec"
	"time"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Result reports what happened to the launched program.
type Result struct {
	ExitCode      int
	Waited        bool
	Indeterminate bool // launched but outcome unknown (detached or wait expired)
}

// RunAndWait executes the installer and blocks until exit. A zero timeout
// waits indefinitely; a positive timeout bounds the wait, after which the
// caller proceeds and the Result is marked indeterminate. A non-zero exit
// code is returned in the Result alongside the error so the caller can log
// the code the vendor tool reported.
func RunAndWait(rc *iaso_io.RuntimeContext, path string, args []string, timeout time.Duration) (Result, error) {
	logger := otelzap.Ctx(rc.Ctx)

	ctx := rc.Ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(rc.Ctx, timeout)
		defer cancel()
	}

	logger.Info("Running installer",
		zap.String("path", path),
		zap.Strings("args", args),
		zap.Duration("timeout", timeout))

	cmd := exec.CommandContext(ctx, path, args...)
	err := cmd.Run()

	result := Result{Waited: true}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctx.Err() == context.DeadlineExceeded {
		// Bounded wait expired; proceed and record the indeterminate outcome.
		result.Indeterminate = true
		logger.Warn("Installer did not exit before timeout, proceeding",
			zap.String("path", path),
			zap.Duration("timeout", timeout))
		return result, nil
	}
	if err != nil {
		logger.Error("Installer failed",
			zap.String("path", path),
			zap.Int("exit_code", result.ExitCode),
			zap.Error(err))
		return result, cerr.Wrapf(err, "installer %s exited %d", path, result.ExitCode)
	}

	logger.Info("Installer completed",
		zap.String("path", path),
		zap.Int("exit_code", result.ExitCode))
	return result, nil
}

// Launch starts the program without waiting for exit. Used for long-running
// scans where blocking the remediation sequence is not acceptable.
func Launch(rc *iaso_io.RuntimeContext, path string, args []string) (Result, error) {
	logger := otelzap.Ctx(rc.Ctx)

	logger.Info("Launching without wait",
		zap.String("path", path),
		zap.Strings("args", args))

	cmd := exec.Command(path, args...)
	if err := cmd.Start(); err != nil {
		return Result{}, cerr.Wrapf(err, "failed to launch %s", path)
	}

	// Reap the child in the background so it never zombies.
	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Debug("Detached program exited with error",
				zap.String("path", path),
				zap.Error(err))
		}
	}()

	logger.Info("Launched",
		zap.String("path", path),
		zap.Int("pid", cmd.Process.Pid))
	return Result{Indeterminate: true}, nil
}
