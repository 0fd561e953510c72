// pkg/systemd/systemctl.go

// Package systemd is the narrow service-control facility: status, start and
// startup-type changes for named units, with interpreted exit codes and
// journal-backed diagnostics on failure.
package systemd

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/execute"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Systemctl exit codes (systemctl(1)). is-active/is-enabled/is-failed use a
// different code space than start/stop/restart.
const (
	ExitSuccess     = 0
	ExitGenericFail = 1
	ExitInactive    = 3
	ExitUnknown     = 4
	ExitNotLoaded   = 5
)

// UnitStatus is the observed state of a unit.
type UnitStatus struct {
	Unit    string
	Active  bool
	Enabled bool
	Raw     string
}

// Available reports whether systemctl exists on this host.
func Available() bool {
	_, err := exec.LookPath("systemctl")
	return err == nil
}

// Status queries is-active and is-enabled for a unit.
func Status(ctx context.Context, unit string) (*UnitStatus, error) {
	logger := otelzap.Ctx(ctx)

	status := &UnitStatus{Unit: unit}

	activeOut, activeErr := execute.Run(ctx, execute.Options{
		Command: "systemctl",
		Args:    []string{"is-active", unit},
		Capture: true,
	})
	status.Raw = strings.TrimSpace(activeOut)
	status.Active = activeErr == nil && status.Raw == "active"

	enabledOut, enabledErr := execute.Run(ctx, execute.Options{
		Command: "systemctl",
		Args:    []string{"is-enabled", unit},
		Capture: true,
	})
	status.Enabled = enabledErr == nil && strings.TrimSpace(enabledOut) == "enabled"

	logger.Debug("Unit status",
		zap.String("unit", unit),
		zap.Bool("active", status.Active),
		zap.Bool("enabled", status.Enabled),
		zap.String("raw", status.Raw))

	return status, nil
}

// Exists checks whether a unit file is loaded for the given name.
func Exists(ctx context.Context, unit string) bool {
	_, err := execute.Run(ctx, execute.Options{
		Command: "systemctl",
		Args:    []string{"cat", unit},
		Capture: true,
	})
	return err == nil
}

// Start starts a unit. Callers that need the unit verified active should
// follow with WaitActive.
func Start(ctx context.Context, unit string) error {
	logger := otelzap.Ctx(ctx)
	logger.Info("Starting systemd unit", zap.String("unit", unit))

	output, err := execute.Run(ctx, execute.Options{
		Command: "systemctl",
		Args:    []string{"start", unit},
		Capture: true,
	})
	if err != nil {
		diag := Diagnostics(ctx, unit)
		logger.Error("failed to start unit",
			zap.String("unit", unit),
			zap.Error(err),
			zap.String("output", output),
			zap.String("status_output", diag.StatusOutput),
			zap.String("journal_output", diag.JournalOutput))
		return cerr.Wrapf(err, "systemctl start %s", unit)
	}
	return nil
}

// SetStartupType enables or disables a unit at boot.
func SetStartupType(ctx context.Context, unit string, enabled bool) error {
	logger := otelzap.Ctx(ctx)

	action := "enable"
	if !enabled {
		action = "disable"
	}
	logger.Info("Setting unit startup type",
		zap.String("unit", unit),
		zap.String("action", action))

	if _, err := execute.Run(ctx, execute.Options{
		Command: "systemctl",
		Args:    []string{action, unit},
		Capture: true,
	}); err != nil {
		return cerr.Wrapf(err, "systemctl %s %s", action, unit)
	}
	return nil
}

// WaitActive polls is-active once per second until the unit reports active
// or the timeout elapses.
func WaitActive(ctx context.Context, unit string, timeout time.Duration) error {
	logger := otelzap.Ctx(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(time.Second), 1)
	for {
		if err := limiter.Wait(waitCtx); err != nil {
			diag := Diagnostics(ctx, unit)
			logger.Error("Unit did not become active before timeout",
				zap.String("unit", unit),
				zap.Duration("timeout", timeout),
				zap.String("status_output", diag.StatusOutput),
				zap.String("journal_output", diag.JournalOutput))
			return cerr.Newf("unit %s not active after %s\nStatus: %s\nRecent logs:\n%s\nRemediation: run 'systemctl status %s' and 'journalctl -u %s -n 50'",
				unit, timeout, diag.StatusOutput, diag.JournalOutput, unit, unit)
		}

		status, err := Status(ctx, unit)
		if err == nil && status.Active {
			logger.Info("Unit is active", zap.String("unit", unit))
			return nil
		}
	}
}

// ServiceDiagnostics carries status and journal capture for a failing unit.
type ServiceDiagnostics struct {
	StatusOutput  string
	JournalOutput string
}

// Diagnostics captures detailed state for a failed unit. systemctl status
// exits non-zero for failed units; the output is still what we want.
func Diagnostics(ctx context.Context, unit string) ServiceDiagnostics {
	diag := ServiceDiagnostics{}

	statusOutput, _ := execute.Run(ctx, execute.Options{
		Command: "systemctl",
		Args:    []string{"status", unit, "-l", "--no-pager"},
		Capture: true,
	})
	diag.StatusOutput = statusOutput

	journalOutput, err := execute.Run(ctx, execute.Options{
		Command: "journalctl",
		Args:    []string{"-u", unit, "-n", "50", "--no-pager"},
		Capture: true,
	})
	if err != nil {
		diag.JournalOutput = fmt.Sprintf("(journalctl failed: %v)", err)
	} else {
		diag.JournalOutput = journalOutput
	}

	return diag
}
