// pkg/step/actions.go
//
// One action type per side-effect kind. Each wraps a facility package; the
// Kind strings are stable identifiers used by plan files and the report.

package step

import (
	"fmt"
	"time"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/fileops"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_io"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/installer"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/process"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/registry"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/systemd"
)

// Action kind identifiers.
const (
	KindStopProcess    = "stop-process"
	KindCopyPath       = "copy-path"
	KindMovePath       = "move-path"
	KindDeletePath     = "delete-path"
	KindRegistrySet    = "registry-set"
	KindRegistryDelete = "registry-delete"
	KindEnsureService  = "ensure-service"
	KindRunInstaller   = "run-installer"
)

// DefaultServiceTimeout bounds service activation polls and process stops.
const DefaultServiceTimeout = 30 * time.Second

// StopProcess terminates every instance of a named binary.
type StopProcess struct {
	Name    string
	Timeout time.Duration
}

func (a StopProcess) Kind() string { return KindStopProcess }

func (a StopProcess) Describe() string {
	return fmt.Sprintf("stop process %q", a.Name)
}

func (a StopProcess) Apply(rc *iaso_io.RuntimeContext) (string, error) {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultServiceTimeout
	}
	return "", process.Stop(rc, a.Name, timeout)
}

// CopyPath copies a file or tree with the configured collision policy.
type CopyPath struct {
	Source string
	Dest   string
	Policy fileops.ConflictPolicy
}

func (a CopyPath) Kind() string { return KindCopyPath }

func (a CopyPath) Describe() string {
	return fmt.Sprintf("copy %q to %q (policy %s)", a.Source, a.Dest, a.Policy)
}

func (a CopyPath) Apply(rc *iaso_io.RuntimeContext) (string, error) {
	ops := fileops.NewFileSystemOperations(rc.Log)
	copied, err := ops.CopyTree(a.Source, a.Dest, a.Policy)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("copied %d bytes from %q to %q", copied, a.Source, a.Dest), nil
}

// MovePath moves a file or tree with the configured collision policy.
type MovePath struct {
	Source string
	Dest   string
	Policy fileops.ConflictPolicy
}

func (a MovePath) Kind() string { return KindMovePath }

func (a MovePath) Describe() string {
	return fmt.Sprintf("move %q to %q (policy %s)", a.Source, a.Dest, a.Policy)
}

func (a MovePath) Apply(rc *iaso_io.RuntimeContext) (string, error) {
	return "", fileops.NewFileSystemOperations(rc.Log).MovePath(a.Source, a.Dest, a.Policy)
}

// DeletePath removes a file or directory tree.
type DeletePath struct {
	Path string
}

func (a DeletePath) Kind() string { return KindDeletePath }

func (a DeletePath) Describe() string {
	return fmt.Sprintf("delete %q", a.Path)
}

func (a DeletePath) Apply(rc *iaso_io.RuntimeContext) (string, error) {
	return "", fileops.NewFileSystemOperations(rc.Log).Delete(a.Path)
}

// SetRegistryValue writes a typed value at (path, name).
type SetRegistryValue struct {
	Store registry.Store
	Path  string
	Name  string
	Value registry.Value
}

func (a SetRegistryValue) Kind() string { return KindRegistrySet }

func (a SetRegistryValue) Describe() string {
	return fmt.Sprintf("set registry value %s:%s = %s (%s)", a.Path, a.Name, a.Value.Data, a.Value.Kind)
}

func (a SetRegistryValue) Apply(rc *iaso_io.RuntimeContext) (string, error) {
	return "", a.Store.Set(rc, a.Path, a.Name, a.Value)
}

// DeleteRegistryValue removes a value, or the whole key when Name is empty.
type DeleteRegistryValue struct {
	Store registry.Store
	Path  string
	Name  string
}

func (a DeleteRegistryValue) Kind() string { return KindRegistryDelete }

func (a DeleteRegistryValue) Describe() string {
	if a.Name == "" {
		return fmt.Sprintf("delete registry key %s", a.Path)
	}
	return fmt.Sprintf("delete registry value %s:%s", a.Path, a.Name)
}

func (a DeleteRegistryValue) Apply(rc *iaso_io.RuntimeContext) (string, error) {
	if a.Name == "" {
		return "", a.Store.DeleteKey(rc, a.Path)
	}
	return "", a.Store.Delete(rc, a.Path, a.Name)
}

// EnsureService starts and/or enables a unit, then polls until active.
type EnsureService struct {
	Unit    string
	Enable  bool
	Start   bool
	Timeout time.Duration
}

func (a EnsureService) Kind() string { return KindEnsureService }

func (a EnsureService) Describe() string {
	return fmt.Sprintf("ensure service %q (start=%t enable=%t)", a.Unit, a.Start, a.Enable)
}

func (a EnsureService) Apply(rc *iaso_io.RuntimeContext) (string, error) {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultServiceTimeout
	}

	if a.Enable {
		if err := systemd.SetStartupType(rc.Ctx, a.Unit, true); err != nil {
			return "", err
		}
	}
	if a.Start {
		if err := systemd.Start(rc.Ctx, a.Unit); err != nil {
			return "", err
		}
		return "", systemd.WaitActive(rc.Ctx, a.Unit, timeout)
	}
	return "", nil
}

// RunInstaller invokes an external installer or uninstaller with fixed
// arguments. Wait blocks until exit; a positive Timeout bounds that wait,
// after which the sequence proceeds with the outcome recorded indeterminate.
// Wait false launches detached for long-running scans.
type RunInstaller struct {
	Path    string
	Args    []string
	Wait    bool
	Timeout time.Duration
}

func (a RunInstaller) Kind() string { return KindRunInstaller }

func (a RunInstaller) Describe() string {
	mode := "wait for exit"
	if !a.Wait {
		mode = "launch without waiting"
	}
	return fmt.Sprintf("run installer %q %v (%s)", a.Path, a.Args, mode)
}

func (a RunInstaller) Apply(rc *iaso_io.RuntimeContext) (string, error) {
	if !a.Wait {
		if _, err := installer.Launch(rc, a.Path, a.Args); err != nil {
			return "", err
		}
		return fmt.Sprintf("launched %q detached, outcome indeterminate", a.Path), nil
	}

	res, err := installer.RunAndWait(rc, a.Path, a.Args, a.Timeout)
	if err != nil {
		return "", err
	}
	if res.Indeterminate {
		return fmt.Sprintf("installer %q still running after %s, proceeding with outcome unknown", a.Path, a.Timeout), nil
	}
	return fmt.Sprintf("installer %q exited %d", a.Path, res.ExitCode), nil
}
