// pkg/precheck/checkers.go

package precheck

import (
	"fmt"
	"os"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_io"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/process"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/registry"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/systemd"
	cerr "github.com/cockroachdb/errors"
)

// ProcessRunning is actionable while any instance of the named binary runs.
type ProcessRunning struct {
	Name string
}

func (c ProcessRunning) Describe() string {
	return fmt.Sprintf("process %q running", c.Name)
}

func (c ProcessRunning) Evaluate(rc *iaso_io.RuntimeContext) (Finding, error) {
	running, err := process.Running(rc, c.Name)
	if err != nil {
		return Finding{}, err
	}
	if !running {
		return Finding{NotPresent, fmt.Sprintf("process %q not running", c.Name)}, nil
	}
	return Finding{PresentAndActionable, fmt.Sprintf("process %q is running", c.Name)}, nil
}

// PathExists is actionable while the path exists on disk.
type PathExists struct {
	Path string
}

func (c PathExists) Describe() string {
	return fmt.Sprintf("path %q exists", c.Path)
}

func (c PathExists) Evaluate(rc *iaso_io.RuntimeContext) (Finding, error) {
	if _, err := os.Stat(c.Path); err != nil {
		if os.IsNotExist(err) {
			return Finding{NotPresent, fmt.Sprintf("path %q absent", c.Path)}, nil
		}
		return Finding{}, cerr.Wrapf(err, "stat %s", c.Path)
	}
	return Finding{PresentAndActionable, fmt.Sprintf("path %q present", c.Path)}, nil
}

// RegistryValue compares the stored value against the desired one. A nil
// Desired means the step wants the value gone, so presence is actionable.
type RegistryValue struct {
	Store   registry.Store
	Path    string
	Name    string
	Desired *registry.Value
}

func (c RegistryValue) Describe() string {
	return fmt.Sprintf("registry value %s:%s", c.Path, c.Name)
}

func (c RegistryValue) Evaluate(rc *iaso_io.RuntimeContext) (Finding, error) {
	// An empty name addresses the whole key (delete-key steps).
	if c.Name == "" {
		exists, err := c.Store.KeyExists(rc, c.Path)
		if err != nil {
			return Finding{}, err
		}
		if !exists {
			return Finding{NotPresent, fmt.Sprintf("key %s already absent", c.Path)}, nil
		}
		return Finding{PresentAndActionable, fmt.Sprintf("key %s present", c.Path)}, nil
	}

	current, err := c.Store.Get(rc, c.Path, c.Name)
	if err != nil {
		if cerr.Is(err, registry.ErrNotFound) {
			if c.Desired == nil {
				return Finding{NotPresent, fmt.Sprintf("value %s:%s already absent", c.Path, c.Name)}, nil
			}
			return Finding{PresentAndActionable, fmt.Sprintf("value %s:%s missing, will be set", c.Path, c.Name)}, nil
		}
		return Finding{}, err
	}

	if c.Desired != nil && current == *c.Desired {
		return Finding{PresentButSkip, fmt.Sprintf("value %s:%s already in desired state", c.Path, c.Name)}, nil
	}
	return Finding{PresentAndActionable, fmt.Sprintf("value %s:%s present, needs change", c.Path, c.Name)}, nil
}

// ServiceActive compares a unit's state against the desired activation and
// startup type.
type ServiceActive struct {
	Unit        string
	WantActive  bool
	WantEnabled bool
}

func (c ServiceActive) Describe() string {
	return fmt.Sprintf("service %q state", c.Unit)
}

func (c ServiceActive) Evaluate(rc *iaso_io.RuntimeContext) (Finding, error) {
	if !systemd.Exists(rc.Ctx, c.Unit) {
		return Finding{NotPresent, fmt.Sprintf("unit %q not installed", c.Unit)}, nil
	}

	status, err := systemd.Status(rc.Ctx, c.Unit)
	if err != nil {
		return Finding{}, err
	}
	if status.Active == c.WantActive && status.Enabled == c.WantEnabled {
		return Finding{PresentButSkip, fmt.Sprintf("unit %q already in desired state", c.Unit)}, nil
	}
	return Finding{PresentAndActionable,
		fmt.Sprintf("unit %q active=%t enabled=%t, desired active=%t enabled=%t",
			c.Unit, status.Active, status.Enabled, c.WantActive, c.WantEnabled)}, nil
}

// Always marks a step unconditional, e.g. installer invocations whose own
// tooling decides whether work is needed.
type Always struct{}

func (Always) Describe() string { return "always" }

func (Always) Evaluate(*iaso_io.RuntimeContext) (Finding, error) {
	return Finding{PresentAndActionable, "unconditional step"}, nil
}
