// pkg/plan/plan.go

// Package plan loads remediation plans from YAML and turns them into
// executable step sequences. A plan is configuration data: names, paths,
// units and product identifiers live here, never in code.
package plan

import (
	"os"
	"time"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/fileops"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_err"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/precheck"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/registry"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/runner"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/step"
	cerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Document is one parsed plan file.
type Document struct {
	Name         string      `yaml:"name" validate:"required"`
	Description  string      `yaml:"description"`
	RequiresRoot bool        `yaml:"requires_root"`
	Backup       *BackupSpec `yaml:"backup"`
	Steps        []StepSpec  `yaml:"steps" validate:"required,min=1,dive"`
}

// BackupSpec asks for a pre-remediation backup of a source tree.
type BackupSpec struct {
	Source string `yaml:"source" validate:"required"`
	Dest   string `yaml:"dest"`
}

// StepSpec is one declared step. Which fields matter depends on Kind; the
// per-kind requirements are enforced in validate().
type StepSpec struct {
	Name        string `yaml:"name" validate:"required"`
	Kind        string `yaml:"kind" validate:"required,oneof=stop-process copy-path move-path delete-path registry-set registry-delete ensure-service run-installer"`
	Critical    bool   `yaml:"critical"`
	Destructive bool   `yaml:"destructive"`
	Timeout     string `yaml:"timeout"` // duration string, e.g. "30s"

	// stop-process
	Process string `yaml:"process"`

	// copy-path / move-path / delete-path
	Source string `yaml:"source"`
	Dest   string `yaml:"dest"`
	Path   string `yaml:"path"`
	Policy string `yaml:"policy" validate:"omitempty,oneof=none delete rename newer"`

	// registry-set / registry-delete
	RegPath   string `yaml:"reg_path"`
	ValueName string `yaml:"value_name"`
	ValueKind string `yaml:"value_kind" validate:"omitempty,oneof=string int bool"`
	ValueData string `yaml:"value_data"`

	// ensure-service
	Unit   string `yaml:"unit"`
	Enable bool   `yaml:"enable"`
	Start  bool   `yaml:"start"`

	// run-installer
	Installer string   `yaml:"installer"`
	Args      []string `yaml:"args"`
	Wait      bool     `yaml:"wait"`
}

// Load parses and validates a plan file, reporting every problem at once.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerr.Wrapf(err, "failed to read plan %s", path)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, iaso_err.NewValidationError(
			"plan file is not valid YAML: "+err.Error(),
			"check indentation and quoting in "+path)
	}

	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) validate() error {
	var merr *multierror.Error

	if err := validator.New().Struct(d); err != nil {
		merr = multierror.Append(merr, err)
	}

	for i := range d.Steps {
		s := &d.Steps[i]
		if err := s.validateKindFields(); err != nil {
			merr = multierror.Append(merr, cerr.Wrapf(err, "step %q", s.Name))
		}
		if s.Timeout != "" {
			if _, err := time.ParseDuration(s.Timeout); err != nil {
				merr = multierror.Append(merr, cerr.Wrapf(err, "step %q: bad timeout", s.Name))
			}
		}
	}

	if err := merr.ErrorOrNil(); err != nil {
		return iaso_err.NewValidationError(
			"plan validation failed: "+err.Error(),
			"fix the listed fields and re-run")
	}
	return nil
}

func (s *StepSpec) validateKindFields() error {
	switch s.Kind {
	case step.KindStopProcess:
		if s.Process == "" {
			return cerr.New("stop-process requires 'process'")
		}
	case step.KindCopyPath, step.KindMovePath:
		if s.Source == "" || s.Dest == "" {
			return cerr.Newf("%s requires 'source' and 'dest'", s.Kind)
		}
	case step.KindDeletePath:
		if s.Path == "" {
			return cerr.New("delete-path requires 'path'")
		}
	case step.KindRegistrySet:
		if s.RegPath == "" || s.ValueName == "" || s.ValueKind == "" {
			return cerr.New("registry-set requires 'reg_path', 'value_name' and 'value_kind'")
		}
	case step.KindRegistryDelete:
		if s.RegPath == "" {
			return cerr.New("registry-delete requires 'reg_path'")
		}
	case step.KindEnsureService:
		if s.Unit == "" {
			return cerr.New("ensure-service requires 'unit'")
		}
	case step.KindRunInstaller:
		if s.Installer == "" {
			return cerr.New("run-installer requires 'installer'")
		}
	}
	return nil
}

func (s *StepSpec) timeout() time.Duration {
	if s.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// Build turns the document into executable steps, applying the run
// configuration's conflict policy default and criticality overrides.
func (d *Document) Build(store registry.Store, cfg *RunConfig) ([]step.Step, *runner.BackupRequest, error) {
	steps := make([]step.Step, 0, len(d.Steps))

	for i := range d.Steps {
		spec := &d.Steps[i]

		built, err := spec.build(store, cfg)
		if err != nil {
			return nil, nil, err
		}
		if override, ok := cfg.CriticalOverrides[spec.Name]; ok {
			built.Critical = override
		}
		steps = append(steps, built)
	}

	var backupReq *runner.BackupRequest
	if d.Backup != nil && !cfg.NoBackup {
		backupReq = &runner.BackupRequest{
			Source:   d.Backup.Source,
			DestRoot: d.Backup.Dest,
		}
		if cfg.BackupPath != "" {
			backupReq.DestRoot = cfg.BackupPath
		}
	}

	return steps, backupReq, nil
}

func (s *StepSpec) build(store registry.Store, cfg *RunConfig) (step.Step, error) {
	built := step.Step{
		Name:        s.Name,
		Critical:    s.Critical,
		Destructive: s.Destructive,
	}

	policy := cfg.ConflictPolicy
	if s.Policy != "" {
		policy = fileops.ConflictPolicy(s.Policy)
	}

	switch s.Kind {
	case step.KindStopProcess:
		built.Check = precheck.ProcessRunning{Name: s.Process}
		built.Action = step.StopProcess{Name: s.Process, Timeout: s.timeout()}

	case step.KindCopyPath:
		built.Check = precheck.PathExists{Path: s.Source}
		built.Action = step.CopyPath{Source: s.Source, Dest: s.Dest, Policy: policy}

	case step.KindMovePath:
		built.Check = precheck.PathExists{Path: s.Source}
		built.Action = step.MovePath{Source: s.Source, Dest: s.Dest, Policy: policy}

	case step.KindDeletePath:
		built.Check = precheck.PathExists{Path: s.Path}
		built.Action = step.DeletePath{Path: s.Path}

	case step.KindRegistrySet:
		desired := registry.Value{Kind: registry.Kind(s.ValueKind), Data: s.ValueData}
		built.Check = precheck.RegistryValue{Store: store, Path: s.RegPath, Name: s.ValueName, Desired: &desired}
		built.Action = step.SetRegistryValue{Store: store, Path: s.RegPath, Name: s.ValueName, Value: desired}

	case step.KindRegistryDelete:
		built.Check = precheck.RegistryValue{Store: store, Path: s.RegPath, Name: s.ValueName}
		built.Action = step.DeleteRegistryValue{Store: store, Path: s.RegPath, Name: s.ValueName}

	case step.KindEnsureService:
		built.Check = precheck.ServiceActive{Unit: s.Unit, WantActive: s.Start, WantEnabled: s.Enable}
		built.Action = step.EnsureService{Unit: s.Unit, Enable: s.Enable, Start: s.Start, Timeout: s.timeout()}

	case step.KindRunInstaller:
		built.Check = precheck.Always{}
		built.Action = step.RunInstaller{Path: s.Installer, Args: s.Args, Wait: s.Wait, Timeout: s.timeout()}

	default:
		return step.Step{}, iaso_err.NewValidationError("unknown step kind: " + s.Kind)
	}

	return built, nil
}
