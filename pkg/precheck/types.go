// pkg/precheck/types.go

// Package precheck answers whether a remediation step is still needed. Each
// capability kind is a typed checker; the tri-state finding is what makes
// re-running a whole remediation idempotent.
package precheck

import "github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_io"

// Status is the tri-state outcome of a precondition evaluation.
type Status int

const (
	// NotPresent - the target does not exist, nothing to do.
	NotPresent Status = iota
	// PresentAndActionable - the target exists and needs the step's action.
	PresentAndActionable
	// PresentButSkip - the target exists and is already in the desired state.
	PresentButSkip
)

func (s Status) String() string {
	switch s {
	case NotPresent:
		return "not-present"
	case PresentAndActionable:
		return "actionable"
	case PresentButSkip:
		return "already-desired"
	default:
		return "unknown"
	}
}

// ActionNeeded reports whether a step guarded by this status should run.
func (s Status) ActionNeeded() bool {
	return s == PresentAndActionable
}

// Finding is a status plus the human detail that goes in the log.
type Finding struct {
	Status Status
	Detail string
}

// Checker evaluates one precondition against the live system.
type Checker interface {
	Evaluate(rc *iaso_io.RuntimeContext) (Finding, error)
	Describe() string
}
