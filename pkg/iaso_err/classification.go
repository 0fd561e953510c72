// pkg/iaso_err/classification.go
//
// Error classification with exit codes for the remediation runner.
// Extends the UserError infrastructure in util.go.

package iaso_err

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCategory classifies errors for appropriate handling at the root command.
type ErrorCategory int

const (
	// CategoryAction - a step's underlying OS call failed (exit 1 only when critical)
	CategoryAction ErrorCategory = iota
	// CategoryCritical - a critical step failed and aborted the run (exit 1)
	CategoryCritical
	// CategoryValidation - plan/flag validation failures (exit 2)
	CategoryValidation
	// CategoryInternal - bugs in iaso itself (exit 3)
	CategoryInternal
	// CategoryPrivilege - administrative rights missing before any step ran (exit 4)
	CategoryPrivilege
	// CategoryResources - insufficient disk space or similar resource gates (exit 5)
	CategoryResources
)

// ClassifiedError wraps an error with category and remediation info.
type ClassifiedError struct {
	Category    ErrorCategory
	Message     string
	Cause       error
	Remediation []string
}

func (e *ClassifiedError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Cause != nil && e.Cause.Error() != e.Message {
		sb.WriteString(fmt.Sprintf("\n\nCause: %v", e.Cause))
	}

	if len(e.Remediation) > 0 {
		sb.WriteString("\n\nHow to fix:")
		for i, step := range e.Remediation {
			sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, step))
		}
	}
	return sb.String()
}

func (e *ClassifiedError) Unwrap() error { return e.Cause }

// ExitCode returns the appropriate exit code for this error category.
func (e *ClassifiedError) ExitCode() int {
	switch e.Category {
	case CategoryValidation:
		return 2
	case CategoryInternal:
		return 3
	case CategoryPrivilege:
		return 4
	case CategoryResources:
		return 5
	default:
		return 1
	}
}

// GetExitCode extracts an exit code from any error. Expected user errors and
// nil exit 0; unclassified errors default to 1.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.ExitCode()
	}

	if IsExpectedUserError(err) {
		return 0
	}
	return 1
}

// NewValidationError creates an error for plan or flag validation failures.
func NewValidationError(message string, remediation ...string) error {
	return &ClassifiedError{
		Category:    CategoryValidation,
		Message:     message,
		Remediation: remediation,
	}
}

// NewPrivilegeError signals that required administrative rights are missing.
// Surfaced once, before any step runs.
func NewPrivilegeError(operation string) error {
	return &ClassifiedError{
		Category: CategoryPrivilege,
		Message:  fmt.Sprintf("%s requires administrative rights", operation),
		Remediation: []string{
			"Re-run with sudo, or as root",
			"Plans that only inspect state can run unprivileged: iaso inspect <plan>",
		},
	}
}

// NewResourceError signals a resource-sufficiency gate failure, e.g. not
// enough free space at a backup destination.
func NewResourceError(message string, cause error, remediation ...string) error {
	return &ClassifiedError{
		Category:    CategoryResources,
		Message:     message,
		Cause:       cause,
		Remediation: remediation,
	}
}

// NewCriticalAbortError reports that a critical step failed and the sequence
// was aborted.
func NewCriticalAbortError(stepName string, cause error) error {
	return &ClassifiedError{
		Category: CategoryCritical,
		Message:  fmt.Sprintf("critical step %q failed, remediation aborted", stepName),
		Cause:    cause,
		Remediation: []string{
			"Review the session log for the captured diagnostic",
			"Re-run after addressing the failure; completed steps are skipped automatically",
		},
	}
}

// NewInternalError creates an error for iaso bugs.
func NewInternalError(message string, cause error) error {
	return &ClassifiedError{
		Category: CategoryInternal,
		Message:  message,
		Cause:    cause,
		Remediation: []string{
			"This is likely a bug in iaso",
			"Please report it with the session log attached",
		},
	}
}
