package iaso_err

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, 0},
		{"expected user error", NewExpectedError(errors.New("nothing to do")), 0},
		{"unclassified error", errors.New("boom"), 1},
		{"critical abort", NewCriticalAbortError("stop-agent", errors.New("boom")), 1},
		{"validation", NewValidationError("bad plan"), 2},
		{"internal", NewInternalError("bug", errors.New("nil deref")), 3},
		{"privilege", NewPrivilegeError("plan cleanup"), 4},
		{"resources", NewResourceError("no space", nil), 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestGetExitCodeUnwrapsWrappedClassification(t *testing.T) {
	t.Parallel()

	wrapped := NewValidationError("bad plan")
	assert.Equal(t, 2, GetExitCode(wrapped))

	// Classification survives extra wrapping layers.
	outer := &UserError{cause: wrapped}
	assert.Equal(t, 2, GetExitCode(outer), "the classified category wins over the wrapper")
}

func TestClassifiedErrorMessage(t *testing.T) {
	t.Parallel()

	err := NewResourceError("insufficient space", errors.New("need 11, have 5"),
		"free up space", "or pass --backup-path")

	msg := err.Error()
	assert.Contains(t, msg, "insufficient space")
	assert.Contains(t, msg, "need 11, have 5")
	assert.Contains(t, msg, "1. free up space")
	assert.Contains(t, msg, "2. or pass --backup-path")
}

func TestIsExpectedUserError(t *testing.T) {
	t.Parallel()

	assert.False(t, IsExpectedUserError(errors.New("boom")))
	assert.False(t, IsExpectedUserError(nil))
	assert.True(t, IsExpectedUserError(NewExpectedError(errors.New("no such plan"))))
}
