package installer

import (
	"context"
	"testing"
	"time"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_io"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRC(t *testing.T) *iaso_io.RuntimeContext {
	t.Helper()
	return iaso_io.NewContext(context.Background(), "test")
}

func TestRunAndWaitBlocksUntilExit(t *testing.T) {
	t.Parallel()

	start := time.Now()
	res, err := RunAndWait(testRC(t), "sleep", []string{"0.3"}, 0)

	require.NoError(t, err)
	assert.True(t, res.Waited)
	assert.False(t, res.Indeterminate)
	assert.Equal(t, 0, res.ExitCode)
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond,
		"a zero timeout must wait for the program to exit")
}

func TestRunAndWaitCapturesExitCode(t *testing.T) {
	t.Parallel()

	res, err := RunAndWait(testRC(t), "sh", []string{"-c", "exit 3"}, 0)

	require.Error(t, err)
	assert.True(t, res.Waited)
	assert.Equal(t, 3, res.ExitCode)
}

func TestRunAndWaitBoundedWaitIsIndeterminate(t *testing.T) {
	t.Parallel()

	start := time.Now()
	res, err := RunAndWait(testRC(t), "sleep", []string{"30"}, 200*time.Millisecond)

	require.NoError(t, err, "an expired bounded wait is not a failure")
	assert.True(t, res.Indeterminate, "the caller must see that the outcome is unknown")
	assert.Less(t, time.Since(start), 5*time.Second, "the bounded wait must not block to completion")
}

func TestLaunchReturnsImmediately(t *testing.T) {
	t.Parallel()

	start := time.Now()
	res, err := Launch(testRC(t), "sleep", []string{"1"})

	require.NoError(t, err)
	assert.True(t, res.Indeterminate)
	assert.Less(t, time.Since(start), time.Second)
}
