package precheck_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_io"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/precheck"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRC(t *testing.T) *iaso_io.RuntimeContext {
	t.Helper()
	return iaso_io.NewContext(context.Background(), "test")
}

func TestPathExists(t *testing.T) {
	t.Parallel()
	rc := testRC(t)
	dir := t.TempDir()

	t.Run("absent path is not present", func(t *testing.T) {
		finding, err := precheck.PathExists{Path: filepath.Join(dir, "ghost")}.Evaluate(rc)
		require.NoError(t, err)
		assert.Equal(t, precheck.NotPresent, finding.Status)
		assert.False(t, finding.Status.ActionNeeded())
	})

	t.Run("existing path is actionable", func(t *testing.T) {
		target := filepath.Join(dir, "present")
		require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

		finding, err := precheck.PathExists{Path: target}.Evaluate(rc)
		require.NoError(t, err)
		assert.Equal(t, precheck.PresentAndActionable, finding.Status)
		assert.True(t, finding.Status.ActionNeeded())
	})
}

func TestRegistryValue(t *testing.T) {
	t.Parallel()
	rc := testRC(t)
	store := registry.NewFileStore(t.TempDir())

	desired := registry.Value{Kind: registry.KindString, Data: "disabled"}

	t.Run("missing value with desired state is actionable", func(t *testing.T) {
		finding, err := precheck.RegistryValue{
			Store: store, Path: "apps/agent", Name: "mode", Desired: &desired,
		}.Evaluate(rc)
		require.NoError(t, err)
		assert.Equal(t, precheck.PresentAndActionable, finding.Status)
	})

	t.Run("missing value with nil desired is not present", func(t *testing.T) {
		finding, err := precheck.RegistryValue{
			Store: store, Path: "apps/agent", Name: "mode",
		}.Evaluate(rc)
		require.NoError(t, err)
		assert.Equal(t, precheck.NotPresent, finding.Status)
	})

	t.Run("matching value is already desired", func(t *testing.T) {
		require.NoError(t, store.Set(rc, "apps/agent", "mode", desired))

		finding, err := precheck.RegistryValue{
			Store: store, Path: "apps/agent", Name: "mode", Desired: &desired,
		}.Evaluate(rc)
		require.NoError(t, err)
		assert.Equal(t, precheck.PresentButSkip, finding.Status)
		assert.False(t, finding.Status.ActionNeeded())
	})

	t.Run("mismatched value is actionable", func(t *testing.T) {
		other := registry.Value{Kind: registry.KindString, Data: "enabled"}
		require.NoError(t, store.Set(rc, "apps/agent", "mode", other))

		finding, err := precheck.RegistryValue{
			Store: store, Path: "apps/agent", Name: "mode", Desired: &desired,
		}.Evaluate(rc)
		require.NoError(t, err)
		assert.Equal(t, precheck.PresentAndActionable, finding.Status)
	})

	t.Run("empty name addresses the whole key", func(t *testing.T) {
		finding, err := precheck.RegistryValue{
			Store: store, Path: "apps/agent",
		}.Evaluate(rc)
		require.NoError(t, err)
		assert.Equal(t, precheck.PresentAndActionable, finding.Status)

		finding, err = precheck.RegistryValue{
			Store: store, Path: "apps/never-created",
		}.Evaluate(rc)
		require.NoError(t, err)
		assert.Equal(t, precheck.NotPresent, finding.Status)
	})
}

func TestAlways(t *testing.T) {
	t.Parallel()
	finding, err := precheck.Always{}.Evaluate(testRC(t))
	require.NoError(t, err)
	assert.True(t, finding.Status.ActionNeeded())
}

func TestStatusStrings(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "not-present", precheck.NotPresent.String())
	assert.Equal(t, "actionable", precheck.PresentAndActionable.String())
	assert.Equal(t, "already-desired", precheck.PresentButSkip.String())
}
