package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRC(t *testing.T) *iaso_io.RuntimeContext {
	t.Helper()
	return iaso_io.NewContext(context.Background(), "test")
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()
	rc := testRC(t)
	store := NewFileStore(t.TempDir())

	want := Value{Kind: KindBool, Data: "true"}
	require.NoError(t, store.Set(rc, "apps/agent", "enabled", want))

	got, err := store.Get(rc, "apps/agent", "enabled")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Overwrite in place.
	require.NoError(t, store.Set(rc, "apps/agent", "enabled", Value{Kind: KindBool, Data: "false"}))
	got, err = store.Get(rc, "apps/agent", "enabled")
	require.NoError(t, err)
	assert.Equal(t, "false", got.Data)
}

func TestFileStoreGetMissing(t *testing.T) {
	t.Parallel()
	rc := testRC(t)
	store := NewFileStore(t.TempDir())

	_, err := store.Get(rc, "apps/agent", "enabled")
	assert.True(t, cerr.Is(err, ErrNotFound))

	require.NoError(t, store.Set(rc, "apps/agent", "enabled", Value{Kind: KindString, Data: "x"}))
	_, err = store.Get(rc, "apps/agent", "other")
	assert.True(t, cerr.Is(err, ErrNotFound))
}

func TestFileStoreDeleteIsIdempotent(t *testing.T) {
	t.Parallel()
	rc := testRC(t)
	store := NewFileStore(t.TempDir())

	// Deleting what never existed is not an error.
	assert.NoError(t, store.Delete(rc, "apps/agent", "enabled"))
	assert.NoError(t, store.DeleteKey(rc, "apps/agent"))

	require.NoError(t, store.Set(rc, "apps/agent", "enabled", Value{Kind: KindInt, Data: "1"}))
	require.NoError(t, store.Delete(rc, "apps/agent", "enabled"))
	require.NoError(t, store.Delete(rc, "apps/agent", "enabled"))

	_, err := store.Get(rc, "apps/agent", "enabled")
	assert.True(t, cerr.Is(err, ErrNotFound))
}

func TestFileStoreDeleteLastValueRemovesKey(t *testing.T) {
	t.Parallel()
	rc := testRC(t)
	store := NewFileStore(t.TempDir())

	require.NoError(t, store.Set(rc, "apps/agent", "enabled", Value{Kind: KindBool, Data: "true"}))
	require.NoError(t, store.Delete(rc, "apps/agent", "enabled"))

	exists, err := store.KeyExists(rc, "apps/agent")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileStoreKeyExists(t *testing.T) {
	t.Parallel()
	rc := testRC(t)
	store := NewFileStore(t.TempDir())

	exists, err := store.KeyExists(rc, "apps/agent")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Set(rc, "apps/agent", "version", Value{Kind: KindString, Data: "2.1"}))
	exists, err = store.KeyExists(rc, "apps/agent")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.DeleteKey(rc, "apps/agent"))
	exists, err = store.KeyExists(rc, "apps/agent")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	t.Parallel()
	rc := testRC(t)
	root := t.TempDir()
	store := NewFileStore(filepath.Join(root, "registry"))

	for _, path := range []string{"..", "../outside", "a/../../outside"} {
		err := store.Set(rc, path, "x", Value{Kind: KindString, Data: "x"})
		assert.Error(t, err, "path %q should be rejected", path)
	}

	// Nothing escaped the registry root.
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(entries), 1)
}
