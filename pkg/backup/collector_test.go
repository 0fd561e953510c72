package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_err"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_io"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRC(t *testing.T) *iaso_io.RuntimeContext {
	t.Helper()
	return iaso_io.NewContext(context.Background(), "test")
}

func seedSource(t *testing.T, dir string) string {
	t.Helper()
	source := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(filepath.Join(source, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(source, "a.txt"), []byte("aaaa"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(source, "sub", "b.txt"), []byte("bb"), 0o644))
	return source
}

func TestCollectCopiesTree(t *testing.T) {
	t.Parallel()
	rc := testRC(t)
	dir := t.TempDir()
	source := seedSource(t, dir)
	destRoot := filepath.Join(dir, "backups")

	c := NewCollector()
	c.FreeSpace = func(string) (uint64, error) { return 1 << 40, nil }

	manifest, err := c.Collect(rc, source, destRoot)
	require.NoError(t, err)

	assert.NotEmpty(t, manifest.ID)
	assert.Equal(t, source, manifest.SourcePath)
	assert.True(t, strings.HasPrefix(filepath.Base(manifest.DestPath), "backup-"))
	assert.Equal(t, int64(6), manifest.ByteSize)

	got, err := os.ReadFile(filepath.Join(manifest.DestPath, "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "bb", string(got))
}

func TestCollectGatesOnFreeSpace(t *testing.T) {
	t.Parallel()
	rc := testRC(t)
	dir := t.TempDir()
	source := seedSource(t, dir)
	destRoot := filepath.Join(dir, "backups")

	// 6 bytes of payload need 7 free (10% headroom, rounded up); report one
	// byte short of that.
	c := NewCollector()
	c.FreeSpace = func(string) (uint64, error) { return 6, nil }

	_, err := c.Collect(rc, source, destRoot)
	require.Error(t, err)
	assert.Equal(t, 5, iaso_err.GetExitCode(err), "space gate is a resource error")

	// The copy must never have started.
	entries, readErr := os.ReadDir(destRoot)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestCollectHeadroomBoundary(t *testing.T) {
	t.Parallel()
	rc := testRC(t)
	dir := t.TempDir()
	source := seedSource(t, dir)

	// Exactly the rounded-up headroom passes the gate: ceil(6 * 1.1) = 7.
	c := NewCollector()
	c.FreeSpace = func(string) (uint64, error) { return 7, nil }

	_, err := c.Collect(rc, source, filepath.Join(dir, "backups"))
	assert.NoError(t, err)
}

func TestCollectMissingSource(t *testing.T) {
	t.Parallel()
	rc := testRC(t)
	dir := t.TempDir()

	c := NewCollector()
	c.FreeSpace = func(string) (uint64, error) { return 1 << 40, nil }

	_, err := c.Collect(rc, filepath.Join(dir, "ghost"), filepath.Join(dir, "backups"))
	assert.Error(t, err)
}
