package fileops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNextAvailableName(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	free := filepath.Join(dir, "report.txt")
	assert.Equal(t, free, NextAvailableName(free))

	writeFile(t, free, "x")
	assert.Equal(t, filepath.Join(dir, "report-1.txt"), NextAvailableName(free))

	writeFile(t, filepath.Join(dir, "report-1.txt"), "x")
	assert.Equal(t, filepath.Join(dir, "report-2.txt"), NextAvailableName(free))
}

func TestCopyFileConflictPolicies(t *testing.T) {
	t.Parallel()
	ops := NewFileSystemOperations(zap.NewNop())

	t.Run("rename appends numeric suffix", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "src.cfg")
		dst := filepath.Join(dir, "dst.cfg")
		writeFile(t, src, "new")
		writeFile(t, dst, "old")

		target, err := ops.CopyFile(src, dst, ConflictRename)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "dst-1.cfg"), target)

		kept, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "old", string(kept))

		copied, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.Equal(t, "new", string(copied))
	})

	t.Run("newer keeps a fresher destination", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "src.cfg")
		dst := filepath.Join(dir, "dst.cfg")
		writeFile(t, src, "stale")
		writeFile(t, dst, "fresh")

		past := time.Now().Add(-time.Hour)
		require.NoError(t, os.Chtimes(src, past, past))

		target, err := ops.CopyFile(src, dst, ConflictNewer)
		require.NoError(t, err)
		assert.Equal(t, dst, target)

		kept, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "fresh", string(kept))
	})

	t.Run("newer overwrites a staler destination", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "src.cfg")
		dst := filepath.Join(dir, "dst.cfg")
		writeFile(t, src, "fresh")
		writeFile(t, dst, "stale")

		past := time.Now().Add(-time.Hour)
		require.NoError(t, os.Chtimes(dst, past, past))

		target, err := ops.CopyFile(src, dst, ConflictNewer)
		require.NoError(t, err)
		assert.Equal(t, dst, target)

		got, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "fresh", string(got))
	})

	t.Run("delete replaces the destination", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "src.cfg")
		dst := filepath.Join(dir, "dst.cfg")
		writeFile(t, src, "new")
		writeFile(t, dst, "old")

		target, err := ops.CopyFile(src, dst, ConflictDelete)
		require.NoError(t, err)
		assert.Equal(t, dst, target)

		got, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "new", string(got))
	})

	t.Run("none fails on collision", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "src.cfg")
		dst := filepath.Join(dir, "dst.cfg")
		writeFile(t, src, "new")
		writeFile(t, dst, "old")

		_, err := ops.CopyFile(src, dst, ConflictNone)
		assert.Error(t, err)
	})
}

func TestCopyTree(t *testing.T) {
	t.Parallel()
	ops := NewFileSystemOperations(zap.NewNop())
	dir := t.TempDir()

	src := filepath.Join(dir, "src")
	writeFile(t, filepath.Join(src, "a.txt"), "aaaa")
	writeFile(t, filepath.Join(src, "sub", "b.txt"), "bb")

	dst := filepath.Join(dir, "dst")
	copied, err := ops.CopyTree(src, dst, ConflictRename)
	require.NoError(t, err)
	assert.Equal(t, int64(6), copied)

	got, err := os.ReadFile(filepath.Join(dst, "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "bb", string(got))
}

func TestMovePath(t *testing.T) {
	t.Parallel()
	ops := NewFileSystemOperations(zap.NewNop())
	dir := t.TempDir()

	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "moved", "dst.txt")
	writeFile(t, src, "payload")

	require.NoError(t, ops.MovePath(src, dst, ConflictNone))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err), "source should be gone after move")

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestDeleteMissingPathIsNoOp(t *testing.T) {
	t.Parallel()
	ops := NewFileSystemOperations(zap.NewNop())

	err := ops.Delete(filepath.Join(t.TempDir(), "never-existed"))
	assert.NoError(t, err)
}

func TestDirSize(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a"), "12345")
	writeFile(t, filepath.Join(dir, "nested", "b"), "123")

	size, err := DirSize(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(8), size)

	single, err := DirSize(filepath.Join(dir, "a"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), single)
}
