// Package fileops provides the filesystem operations remediation steps are
// built from: logged copy/move/delete with explicit collision policies.
package fileops

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// ConflictPolicy decides what happens when a destination already exists.
type ConflictPolicy string

const (
	// ConflictNone fails the operation on collision.
	ConflictNone ConflictPolicy = "none"
	// ConflictDelete replaces the existing destination.
	ConflictDelete ConflictPolicy = "delete"
	// ConflictRename appends a numeric suffix so nothing is overwritten.
	// This is the backup policy.
	ConflictRename ConflictPolicy = "rename"
	// ConflictNewer keeps whichever file has the newer modification time.
	// This is the merge policy.
	ConflictNewer ConflictPolicy = "newer"
)

// FileSystemOperations provides filesystem operations with structured logging.
type FileSystemOperations struct {
	logger *zap.Logger
}

// NewFileSystemOperations creates a new filesystem operations implementation.
func NewFileSystemOperations(logger *zap.Logger) *FileSystemOperations {
	return &FileSystemOperations{
		logger: logger.Named("filesystem"),
	}
}

// CopyFile copies a single file, honoring the conflict policy. Returns the
// path actually written (which differs from dst under ConflictRename).
func (f *FileSystemOperations) CopyFile(src, dst string, policy ConflictPolicy) (string, error) {
	f.logger.Debug("Copying file",
		zap.String("src", src),
		zap.String("dst", dst),
		zap.String("policy", string(policy)))

	sourceInfo, err := os.Stat(src)
	if err != nil {
		return "", cerr.Wrapf(err, "failed to stat source file %s", src)
	}

	target, proceed, err := resolveConflict(src, dst, policy, sourceInfo)
	if err != nil {
		return "", err
	}
	if !proceed {
		f.logger.Debug("Destination is newer, keeping it",
			zap.String("dst", dst))
		return dst, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", cerr.Wrapf(err, "failed to create destination directory for %s", target)
	}

	sourceFile, err := os.Open(src)
	if err != nil {
		return "", cerr.Wrapf(err, "failed to open source file %s", src)
	}
	defer func() {
		if err := sourceFile.Close(); err != nil {
			f.logger.Warn("Failed to close source file", zap.Error(err))
		}
	}()

	destFile, err := os.OpenFile(target, os.O_RDWR|os.O_CREATE|os.O_TRUNC, sourceInfo.Mode().Perm())
	if err != nil {
		return "", cerr.Wrapf(err, "failed to create destination file %s", target)
	}
	defer func() {
		if err := destFile.Close(); err != nil {
			f.logger.Warn("Failed to close destination file", zap.Error(err))
		}
	}()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return "", cerr.Wrapf(err, "failed to copy %s to %s", src, target)
	}

	f.logger.Debug("File copied",
		zap.String("src", src),
		zap.String("dst", target))
	return target, nil
}

// CopyTree recursively copies a directory tree. Returns total bytes copied.
func (f *FileSystemOperations) CopyTree(src, dstRoot string, policy ConflictPolicy) (int64, error) {
	var copied int64

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dstRoot, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		written, err := f.CopyFile(path, target, policy)
		if err != nil {
			return err
		}
		if info, err := os.Stat(written); err == nil {
			copied += info.Size()
		}
		return nil
	})
	if err != nil {
		return copied, cerr.Wrapf(err, "failed to copy tree %s", src)
	}

	f.logger.Info("Tree copied",
		zap.String("src", src),
		zap.String("dst", dstRoot),
		zap.Int64("bytes", copied))
	return copied, nil
}

// MovePath moves a file or directory, falling back to copy+delete across
// filesystems. Collisions follow the policy.
func (f *FileSystemOperations) MovePath(src, dst string, policy ConflictPolicy) error {
	f.logger.Debug("Moving path",
		zap.String("src", src),
		zap.String("dst", dst))

	info, err := os.Stat(src)
	if err != nil {
		return cerr.Wrapf(err, "failed to stat %s", src)
	}

	if !info.IsDir() {
		target, proceed, err := resolveConflict(src, dst, policy, info)
		if err != nil {
			return err
		}
		if !proceed {
			// Destination is newer; merge policy keeps it and drops the source.
			return os.Remove(src)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return cerr.Wrapf(err, "failed to create destination directory for %s", target)
		}
		if err := os.Rename(src, target); err == nil {
			return nil
		}
		// Cross-device rename: copy then delete.
		if _, err := f.CopyFile(src, target, ConflictNone); err != nil {
			return err
		}
		return os.Remove(src)
	}

	if _, err := f.CopyTree(src, dst, policy); err != nil {
		return err
	}
	return os.RemoveAll(src)
}

// Delete removes a file or directory tree. Missing paths are a no-op so that
// re-runs stay idempotent.
func (f *FileSystemOperations) Delete(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f.logger.Debug("Path already absent", zap.String("path", path))
		return nil
	}
	if err := os.RemoveAll(path); err != nil {
		return cerr.Wrapf(err, "failed to delete %s", path)
	}
	f.logger.Info("Path deleted", zap.String("path", path))
	return nil
}

// DirSize returns the total byte size of all regular files under path. A
// plain file returns its own size.
func DirSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, cerr.Wrapf(err, "failed to stat %s", path)
	}
	if !info.IsDir() {
		return info.Size(), nil
	}

	var total int64
	err = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, cerr.Wrapf(err, "failed to size %s", path)
	}
	return total, nil
}

// NextAvailableName returns path if free, otherwise the first
// name-N.ext (N >= 1) that does not exist yet.
func NextAvailableName(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s-%d%s", base, n, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// resolveConflict applies the policy: the returned target is where to write,
// proceed=false means the destination wins and no write should happen.
func resolveConflict(src, dst string, policy ConflictPolicy, sourceInfo os.FileInfo) (target string, proceed bool, err error) {
	dstInfo, statErr := os.Stat(dst)
	if os.IsNotExist(statErr) {
		return dst, true, nil
	}
	if statErr != nil {
		return "", false, cerr.Wrapf(statErr, "failed to stat destination %s", dst)
	}

	switch policy {
	case ConflictDelete:
		return dst, true, nil
	case ConflictRename:
		return NextAvailableName(dst), true, nil
	case ConflictNewer:
		if dstInfo.ModTime().After(sourceInfo.ModTime()) {
			return dst, false, nil
		}
		return dst, true, nil
	default:
		return "", false, cerr.Newf("destination %s already exists (src %s)", dst, src)
	}
}
