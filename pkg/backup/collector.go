// pkg/backup/collector.go

// Package backup implements the pre-remediation backup collector: size the
// source tree, gate on destination free space, then copy collision-safe into
// a timestamped destination. The source is never modified.
package backup

import (
	"os"
	"path/filepath"
	"time"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/fileops"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_err"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Manifest records a completed (or gated) backup.
type Manifest struct {
	ID         string
	SourcePath string
	DestPath   string
	ByteSize   int64
	FreeAtDest uint64
	StartedAt  time.Time
	FinishedAt time.Time
}

// Collector copies a source tree before destructive steps run. FreeSpace is
// injectable for tests; the default resolves the destination filesystem via
// statfs.
type Collector struct {
	FreeSpace func(path string) (uint64, error)
}

// NewCollector returns a collector using the real filesystem.
func NewCollector() *Collector {
	return &Collector{FreeSpace: statfsFree}
}

// Collect backs up source into a timestamped directory under destRoot.
// The destination must have at least 1.1x the source size free; otherwise no
// copy is started and an InsufficientResources error is returned.
func (c *Collector) Collect(rc *iaso_io.RuntimeContext, source, destRoot string) (*Manifest, error) {
	logger := otelzap.Ctx(rc.Ctx)

	// ASSESS - source size and destination capacity
	logger.Info("Assessing backup requirements",
		zap.String("source", source),
		zap.String("dest_root", destRoot))

	size, err := fileops.DirSize(source)
	if err != nil {
		return nil, cerr.Wrap(err, "failed to size backup source")
	}

	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return nil, cerr.Wrap(err, "failed to create backup destination root")
	}

	free, err := c.FreeSpace(destRoot)
	if err != nil {
		return nil, cerr.Wrap(err, "failed to resolve destination free space")
	}

	// Gate: 10% headroom over the source size, rounded up so the gate never
	// degrades toward 1.0x on small remainders. The copy is never started
	// when this fails.
	required := uint64(size) + (uint64(size)+9)/10
	if free < required {
		logger.Error("Insufficient space at backup destination",
			zap.Int64("source_bytes", size),
			zap.Uint64("required_bytes", required),
			zap.Uint64("free_bytes", free))
		return nil, iaso_err.NewResourceError(
			"insufficient space at backup destination",
			cerr.Newf("need %d bytes free (1.1x source), have %d", required, free),
			"Free up space at the destination, or pass --backup-path pointing at a larger volume",
			"Use --no-backup to skip the backup (destructive steps will be skipped too)",
		)
	}

	manifest := &Manifest{
		ID:         uuid.New().String(),
		SourcePath: source,
		DestPath:   filepath.Join(destRoot, "backup-"+time.Now().Format("20060102-150405")),
		ByteSize:   size,
		FreeAtDest: free,
		StartedAt:  time.Now(),
	}

	// INTERVENE - recursive copy, numeric suffixes on collisions
	logger.Info("Starting backup copy",
		zap.String("dest", manifest.DestPath),
		zap.Int64("bytes", size))

	copied, err := fileops.NewFileSystemOperations(rc.Log).CopyTree(source, manifest.DestPath, fileops.ConflictRename)
	if err != nil {
		return nil, cerr.Wrap(err, "backup copy failed")
	}
	manifest.ByteSize = copied
	manifest.FinishedAt = time.Now()

	// EVALUATE
	logger.Info("Backup complete",
		zap.String("backup_id", manifest.ID),
		zap.String("dest", manifest.DestPath),
		zap.Int64("bytes", manifest.ByteSize),
		zap.Duration("took", manifest.FinishedAt.Sub(manifest.StartedAt)))

	return manifest, nil
}

func statfsFree(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, cerr.Wrapf(err, "statfs %s", path)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
