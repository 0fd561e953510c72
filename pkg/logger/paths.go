/* pkg/logger/paths.go */

package logger

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/shared"
)

var (
	sessionOnce sync.Once
	sessionName string
)

// SessionLogName returns the timestamp-suffixed file name for this run.
// Computed once so every fallback path candidate refers to the same session.
func SessionLogName() string {
	sessionOnce.Do(func() {
		sessionName = shared.IasoID + "-" + time.Now().Format("20060102-150405") + ".log"
	})
	return sessionName
}

// PlatformLogPaths returns candidate session log paths in order of priority.
func PlatformLogPaths() []string {
	name := SessionLogName()
	switch runtime.GOOS {
	case "linux":
		return []string{
			filepath.Join(shared.IasoLogDir, name),     // best if writable (root)
			filepath.Join(xdgStateDir(), name),         // user-local fallback
			filepath.Join("/tmp", shared.IasoID, name), // ephemeral
		}
	case "darwin":
		return []string{
			filepath.Join(xdgStateDir(), name),
			filepath.Join("/tmp", shared.IasoID, name),
		}
	default:
		return []string{filepath.Join(".", name)}
	}
}

// FindWritableLogPath returns the first candidate whose directory can be
// created and whose file can be opened for append.
func FindWritableLogPath() (string, error) {
	var lastErr error
	for _, path := range PlatformLogPaths() {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			lastErr = err
			continue
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			lastErr = err
			continue
		}
		_ = f.Close()
		return path, nil
	}
	return "", lastErr
}

func xdgStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, shared.IasoID)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", shared.IasoID)
	}
	return filepath.Join(home, ".local", "state", shared.IasoID)
}
