// pkg/shared/sync.go

package shared

import "go.uber.org/zap"

// SafeSync flushes the global logger, swallowing the EINVAL/ENOTTY errors
// zap returns when stdout is a terminal. Logging must never abort a run.
func SafeSync() {
	_ = zap.L().Sync()
}
