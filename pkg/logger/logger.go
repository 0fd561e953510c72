/* pkg/logger/logger.go */

// Package logger wires the session log: a complete JSON record appended to a
// timestamp-suffixed file, mirrored to the console through a separately
// levelled core. Silent mode raises only the console threshold; the file log
// stays complete. Initialization never fails the run - if no log path is
// writable we degrade to console-only.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log *zap.Logger

	// consoleLevel gates the console core only. The file core is fixed at
	// Debug so the on-disk record is always complete.
	consoleLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
)

// InitializeWithFallback builds the Tee logger (file + console), falling back
// to console-only when no candidate log path is writable.
func InitializeWithFallback() {
	path, err := FindWritableLogPath()
	if err != nil {
		NewFallbackLogger().Warn("No writable log path found, logging to console only", zap.Error(err))
		log = NewFallbackLogger()
		zap.ReplaceGlobals(log)
		return
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		log = NewFallbackLogger()
		zap.ReplaceGlobals(log)
		log.Warn("Could not open session log file, falling back to console", zap.Error(err))
		return
	}

	jsonCfg := zap.NewProductionEncoderConfig()
	jsonCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	jsonCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(DefaultConsoleEncoderConfig()), zapcore.Lock(os.Stderr), consoleLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(jsonCfg), zapcore.AddSync(file), zap.DebugLevel),
	)

	log = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	zap.ReplaceGlobals(log)
	log.Info("Session log initialized", zap.String("log_path", path))
}

// SetSilent reduces console verbosity to warnings and above. The file log is
// unaffected.
func SetSilent(silent bool) {
	if silent {
		consoleLevel.SetLevel(zap.WarnLevel)
	} else {
		consoleLevel.SetLevel(zap.InfoLevel)
	}
}

// L returns the global logger, initializing a fallback if needed.
func L() *zap.Logger {
	if log == nil {
		log = NewFallbackLogger()
		zap.ReplaceGlobals(log)
	}
	return log
}

// Sync flushes buffered entries. Errors are reported, not propagated.
func Sync() error {
	if log != nil {
		return log.Sync()
	}
	return nil
}
