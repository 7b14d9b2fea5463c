// Package logger wraps the process-wide zap logger.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. It is nil until Init succeeds.
var Log *zap.Logger

// Init builds Log. With a log file it writes production JSON to the file and
// stdout; otherwise it uses the development console encoder.
func Init(level string, logFile string) error {
	var config zap.Config

	if logFile != "" {
		config = zap.NewProductionConfig()
		config.OutputPaths = []string{logFile, "stdout"}
	} else {
		config = zap.NewDevelopmentConfig()
	}

	// Set log level
	switch level {
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "info":
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	var err error
	Log, err = config.Build()
	if err != nil {
		return err
	}

	return nil
}

// Sync flushes buffered log entries.
func Sync() error {
	if Log != nil {
		return Log.Sync()
	}
	return nil
}

// L returns the global logger, or a no-op logger before Init has run.
func L() *zap.Logger {
	if Log == nil {
		return zap.NewNop()
	}
	return Log
}

// Named returns a child of the global logger tagged with a component name.
func Named(component string) *zap.Logger {
	return L().Named(component)
}
