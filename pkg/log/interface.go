// Package log provides the structured logging interface used by estimators,
// dataset loaders and workflows.
//
// The interface is slog-compatible so that callers can log key/value pairs
// without depending on a backend. The production backend is zerolog (see
// NewZerolog); tests use TestLogger, which captures JSON lines in memory.
//
//	logger := log.NewZerolog(os.Stderr, log.LevelInfo).With(
//	    log.ModelNameKey, "KMeans",
//	)
//	logger.Info("fit finished",
//	    log.OperationKey, log.OperationFit,
//	    log.SamplesKey, 40000,
//	)
package log

import (
	"context"
)

// Logger is a structured logger. Fields are alternating key/value pairs.
// If the first field passed to Error is an error, implementations attach it
// together with its stack trace.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	// With returns a Logger that adds fields to every record.
	With(fields ...any) Logger

	// Enabled reports whether records at level would be emitted.
	Enabled(ctx context.Context, level Level) bool
}

// Level is a logging level with slog.Level values.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the upper-case level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
