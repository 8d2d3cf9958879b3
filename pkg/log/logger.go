package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scigo/workflows/pkg/errors"
)

// ParseLevel converts a level name ("debug", "info", "warn", "error") to a
// Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.NewValidationError("log_level", "unknown level", s)
	}
}

func (l Level) zerolog() zerolog.Level {
	switch {
	case l <= LevelDebug:
		return zerolog.DebugLevel
	case l <= LevelInfo:
		return zerolog.InfoLevel
	case l <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

type zerologLogger struct {
	zl zerolog.Logger
}

// NewZerolog returns a Logger writing JSON records to w.
func NewZerolog(w io.Writer, level Level) Logger {
	return FromZerolog(zerolog.New(w).Level(level.zerolog()).With().Timestamp().Logger())
}

// FromZerolog wraps an existing zerolog logger.
func FromZerolog(zl zerolog.Logger) Logger {
	return &zerologLogger{zl: zl}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &zerologLogger{zl: zerolog.Nop()}
}

// SetupLogger configures the process-wide console logger on stderr, sets the
// zerolog global level and routes library warnings (convergence, undefined
// metrics) through it.
func SetupLogger(levelName string) (Logger, error) {
	level, err := ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(level.zerolog())
	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	errors.SetZerologWarnFunc(WarnFunc(zl))
	return FromZerolog(zl), nil
}

// WarnFunc returns a warning sink for errors.SetZerologWarnFunc that logs
// each warning at warn level with its structured fields.
func WarnFunc(zl zerolog.Logger) func(error) {
	return func(w error) {
		ev := zl.Warn()
		var obj zerolog.LogObjectMarshaler
		if errors.As(w, &obj) {
			ev = ev.EmbedObject(obj)
		}
		ev.Msg(w.Error())
	}
}

func (l *zerologLogger) Debug(msg string, fields ...any) {
	appendFields(l.zl.Debug(), fields).Msg(msg)
}

func (l *zerologLogger) Info(msg string, fields ...any) {
	appendFields(l.zl.Info(), fields).Msg(msg)
}

func (l *zerologLogger) Warn(msg string, fields ...any) {
	appendFields(l.zl.Warn(), fields).Msg(msg)
}

func (l *zerologLogger) Error(msg string, fields ...any) {
	appendFields(l.zl.Error(), fields).Msg(msg)
}

func (l *zerologLogger) With(fields ...any) Logger {
	return &zerologLogger{zl: l.zl.With().Fields(fields).Logger()}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	zlevel := level.zerolog()
	return zlevel >= l.zl.GetLevel() && zlevel >= zerolog.GlobalLevel()
}

// appendFields adds key/value pairs to ev. A leading error is attached as
// the "error" field along with its stack trace.
func appendFields(ev *zerolog.Event, fields []any) *zerolog.Event {
	if ev == nil {
		return ev
	}
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			ev = ev.Err(err)
			if st := errors.StackTrace(err); st != "" {
				ev = ev.Str(StacktraceKey, st)
			}
			fields = fields[1:]
		}
	}
	for i := 0; i < len(fields); i += 2 {
		if i+1 == len(fields) {
			ev = ev.Interface("!BADKEY", fields[i])
			break
		}
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			ev = ev.AnErr(key, v)
		case zerolog.LogObjectMarshaler:
			ev = ev.Object(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	return ev
}
