// logging.go - structured logging interface for the dfir scheduler.
//
// Design Decision: a narrow Logger interface plus a single zerolog-backed
// implementation is appropriate here because:
//   - logging is an infrastructure cross-cutting concern, not part of the
//     dataflow semantics
//   - every Graph/Driver pair shares the same logging needs (dropped
//     external pushes, subgraph failures and panics)
//   - consumers already using logiface/zerolog elsewhere get one shared
//     sink instead of a bespoke format
package dfir

import (
	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

// LogLevel represents the severity of a log message.
type LogLevel int32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
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

// Logger is the structured logging interface a Graph reports diagnostics
// through (dropped external pushes, subgraph failures and panics,
// invocations deferred by ErrWouldBlock). A
// single Logf method is enough: structured-field population is
// logiface.Builder's job, reached through NewZerologLogger.
type Logger interface {
	Logf(level LogLevel, format string, args ...any)
	IsEnabled(level LogLevel) bool
}

// zerologLogger adapts Logger onto logiface's generic event builder with
// github.com/joeycumines/izerolog as its github.com/rs/zerolog backend,
// rather than hand-rolling a terminal/JSON formatter.
type zerologLogger struct {
	l *logiface.Logger[*izerolog.Event]
}

// NewZerologLogger builds a Logger backed by the given zerolog.Logger.
func NewZerologLogger(z zerolog.Logger) Logger {
	return &zerologLogger{l: logiface.New(izerolog.WithZerolog(z))}
}

// Logf formats and emits a message at the given level. Disabled levels are
// skipped without formatting, per logiface's builder-returns-nil-when-
// disabled convention.
func (z *zerologLogger) Logf(level LogLevel, format string, args ...any) {
	b := z.builder(level)
	if b == nil {
		return
	}
	b.Logf(format, args...)
}

func (z *zerologLogger) IsEnabled(level LogLevel) bool {
	return z.builder(level) != nil
}

func (z *zerologLogger) builder(level LogLevel) *logiface.Builder[*izerolog.Event] {
	switch level {
	case LevelDebug:
		return z.l.Debug()
	case LevelInfo:
		return z.l.Info()
	case LevelWarn:
		return z.l.Warning()
	case LevelError:
		return z.l.Err()
	default:
		return z.l.Info()
	}
}

// noOpLogger discards everything; it is the default when no Logger option
// is supplied (options.go WithLogger).
type noOpLogger struct{}

func (noOpLogger) Logf(LogLevel, string, ...any) {}
func (noOpLogger) IsEnabled(LogLevel) bool        { return false }
