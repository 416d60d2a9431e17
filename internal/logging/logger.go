// Package logging wraps zerolog with subsystem-scoped child loggers.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Console styles accepted by Options.ConsoleStyle.
const (
	StylePretty  = "pretty"
	StyleCompact = "compact"
	StyleJSON    = "json"
)

// Logger wraps zerolog to provide subsystem-scoped child loggers.
type Logger struct {
	zl   zerolog.Logger
	file *os.File
}

// Options selects the console format, level and optional log file.
type Options struct {
	Level        string
	ConsoleStyle string
	File         string
	Console      io.Writer // defaults to stderr
}

// New creates a root logger writing to the given writer at the specified level.
// If w is nil, defaults to pretty console output on stderr.
func New(w io.Writer, level string) *Logger {
	if w == nil {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(w).With().Timestamp().Logger()
	zl = zl.Level(parseLevel(level))
	return &Logger{zl: zl}
}

// NewWithOptions builds a logger from configuration. When a file is set,
// JSON lines are appended to it in addition to the console output.
func NewWithOptions(opts Options) (*Logger, error) {
	out := opts.Console
	if out == nil {
		out = os.Stderr
	}

	var console io.Writer
	switch opts.ConsoleStyle {
	case StyleJSON:
		console = out
	case StyleCompact:
		console = zerolog.ConsoleWriter{Out: out, PartsExclude: []string{zerolog.TimestampFieldName}}
	default:
		console = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	if opts.File == "" {
		return New(console, opts.Level), nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	l := New(zerolog.MultiLevelWriter(console, f), opts.Level)
	l.file = f
	return l, nil
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Sub returns a child logger tagged with a subsystem name.
func (l *Logger) Sub(subsystem string) *Logger {
	return &Logger{zl: l.zl.With().Str("subsystem", subsystem).Logger()}
}

// Trace logs at trace level.
func (l *Logger) Trace() *zerolog.Event { return l.zl.Trace() }

// Debug logs at debug level.
func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }

// Info logs at info level.
func (l *Logger) Info() *zerolog.Event { return l.zl.Info() }

// Warn logs at warn level.
func (l *Logger) Warn() *zerolog.Event { return l.zl.Warn() }

// Error logs at error level.
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }

// Fatal logs at fatal level and exits.
func (l *Logger) Fatal() *zerolog.Event { return l.zl.Fatal() }

// Zerolog returns the underlying zerolog.Logger for advanced use.
func (l *Logger) Zerolog() zerolog.Logger { return l.zl }

func parseLevel(s string) zerolog.Level {
	switch s {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "silent":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
