// Package logging builds the phuslu loggers shared by the profiler modules.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"

	"PhaseProfiler/pkg/config"
)

// parseLevel converts a config level string to log.Level.
func parseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "trace":
		return log.TraceLevel
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// newWriter picks the entry writer for a format.
func newWriter(format string, w io.Writer) log.Writer {
	switch format {
	case "json":
		return &log.IOWriter{Writer: w}
	case "logfmt":
		return &log.ConsoleWriter{
			Writer:    w,
			Formatter: log.LogfmtFormatter{TimeField: "time"}.Formatter,
		}
	default:
		return &log.ConsoleWriter{
			ColorOutput:    isTerminal(w),
			EndWithMessage: true,
			Writer:         w,
		}
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && log.IsTerminal(f.Fd())
}

// New creates the root logger writing to w (stderr when nil).
func New(cfg config.LoggingConfig, w io.Writer) log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.Logger{
		Level:      parseLevel(cfg.Level),
		TimeFormat: "15:04:05.000",
		Writer:     newWriter(cfg.Format, w),
	}
}

// Module returns a copy of base tagged with a module field.
func Module(base log.Logger, name string) *log.Logger {
	l := base
	ctx := append([]byte(nil), base.Context...)
	l.Context = log.NewContext(ctx).Str("module", name).Value()
	return &l
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return &log.Logger{Level: log.PanicLevel + 1, Writer: &log.IOWriter{Writer: io.Discard}}
}

// Configure installs the root logger as phuslu's DefaultLogger and returns it.
func Configure(cfg config.LoggingConfig) log.Logger {
	root := New(cfg, os.Stderr)
	log.DefaultLogger = root
	return root
}
