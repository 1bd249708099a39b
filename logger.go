package glkit

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled reports false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the package logger. Accessed atomically so that
// SetLogger may race with device diagnostics delivered from driver threads.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger used by glkit and its backends.
// By default glkit produces no log output. Pass nil to restore the
// silent default.
//
// Log levels used by glkit:
//   - [slog.LevelDebug]: handle creation and release, bind traffic
//   - [slog.LevelInfo]: program linked
//   - [slog.LevelWarn]: uniform not found, non-fatal device diagnostics
//   - [slog.LevelError]: compile and link failures, fatal device diagnostics
//
// A Context created with WithLogger uses its own logger instead.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current package logger.
// Backends call this to share the logger configuration.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
