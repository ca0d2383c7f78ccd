package common

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards every record. Enabled returns false so callers skip formatting.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// NopLogger returns a logger that silently discards all output.
func NopLogger() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(NopLogger())
}

// SetLogger sets the logger shared by the engine packages. Passing nil restores the
// default silent logger. Safe for concurrent use.
//
// Levels used:
//   - slog.LevelDebug: per-frame diagnostics (shadow decisions, buffer growth)
//   - slog.LevelInfo: lifecycle events (device created, stack initialized)
//   - slog.LevelWarn: isolated failures (a renderer draw failed, a camera frame dropped)
//   - slog.LevelError: resource creation failures
//
// Parameters:
//   - l: the logger to use
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = NopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the shared engine logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
