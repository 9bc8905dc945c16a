package rlgl

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/rlgl/gfx/halgfx"
)

// nopHandler discards every record. Enabled returns false so callers skip
// formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for rlgl and the hal backend.
// By default rlgl produces no log output. Pass nil to restore silence.
//
// Log levels used by rlgl:
//   - [slog.LevelDebug]: flushes, resource creation, mid-frame submits
//   - [slog.LevelInfo]: lifecycle events and relayed device messages
//   - [slog.LevelWarn]: recoverable misuse (stack underflow, unknown ids)
//   - [slog.LevelError]: stack overflow, failed resource creation or submission
//
// Example:
//
//	rlgl.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	halgfx.SetLogger(l)
}

// Logger returns the package logger. It is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
