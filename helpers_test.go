package rlgl

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/gogpu/rlgl/gfx/recording"
)

// logCapture is a slog.Handler that keeps every record.
type logCapture struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *logCapture) Enabled(context.Context, slog.Level) bool { return true }

func (h *logCapture) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	h.records = append(h.records, r.Clone())
	h.mu.Unlock()
	return nil
}

func (h *logCapture) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *logCapture) WithGroup(string) slog.Handler      { return h }

func (h *logCapture) all() []slog.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]slog.Record(nil), h.records...)
}

// count returns the number of records at exactly level.
func (h *logCapture) count(level slog.Level) int {
	n := 0
	for _, r := range h.all() {
		if r.Level == level {
			n++
		}
	}
	return n
}

// atLeast returns the messages logged at level or above.
func (h *logCapture) atLeast(level slog.Level) []string {
	var out []string
	for _, r := range h.all() {
		if r.Level >= level {
			out = append(out, r.Message)
		}
	}
	return out
}

func (h *logCapture) has(level slog.Level, msg string) bool {
	for _, r := range h.all() {
		if r.Level == level && r.Message == msg {
			return true
		}
	}
	return false
}

func (h *logCapture) reset() {
	h.mu.Lock()
	h.records = nil
	h.mu.Unlock()
}

// newTestContext creates an 800x600 context on a recording device. The
// context is closed when the test ends.
func newTestContext(t *testing.T, opts ...Option) (*RenderContext, *recording.Device, *logCapture) {
	t.Helper()
	dev := recording.New()
	logs := &logCapture{}
	all := append([]Option{WithDevice(dev), WithLogger(slog.New(logs))}, opts...)
	rc, err := New(all...)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc, dev, logs
}

// drawQuad emits one quad with the top-left corner at (x, y).
func drawQuad(rc *RenderContext, x, y, size float32) {
	rc.Begin(Quads)
	rc.Vertex2f(x, y)
	rc.Vertex2f(x, y+size)
	rc.Vertex2f(x+size, y+size)
	rc.Vertex2f(x+size, y)
	rc.End()
}

func indexedDraws(dev *recording.Device) []recording.DrawIndexed {
	var out []recording.DrawIndexed
	for _, c := range dev.Commands(recording.CmdDrawIndexed) {
		out = append(out, c.(recording.DrawIndexed))
	}
	return out
}
