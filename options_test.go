package rlgl

import (
	"errors"
	"testing"

	"github.com/gogpu/rlgl/gfx"
	"github.com/gogpu/rlgl/gfx/recording"
)

type countingSurface struct {
	gfx.OffscreenSurface
	frames int
}

func (s *countingSurface) PresentFrame(gfx.Texture) error {
	s.frames++
	return nil
}

func TestWithSurface(t *testing.T) {
	surf := &countingSurface{OffscreenSurface: gfx.OffscreenSurface{Width: 64, Height: 32}}
	rc, _, _ := newTestContext(t, WithSurface(surf))
	if rc.Width() != 64 || rc.Height() != 32 {
		t.Errorf("size = %dx%d, want the surface size 64x32", rc.Width(), rc.Height())
	}
	for i := 0; i < 3; i++ {
		if err := rc.Present(); err != nil {
			t.Fatalf("Present() = %v", err)
		}
	}
	if surf.frames != 3 {
		t.Errorf("surface received %d frames, want 3", surf.frames)
	}
}

func TestWithSurface_ZeroSizeKeepsConfig(t *testing.T) {
	rc, _, _ := newTestContext(t, WithSurface(gfx.OffscreenSurface{}))
	if rc.Width() != DefaultWidth || rc.Height() != DefaultHeight {
		t.Errorf("size = %dx%d, want the configured %dx%d", rc.Width(), rc.Height(), DefaultWidth, DefaultHeight)
	}
}

func TestWithBackend(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr error
	}{
		{"option", []Option{WithBackend(recording.BackendName)}, nil},
		{"config", []Option{WithConfig(Config{Width: 32, Height: 32, Backend: recording.BackendName})}, nil},
		{"unknown", []Option{WithBackend("no-such-backend")}, gfx.ErrUnknownBackend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, err := New(tt.opts...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("New() = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() = %v", err)
			}
			defer rc.Close()
			if got := rc.Device().Info().Backend; got != recording.BackendName {
				t.Errorf("backend = %q, want %q", got, recording.BackendName)
			}
		})
	}
}

func TestWithConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 320, 200
	cfg.Batch = BatchConfig{Buffers: 3, Elements: 64, DrawCalls: 8}
	rc, _, _ := newTestContext(t, WithConfig(cfg))

	if rc.Width() != 320 || rc.Height() != 200 {
		t.Errorf("size = %dx%d, want 320x200", rc.Width(), rc.Height())
	}
	b := rc.batch
	if b.BufferCount() != 3 || b.Elements() != 64 || len(b.draws) != 8 {
		t.Errorf("default batch = %d buffers, %d elements, %d draw calls", b.BufferCount(), b.Elements(), len(b.draws))
	}

	cfg.Width = 0
	if _, err := New(WithConfig(cfg), WithDevice(recording.New())); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New() with zero width = %v, want ErrInvalidConfig", err)
	}
}

func TestWithDevice_NotDestroyed(t *testing.T) {
	dev := recording.New()
	rc, err := New(WithDevice(dev))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if rc.Device() != gfx.Device(dev) {
		t.Error("Device() is not the injected device")
	}
	if err := rc.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if msgs := dev.PollMessages(); len(msgs) != 0 {
		t.Errorf("device reported %v after Close", msgs)
	}
	// The device is still usable by its owner.
	if _, err := dev.CreateFence(0); err != nil {
		t.Errorf("CreateFence() after Close = %v", err)
	}
}
