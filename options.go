package rlgl

import (
	"log/slog"

	"github.com/gogpu/rlgl/gfx"
)

// Option configures a RenderContext during creation.
//
// Example:
//
//	// Highest priority backend, 800x600 offscreen
//	rc, err := rlgl.New()
//
//	// Injected device, window surface from the platform layer
//	rc, err := rlgl.New(rlgl.WithDevice(dev), rlgl.WithSurface(win))
type Option func(*options)

type options struct {
	config  Config
	device  gfx.Device
	backend string
	surface gfx.Surface
	logger  *slog.Logger
}

func defaultOptions() options {
	return options{config: DefaultConfig()}
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithDevice renders through an existing device. The caller keeps
// ownership: Close does not destroy it.
func WithDevice(d gfx.Device) Option {
	return func(o *options) {
		o.device = d
	}
}

// WithBackend opens the named registered backend instead of the highest
// priority one. It overrides Config.Backend.
func WithBackend(name string) Option {
	return func(o *options) {
		o.backend = name
	}
}

// WithSurface presents into s. Its size overrides Config.Width and
// Config.Height. Without a surface frames stay offscreen.
func WithSurface(s gfx.Surface) Option {
	return func(o *options) {
		o.surface = s
	}
}

// WithLogger gives the context its own logger instead of the package one.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
