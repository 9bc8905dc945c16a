package rlgl

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults for Config fields left at zero.
const (
	DefaultWidth         = 800
	DefaultHeight        = 600
	DefaultBatchBuffers  = 2
	DefaultBatchElements = 8192
	DefaultDrawCalls     = 256
	DefaultMaxTextures   = 99
	DefaultConstantSlots = 16
	DefaultBackBuffers   = 2

	DefaultCullNear = 0.01
	DefaultCullFar  = 1000.0
)

// MaxMatrixStackDepth is the depth of the push/pop matrix stack.
const MaxMatrixStackDepth = 32

// Config sizes a RenderContext. It can be loaded from YAML:
//
//	width: 1280
//	height: 720
//	batch:
//	  buffers: 2
//	  elements: 8192
//	  draw_calls: 256
//	clear_color: [0.1, 0.1, 0.1, 1]
type Config struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	Batch BatchConfig `yaml:"batch"`

	// MaxTextures is the number of texture descriptor slots, including the
	// default texture.
	MaxTextures int `yaml:"max_textures"`

	// ConstantSlots is the number of per-flush constant buffer regions
	// available before a frame must be submitted early.
	ConstantSlots int `yaml:"constant_slots"`

	BackBuffers int `yaml:"back_buffers"`

	ClearColor [4]float32 `yaml:"clear_color"`

	CullNear float64 `yaml:"cull_near"`
	CullFar  float64 `yaml:"cull_far"`

	// Backend names a registered gfx backend. Empty selects the highest
	// priority available one.
	Backend       string `yaml:"backend"`
	AllowSoftware bool   `yaml:"allow_software"`
}

// BatchConfig sizes the default render batch.
type BatchConfig struct {
	Buffers   int `yaml:"buffers"`
	Elements  int `yaml:"elements"`
	DrawCalls int `yaml:"draw_calls"`
}

// DefaultConfig returns the configuration New uses when none is given.
func DefaultConfig() Config {
	return Config{
		Width:  DefaultWidth,
		Height: DefaultHeight,
		Batch: BatchConfig{
			Buffers:   DefaultBatchBuffers,
			Elements:  DefaultBatchElements,
			DrawCalls: DefaultDrawCalls,
		},
		MaxTextures:   DefaultMaxTextures,
		ConstantSlots: DefaultConstantSlots,
		BackBuffers:   DefaultBackBuffers,
		ClearColor:    [4]float32{0, 0, 0, 1},
		CullNear:      DefaultCullNear,
		CullFar:       DefaultCullFar,
	}
}

// LoadConfig reads a YAML config file. Missing fields keep their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML on top of DefaultConfig and validates it.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate replaces out-of-range sizes with their defaults and rejects
// values that have no sensible replacement.
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: framebuffer %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.Batch.Buffers < 1 {
		c.Batch.Buffers = DefaultBatchBuffers
	}
	if c.Batch.Elements < 1 {
		c.Batch.Elements = DefaultBatchElements
	}
	if c.Batch.DrawCalls < 1 {
		c.Batch.DrawCalls = DefaultDrawCalls
	}
	if c.MaxTextures < 1 {
		c.MaxTextures = DefaultMaxTextures
	}
	if c.ConstantSlots < 1 {
		c.ConstantSlots = DefaultConstantSlots
	}
	if c.BackBuffers < 1 {
		c.BackBuffers = DefaultBackBuffers
	}
	if c.CullNear <= 0 {
		c.CullNear = DefaultCullNear
	}
	if c.CullFar <= 0 {
		c.CullFar = DefaultCullFar
	}
	if c.CullFar <= c.CullNear {
		return fmt.Errorf("%w: cull far %g not beyond near %g", ErrInvalidConfig, c.CullFar, c.CullNear)
	}
	return nil
}
