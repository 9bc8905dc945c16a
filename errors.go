package rlgl

import "errors"

// Errors returned by rlgl. Failures are also logged.
var (
	// ErrClosed is returned by operations on a closed RenderContext.
	ErrClosed = errors.New("rlgl: context closed")

	// ErrInvalidSize is returned for zero or oversized texture dimensions.
	ErrInvalidSize = errors.New("rlgl: invalid size")

	// ErrInvalidData is returned when pixel data does not match the
	// declared size and format.
	ErrInvalidData = errors.New("rlgl: pixel data size mismatch")

	// ErrUnsupportedFormat is returned for pixel formats rlgl cannot upload.
	ErrUnsupportedFormat = errors.New("rlgl: unsupported pixel format")

	// ErrNoTextureSlot is returned when every texture descriptor slot is
	// taken.
	ErrNoTextureSlot = errors.New("rlgl: no free texture descriptor slot")

	// ErrUnknownTexture is returned for texture ids that are not loaded.
	ErrUnknownTexture = errors.New("rlgl: unknown texture")

	// ErrUnknownShader is returned for shader ids that are not compiled.
	ErrUnknownShader = errors.New("rlgl: unknown shader")

	// ErrUnknownPipeline is returned for pipeline ids that are not loaded.
	ErrUnknownPipeline = errors.New("rlgl: unknown pipeline")

	// ErrStageMismatch is returned when a shader is linked into the wrong
	// pipeline stage.
	ErrStageMismatch = errors.New("rlgl: shader stage mismatch")

	// ErrInvalidConfig is wrapped by Config.Validate failures.
	ErrInvalidConfig = errors.New("rlgl: invalid config")
)
