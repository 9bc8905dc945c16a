// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gfx

// Surface is the presentation target supplied by the platform layer. It
// is consulted once, when the swap chain is created, and again on resize.
type Surface interface {
	// Size reports the drawable size in pixels.
	Size() (width, height int)
}

// Presenter is implemented by surfaces that consume finished frames. The
// back buffer is in StatePresent and stays valid until the swap chain
// cycles back to it.
type Presenter interface {
	PresentFrame(backBuffer Texture) error
}

// OffscreenSurface is a Surface with no window behind it. Frames stay in
// the swap chain's back buffers and can be read back.
type OffscreenSurface struct {
	Width, Height int
}

// Size implements Surface.
func (s OffscreenSurface) Size() (int, int) { return s.Width, s.Height }
