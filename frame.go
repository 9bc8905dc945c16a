package rlgl

import (
	"errors"
	"fmt"

	"github.com/gogpu/rlgl/gfx"
)

// FrameStats counts the work of one frame.
type FrameStats struct {
	Frame     uint64
	DrawCalls int
	Flushes   int
	Vertices  int
	// Submits includes the mid-frame submits forced by render buffer or
	// constant region reuse.
	Submits int
}

// Stats returns the counters of the last presented frame.
func (c *RenderContext) Stats() FrameStats { return c.lastStats }

// beginFrame makes the current back buffer a cleared render target.
func (c *RenderContext) beginFrame() {
	bb := c.backBuffer()
	c.list.ResourceBarrier(gfx.TextureTransition(bb, gfx.StatePresent, gfx.StateRenderTarget))
	c.clearTargets()
}

func (c *RenderContext) clearTargets() {
	c.list.SetRenderTargets(c.backBuffer(), c.depth)
	c.list.ClearRenderTarget(c.clearColor)
	c.list.ClearDepth(1)
}

// submit closes the command list and executes it, signaling the next
// fence value.
func (c *RenderContext) submit() error {
	if err := c.list.Close(); err != nil {
		return fmt.Errorf("close command list: %w", err)
	}
	if err := c.queue.Submit([]gfx.CommandList{c.list}, c.fence, c.fenceValue+1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	c.fenceValue++
	c.frameStats.Submits++
	return nil
}

// wait blocks until the last submission completes and then runs the
// destructors retired before it.
func (c *RenderContext) wait() error {
	if err := c.dev.Wait(c.fence, c.fenceValue); err != nil {
		return fmt.Errorf("wait for fence %d: %w", c.fenceValue, err)
	}
	c.runRetired()
	return nil
}

// reopen starts a new command list segment.
func (c *RenderContext) reopen() error {
	c.segment++
	c.cbCursor = 0
	if err := c.list.Reset(); err != nil {
		return fmt.Errorf("reset command list: %w", err)
	}
	return nil
}

// submitPartial executes what the frame recorded so far and waits for it,
// so staging memory and constant regions can be rewritten.
func (c *RenderContext) submitPartial() error {
	c.log.Debug("rlgl: mid-frame submit", "frame", c.frame, "segment", c.segment)
	err := c.submit()
	if err == nil {
		err = c.wait()
	}
	if rerr := c.reopen(); rerr != nil {
		err = errors.Join(err, rerr)
	}
	if err != nil {
		c.log.Error("rlgl: mid-frame submit failed", "err", err)
	}
	return err
}

// Present flushes the active batch, submits the frame, presents the back
// buffer and waits for the GPU. Device messages produced by the frame are
// logged at info level. The next frame is begun before Present returns.
func (c *RenderContext) Present() error {
	if c.closed {
		return ErrClosed
	}
	c.DrawRenderBatchActive()
	c.list.ResourceBarrier(gfx.TextureTransition(c.backBuffer(), gfx.StateRenderTarget, gfx.StatePresent))

	var errs []error
	if err := c.submit(); err != nil {
		errs = append(errs, err)
	} else if err := c.swapChain.Present(); err != nil {
		errs = append(errs, fmt.Errorf("present: %w", err))
	}
	if err := c.wait(); err != nil {
		errs = append(errs, err)
	}
	c.relayMessages()

	c.lastStats = c.frameStats
	c.frame++
	c.frameStats = FrameStats{Frame: c.frame}

	if err := c.reopen(); err != nil {
		errs = append(errs, err)
	} else {
		c.beginFrame()
	}

	if err := errors.Join(errs...); err != nil {
		c.log.Error("rlgl: present failed", "frame", c.lastStats.Frame, "err", err)
		return err
	}
	return nil
}

func (c *RenderContext) relayMessages() {
	for _, m := range c.dev.PollMessages() {
		c.log.Info("rlgl: device message", "severity", m.Severity, "text", m.Text)
	}
}

// ClearColor sets the color the back buffer is cleared to at the start of
// each frame and by ClearScreenBuffers.
func (c *RenderContext) ClearColor(r, g, b, a uint8) {
	c.clearColor = [4]float32{
		float32(r) / 255,
		float32(g) / 255,
		float32(b) / 255,
		float32(a) / 255,
	}
}

// ClearScreenBuffers clears the back buffer and the depth buffer now.
// Pending vertices are drawn first.
func (c *RenderContext) ClearScreenBuffers() {
	if c.closed {
		return
	}
	c.DrawRenderBatchActive()
	c.clearTargets()
}

// Resize recreates the back buffers and the depth buffer at the new size
// and resets the viewport and the default projection. The current frame's
// drawing is submitted and discarded. On failure the previous size is kept.
func (c *RenderContext) Resize(width, height int) error {
	if c.closed {
		return ErrClosed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("resize: %w: %dx%d", ErrInvalidSize, width, height)
	}
	if width == c.width && height == c.height {
		return nil
	}
	c.DrawRenderBatchActive()
	c.list.ResourceBarrier(gfx.TextureTransition(c.backBuffer(), gfx.StateRenderTarget, gfx.StatePresent))
	if err := c.submitPartial(); err != nil {
		return fmt.Errorf("resize: %w", err)
	}

	// #nosec G115 -- validated positive
	if err := c.swapChain.Resize(uint32(width), uint32(height)); err != nil {
		c.log.Error("rlgl: swap chain resize failed", "width", width, "height", height, "err", err)
		return c.restoreSize(fmt.Errorf("resize swap chain: %w", err))
	}
	oldW, oldH := c.width, c.height
	c.width, c.height = width, height
	depth, err := c.createDepthTexture()
	if err != nil {
		c.width, c.height = oldW, oldH
		c.log.Error("rlgl: depth buffer resize failed", "width", width, "height", height, "err", err)
		return c.restoreSize(fmt.Errorf("resize depth buffer: %w", err))
	}
	c.depth.Destroy()
	c.depth = depth

	c.resetProjection()
	c.beginFrame()
	c.log.Info("rlgl: resized", "width", width, "height", height)
	return nil
}

// restoreSize puts the swap chain back at the current size after a failed
// resize and begins a new frame on it. If even that fails the context is
// torn down and later calls report ErrClosed.
func (c *RenderContext) restoreSize(cause error) error {
	// #nosec G115 -- the current size was validated when it was set
	if err := c.swapChain.Resize(uint32(c.width), uint32(c.height)); err != nil {
		c.log.Error("rlgl: swap chain lost, closing context", "width", c.width, "height", c.height, "err", err)
		c.teardown()
		return errors.Join(cause, err, ErrClosed)
	}
	c.beginFrame()
	return cause
}

// ReadScreenPixels copies the current back buffer into tightly packed RGBA
// rows, top row first. Pending vertices are drawn first, and the frame so
// far is submitted and waited for.
func (c *RenderContext) ReadScreenPixels() ([]byte, error) {
	pix, err := c.readScreenPixels()
	if err != nil {
		c.log.Error("rlgl: read screen pixels failed", "err", err)
		return nil, fmt.Errorf("read screen pixels: %w", err)
	}
	return pix, nil
}

func (c *RenderContext) readScreenPixels() ([]byte, error) {
	if c.closed {
		return nil, ErrClosed
	}
	c.DrawRenderBatchActive()

	bb := c.backBuffer()
	w, h := bb.Width(), bb.Height()
	pitch := gfx.RowPitch(w, 4)
	rb, err := c.dev.CreateBuffer(&gfx.BufferDesc{
		Label:        "screen_readback",
		Size:         uint64(pitch) * uint64(h),
		Heap:         gfx.HeapReadback,
		Usage:        gfx.BufferUsageCopyDst,
		InitialState: gfx.StateCopyDest,
	})
	if err != nil {
		return nil, err
	}
	defer rb.Destroy()

	c.list.ResourceBarrier(gfx.TextureTransition(bb, gfx.StateRenderTarget, gfx.StateCopySource))
	c.list.CopyTextureToBuffer(rb, bb, gfx.Footprint{RowPitch: pitch, Width: w, Height: h})
	c.list.ResourceBarrier(gfx.TextureTransition(bb, gfx.StateCopySource, gfx.StateRenderTarget))
	if err := c.submitPartial(); err != nil {
		return nil, err
	}

	raw := make([]byte, int(pitch)*int(h))
	if err := rb.Read(0, raw); err != nil {
		return nil, err
	}
	rowBytes := int(w) * 4
	out := make([]byte, rowBytes*int(h))
	for y := 0; y < int(h); y++ {
		copy(out[y*rowBytes:(y+1)*rowBytes], raw[y*int(pitch):])
	}
	if bb.Format() == gfx.FormatBGRA8Unorm {
		for i := 0; i < len(out); i += 4 {
			out[i], out[i+2] = out[i+2], out[i]
		}
	}
	return out, nil
}
