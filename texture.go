package rlgl

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"github.com/gogpu/rlgl/gfx"
	"github.com/gogpu/rlgl/internal/pool"
)

// TextureID identifies a loaded texture. Zero never names a texture.
type TextureID uint32

// texture is a sampled RGBA texture and the upload buffer that fills it.
// The upload buffer is kept for UpdateTexture.
type texture struct {
	gpu     gfx.Texture
	staging gfx.Buffer
	width   int
	height  int
	mips    int
	slot    int

	// segment is the command list segment the staging buffer was last
	// recorded into.
	segment uint64
}

func (t *texture) destroy() {
	if t.staging != nil {
		t.staging.Destroy()
		t.staging = nil
	}
	if t.gpu != nil {
		t.gpu.Destroy()
		t.gpu = nil
	}
}

type mipLevel struct {
	pix  []byte
	w, h int
}

// mipChain returns the base level followed by up to count-1 box-filtered
// reductions, stopping at 1x1.
func mipChain(rgba []byte, width, height, count int) []mipLevel {
	levels := []mipLevel{{pix: rgba, w: width, h: height}}
	if count <= 1 {
		return levels
	}
	base := &image.NRGBA{Pix: rgba, Stride: width * 4, Rect: image.Rect(0, 0, width, height)}
	w, h := width, height
	for len(levels) < count && (w > 1 || h > 1) {
		w, h = max(w/2, 1), max(h/2, 1)
		img := imaging.Resize(base, w, h, imaging.Box)
		levels = append(levels, mipLevel{pix: img.Pix, w: w, h: h})
	}
	return levels
}

// packLevels lays the levels out with CopyPitchAlignment-aligned rows.
func packLevels(levels []mipLevel) ([]byte, []gfx.Footprint) {
	fps := make([]gfx.Footprint, len(levels))
	var size uint64
	for i, l := range levels {
		// #nosec G115 -- dimensions are validated against the device limit
		w, h := uint32(l.w), uint32(l.h)
		fps[i] = gfx.Footprint{Offset: size, RowPitch: gfx.RowPitch(w, 4), Width: w, Height: h, MipLevel: uint32(i)}
		size += uint64(fps[i].RowPitch) * uint64(h)
	}
	buf := make([]byte, size)
	for i, l := range levels {
		copyRows(buf[fps[i].Offset:], int(fps[i].RowPitch), l.pix, l.w*4, l.h)
	}
	return buf, fps
}

// copyRows copies h rows of rowBytes from a tightly packed src into dst
// rows of pitch bytes.
func copyRows(dst []byte, pitch int, src []byte, rowBytes, h int) {
	if pitch == rowBytes {
		copy(dst, src[:rowBytes*h])
		return
	}
	for y := 0; y < h; y++ {
		copy(dst[y*pitch:y*pitch+rowBytes], src[y*rowBytes:(y+1)*rowBytes])
	}
}

func (c *RenderContext) allocTextureSlot() int {
	for i, used := range c.texSlots {
		if !used {
			c.texSlots[i] = true
			return i
		}
	}
	return -1
}

// LoadTexture uploads width x height pixels of the given format and
// returns the new texture's id. With mipmaps > 1 a mip chain of up to that
// many levels is generated. On failure it returns 0 and an error.
func (c *RenderContext) LoadTexture(data []byte, width, height int, format PixelFormat, mipmaps int) (TextureID, error) {
	id, err := c.loadTexture(data, width, height, format, mipmaps)
	if err != nil {
		c.log.Error("rlgl: load texture failed", "width", width, "height", height, "format", format, "err", err)
		return 0, fmt.Errorf("load texture: %w", err)
	}
	return id, nil
}

func (c *RenderContext) loadTexture(data []byte, width, height int, format PixelFormat, mipmaps int) (TextureID, error) {
	if c.closed {
		return 0, ErrClosed
	}
	maxDim := int(c.dev.Limits().MaxTextureDimension)
	if width <= 0 || height <= 0 || (maxDim > 0 && (width > maxDim || height > maxDim)) {
		return 0, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
	if need := width * height * bpp; len(data) < need {
		return 0, fmt.Errorf("%w: have %d bytes, want %d", ErrInvalidData, len(data), need)
	}

	levels := mipChain(toRGBA(data[:width*height*bpp], format), width, height, mipmaps)
	packed, footprints := packLevels(levels)

	slot := c.allocTextureSlot()
	if slot < 0 {
		return 0, ErrNoTextureSlot
	}
	t := &texture{width: width, height: height, mips: len(levels), slot: slot}
	ok := false
	defer func() {
		if !ok {
			c.heap.ClearSlot(slot)
			c.texSlots[slot] = false
			t.destroy()
		}
	}()

	var err error
	t.gpu, err = c.dev.CreateTexture(&gfx.TextureDesc{
		Label: fmt.Sprintf("texture_%d", slot),
		// #nosec G115 -- validated above
		Width:        uint32(width),
		Height:       uint32(height),
		MipLevels:    uint32(len(levels)),
		Format:       gfx.FormatRGBA8Unorm,
		Usage:        gfx.TextureUsageSampled | gfx.TextureUsageCopyDst,
		InitialState: gfx.StateCopyDest,
	})
	if err != nil {
		return 0, err
	}
	t.staging, err = c.dev.CreateBuffer(&gfx.BufferDesc{
		Label: fmt.Sprintf("texture_%d_upload", slot),
		Size:  uint64(len(packed)),
		Heap:  gfx.HeapUpload,
		Usage: gfx.BufferUsageCopySrc,
	})
	if err != nil {
		return 0, err
	}
	if err := t.staging.Write(0, packed); err != nil {
		return 0, err
	}
	if err := c.heap.CreateShaderResourceView(slot, t.gpu); err != nil {
		return 0, err
	}
	pid, err := c.textures.Add(t)
	if err != nil {
		return 0, err
	}
	ok = true

	for _, fp := range footprints {
		c.list.CopyBufferToTexture(t.gpu, t.staging, fp)
	}
	c.list.ResourceBarrier(gfx.TextureTransition(t.gpu, gfx.StateCopyDest, gfx.StateShaderResource))
	t.segment = c.segment

	c.log.Debug("rlgl: texture loaded", "id", pid, "width", width, "height", height, "mips", t.mips, "slot", slot)
	return TextureID(pid), nil
}

// LoadTextureFromImage uploads img as an RGBA texture.
func (c *RenderContext) LoadTextureFromImage(img image.Image, mipmaps int) (TextureID, error) {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return c.LoadTexture(dst.Pix, b.Dx(), b.Dy(), PixelFormatR8G8B8A8, mipmaps)
}

// UpdateTexture replaces a width x height region of the base level at
// (x, y). Pending vertices are flushed first so they still sample the
// old contents.
func (c *RenderContext) UpdateTexture(id TextureID, x, y, width, height int, format PixelFormat, data []byte) error {
	if err := c.updateTexture(id, x, y, width, height, format, data); err != nil {
		c.log.Warn("rlgl: update texture failed", "id", id, "err", err)
		return fmt.Errorf("update texture %d: %w", id, err)
	}
	return nil
}

func (c *RenderContext) updateTexture(id TextureID, x, y, width, height int, format PixelFormat, data []byte) error {
	if c.closed {
		return ErrClosed
	}
	t, err := c.textures.Get(pool.ID(id))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnknownTexture, err)
	}
	if x < 0 || y < 0 || width <= 0 || height <= 0 || x+width > t.width || y+height > t.height {
		return fmt.Errorf("%w: region %dx%d at (%d,%d) outside %dx%d", ErrInvalidSize, width, height, x, y, t.width, t.height)
	}
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
	if need := width * height * bpp; len(data) < need {
		return fmt.Errorf("%w: have %d bytes, want %d", ErrInvalidData, len(data), need)
	}

	c.DrawRenderBatchActive()
	if t.segment == c.segment {
		if err := c.submitPartial(); err != nil {
			return err
		}
	}

	// #nosec G115 -- region is inside the texture
	fp := gfx.Footprint{
		RowPitch: gfx.RowPitch(uint32(width), 4),
		Width:    uint32(width),
		Height:   uint32(height),
		X:        uint32(x),
		Y:        uint32(y),
	}
	buf := make([]byte, int(fp.RowPitch)*height)
	copyRows(buf, int(fp.RowPitch), toRGBA(data[:width*height*bpp], format), width*4, height)
	if err := t.staging.Write(0, buf); err != nil {
		return err
	}

	c.list.ResourceBarrier(gfx.TextureTransition(t.gpu, gfx.StateShaderResource, gfx.StateCopyDest))
	c.list.CopyBufferToTexture(t.gpu, t.staging, fp)
	c.list.ResourceBarrier(gfx.TextureTransition(t.gpu, gfx.StateCopyDest, gfx.StateShaderResource))
	t.segment = c.segment
	return nil
}

// UnloadTexture releases a texture once the GPU no longer uses it. Its id
// becomes stale immediately. The default texture cannot be unloaded.
func (c *RenderContext) UnloadTexture(id TextureID) {
	if c.closed {
		return
	}
	if id == c.defaultTexture {
		c.log.Warn("rlgl: refusing to unload the default texture", "id", id)
		return
	}
	if !c.textures.Contains(pool.ID(id)) {
		c.log.Warn("rlgl: unload of unknown texture", "id", id)
		return
	}
	c.DrawRenderBatchActive()
	t, _ := c.textures.Remove(pool.ID(id))
	if c.boundTexture == id {
		c.boundTexture = c.defaultTexture
	}
	if d := c.batch.currentDraw(); d.TextureID == id {
		d.TextureID = c.defaultTexture
	}
	c.retire(func() {
		c.heap.ClearSlot(t.slot)
		c.texSlots[t.slot] = false
		t.destroy()
	})
	c.log.Debug("rlgl: texture unloaded", "id", id)
}

// TextureSize returns the size of a loaded texture.
func (c *RenderContext) TextureSize(id TextureID) (width, height int, err error) {
	t, err := c.textures.Get(pool.ID(id))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrUnknownTexture, err)
	}
	return t.width, t.height, nil
}

// DefaultTextureID returns the id of the 1x1 white texture bound when no
// other texture is.
func (c *RenderContext) DefaultTextureID() TextureID { return c.defaultTexture }

// resolveTexture returns the texture for id, falling back to the default
// texture with a warning when id is not loaded.
func (c *RenderContext) resolveTexture(id TextureID) (*texture, TextureID) {
	if id != c.defaultTexture {
		t, err := c.textures.Get(pool.ID(id))
		if err == nil {
			return t, id
		}
		c.log.Warn("rlgl: texture not loaded, using default texture", "id", id, "err", err)
	}
	t, _ := c.textures.Get(pool.ID(c.defaultTexture))
	return t, c.defaultTexture
}
