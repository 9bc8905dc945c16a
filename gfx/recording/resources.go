package recording

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/rlgl/gfx"
)

// Buffer is a recording buffer. Its contents are kept in memory for every
// heap type, so tests can inspect GPU-local buffers after a copy.
type Buffer struct {
	dev       *Device
	label     string
	heap      gfx.HeapType
	usage     gfx.BufferUsage
	state     gfx.ResourceState
	data      []byte
	destroyed bool
}

func (b *Buffer) Size() uint64             { return uint64(len(b.data)) }
func (b *Buffer) Heap() gfx.HeapType       { return b.heap }
func (b *Buffer) Label() string            { return b.label }
func (b *Buffer) State() gfx.ResourceState { return b.state }

// Bytes returns the current contents.
func (b *Buffer) Bytes() []byte { return b.data }

// Write implements gfx.Buffer.
func (b *Buffer) Write(offset uint64, data []byte) error {
	if b.destroyed {
		return ErrDestroyed
	}
	if b.heap != gfx.HeapUpload {
		return fmt.Errorf("recording: write to %s-heap buffer %q", b.heap, b.label)
	}
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return fmt.Errorf("recording: write of %d bytes at %d overflows buffer %q (%d bytes)",
			len(data), offset, b.label, len(b.data))
	}
	copy(b.data[offset:], data)
	return nil
}

// Read implements gfx.Buffer.
func (b *Buffer) Read(offset uint64, dst []byte) error {
	if b.destroyed {
		return ErrDestroyed
	}
	if b.heap != gfx.HeapReadback {
		return fmt.Errorf("recording: read from %s-heap buffer %q", b.heap, b.label)
	}
	if offset+uint64(len(dst)) > uint64(len(b.data)) {
		return fmt.Errorf("recording: read of %d bytes at %d overflows buffer %q", len(dst), offset, b.label)
	}
	copy(dst, b.data[offset:])
	return nil
}

// Destroy implements gfx.Buffer.
func (b *Buffer) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.dev.track("buffer", -1)
}

// Texture is a recording texture with CPU-side texel storage per mip.
type Texture struct {
	dev       *Device
	label     string
	width     uint32
	height    uint32
	mips      uint32
	format    gfx.Format
	state     gfx.ResourceState
	levels    [][]byte
	destroyed bool
}

func (t *Texture) Width() uint32            { return t.width }
func (t *Texture) Height() uint32           { return t.height }
func (t *Texture) MipLevels() uint32        { return t.mips }
func (t *Texture) Format() gfx.Format       { return t.format }
func (t *Texture) Label() string            { return t.label }
func (t *Texture) State() gfx.ResourceState { return t.state }

// Pixels returns the tightly packed texels of a mip level.
func (t *Texture) Pixels(mip int) []byte {
	if mip < 0 || mip >= len(t.levels) {
		return nil
	}
	return t.levels[mip]
}

func (t *Texture) levelSize(mip uint32) (uint32, uint32) {
	return max(t.width>>mip, 1), max(t.height>>mip, 1)
}

// Destroy implements gfx.Texture.
func (t *Texture) Destroy() {
	if t.destroyed {
		return
	}
	t.destroyed = true
	t.dev.track("texture", -1)
}

type descriptor struct {
	tex    gfx.Texture
	buf    gfx.Buffer
	offset uint64
	size   uint64
}

func (d descriptor) empty() bool { return d.tex == nil && d.buf == nil }

// DescriptorHeap is a recording descriptor heap.
type DescriptorHeap struct {
	dev       *Device
	slots     []descriptor
	destroyed bool
}

func (h *DescriptorHeap) Len() int { return len(h.slots) }

func (h *DescriptorHeap) check(slot int) error {
	if slot < 0 || slot >= len(h.slots) {
		return fmt.Errorf("recording: descriptor slot %d out of range [0,%d)", slot, len(h.slots))
	}
	return nil
}

// CreateShaderResourceView implements gfx.DescriptorHeap.
func (h *DescriptorHeap) CreateShaderResourceView(slot int, tex gfx.Texture) error {
	if err := h.check(slot); err != nil {
		return err
	}
	h.slots[slot] = descriptor{tex: tex}
	return nil
}

// CreateConstantBufferView implements gfx.DescriptorHeap.
func (h *DescriptorHeap) CreateConstantBufferView(slot int, buf gfx.Buffer, offset, size uint64) error {
	if err := h.check(slot); err != nil {
		return err
	}
	align := h.dev.limits.ConstantBufferAlignment
	if offset%align != 0 || size%align != 0 {
		return fmt.Errorf("recording: constant buffer view [%d,+%d) not %d-byte aligned", offset, size, align)
	}
	if offset+size > buf.Size() {
		return fmt.Errorf("recording: constant buffer view [%d,+%d) exceeds buffer size %d", offset, size, buf.Size())
	}
	h.slots[slot] = descriptor{buf: buf, offset: offset, size: size}
	return nil
}

// ClearSlot implements gfx.DescriptorHeap.
func (h *DescriptorHeap) ClearSlot(slot int) {
	if h.check(slot) == nil {
		h.slots[slot] = descriptor{}
	}
}

// TextureAt returns the texture viewed by slot, if any.
func (h *DescriptorHeap) TextureAt(slot int) gfx.Texture {
	if h.check(slot) != nil {
		return nil
	}
	return h.slots[slot].tex
}

// Destroy implements gfx.DescriptorHeap.
func (h *DescriptorHeap) Destroy() {
	if h.destroyed {
		return
	}
	h.destroyed = true
	h.dev.track("descriptor heap", -1)
}

// RootSignature is a recording root signature.
type RootSignature struct {
	dev       *Device
	params    []gfx.RootParameter
	samplers  []gfx.StaticSampler
	destroyed bool
}

func (r *RootSignature) NumParameters() int { return len(r.params) }

// Parameters returns the declared root parameters.
func (r *RootSignature) Parameters() []gfx.RootParameter { return r.params }

// StaticSamplers returns the declared static samplers.
func (r *RootSignature) StaticSamplers() []gfx.StaticSampler { return r.samplers }

// Destroy implements gfx.RootSignature.
func (r *RootSignature) Destroy() {
	if r.destroyed {
		return
	}
	r.destroyed = true
	r.dev.track("root signature", -1)
}

// ShaderBlob holds the shader source as its bytecode.
type ShaderBlob struct {
	dev       *Device
	stage     gfx.ShaderStage
	code      []byte
	destroyed bool
}

func (s *ShaderBlob) Stage() gfx.ShaderStage { return s.stage }
func (s *ShaderBlob) Bytecode() []byte       { return s.code }

// Destroy implements gfx.ShaderBlob.
func (s *ShaderBlob) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.dev.track("shader", -1)
}

// PipelineState is a recording pipeline.
type PipelineState struct {
	dev       *Device
	label     string
	topology  gfx.Topology
	layout    []gfx.InputElement
	destroyed bool
}

func (p *PipelineState) Topology() gfx.Topology { return p.topology }
func (p *PipelineState) Label() string          { return p.label }

// InputLayout returns the vertex input layout.
func (p *PipelineState) InputLayout() []gfx.InputElement { return p.layout }

// Destroy implements gfx.PipelineState.
func (p *PipelineState) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	p.dev.track("pipeline", -1)
}

// Fence is signaled synchronously at submission.
type Fence struct {
	dev       *Device
	value     uint64
	destroyed atomic.Bool
}

func (f *Fence) Completed() uint64 {
	f.dev.mu.Lock()
	defer f.dev.mu.Unlock()
	return f.value
}

func (f *Fence) signal(v uint64) {
	f.dev.mu.Lock()
	if v > f.value {
		f.value = v
	}
	f.dev.mu.Unlock()
}

// Destroy implements gfx.Fence.
func (f *Fence) Destroy() {
	if f.destroyed.Swap(true) {
		return
	}
	f.dev.track("fence", -1)
}

// SwapChain is a recording swap chain backed by recording textures.
type SwapChain struct {
	dev       *Device
	surface   gfx.Surface
	format    gfx.Format
	buffers   []*Texture
	count     int
	current   int
	destroyed bool
}

func (s *SwapChain) build(width, height uint32, count int) error {
	s.count = count
	s.buffers = s.buffers[:0]
	for i := 0; i < count; i++ {
		t, err := s.dev.CreateTexture(&gfx.TextureDesc{
			Label:        fmt.Sprintf("back buffer %d", i),
			Width:        width,
			Height:       height,
			MipLevels:    1,
			Format:       s.format,
			Usage:        gfx.TextureUsageRenderTarget | gfx.TextureUsageCopySrc,
			InitialState: gfx.StatePresent,
		})
		if err != nil {
			s.release()
			return err
		}
		s.buffers = append(s.buffers, t.(*Texture))
	}
	s.current = 0
	return nil
}

func (s *SwapChain) release() {
	for _, b := range s.buffers {
		b.Destroy()
	}
	s.buffers = s.buffers[:0]
}

func (s *SwapChain) BufferCount() int         { return len(s.buffers) }
func (s *SwapChain) CurrentIndex() int        { return s.current }
func (s *SwapChain) Buffer(i int) gfx.Texture { return s.buffers[i] }

// Present implements gfx.SwapChain.
func (s *SwapChain) Present() error {
	if s.destroyed {
		return ErrDestroyed
	}
	bb := s.buffers[s.current]
	if bb.state != gfx.StatePresent {
		s.dev.report(gfx.SeverityError, "present of back buffer %d in state %s", s.current, bb.state)
	}
	if p, ok := s.surface.(gfx.Presenter); ok {
		if err := p.PresentFrame(bb); err != nil {
			return fmt.Errorf("recording: present: %w", err)
		}
	}
	s.dev.mu.Lock()
	s.dev.presents++
	s.dev.mu.Unlock()
	s.current = (s.current + 1) % len(s.buffers)
	return nil
}

// Resize implements gfx.SwapChain. A failed resize leaves no buffers; a
// later successful one restores the original count.
func (s *SwapChain) Resize(width, height uint32) error {
	s.release()
	return s.build(width, height, s.count)
}

// Destroy implements gfx.SwapChain.
func (s *SwapChain) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.release()
	s.dev.track("swap chain", -1)
}
