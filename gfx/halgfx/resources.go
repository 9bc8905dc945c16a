// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package halgfx

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rlgl/gfx"
)

type buffer struct {
	dev   *Device
	raw   hal.Buffer
	size  uint64
	heap  gfx.HeapType
	label string
}

func (b *buffer) Size() uint64       { return b.size }
func (b *buffer) Heap() gfx.HeapType { return b.heap }

func (b *buffer) Write(offset uint64, data []byte) error {
	if b.heap != gfx.HeapUpload {
		return fmt.Errorf("halgfx: write to %s-heap buffer %q", b.heap, b.label)
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("halgfx: write of %d bytes at %d overflows buffer %q", len(data), offset, b.label)
	}
	if len(data)%4 != 0 {
		// hal writes whole words.
		padded := make([]byte, (len(data)+3)&^3)
		copy(padded, data)
		data = padded
	}
	b.dev.queue.WriteBuffer(b.raw, offset, data)
	return nil
}

func (b *buffer) Read(offset uint64, dst []byte) error {
	if b.heap != gfx.HeapReadback {
		return fmt.Errorf("halgfx: read from %s-heap buffer %q", b.heap, b.label)
	}
	if err := b.dev.queue.ReadBuffer(b.raw, offset, dst); err != nil {
		return fmt.Errorf("halgfx: read buffer %q: %w", b.label, err)
	}
	return nil
}

func (b *buffer) Destroy() {
	if b.raw != nil {
		b.dev.device.DestroyBuffer(b.raw)
		b.raw = nil
	}
}

type texture struct {
	dev    *Device
	raw    hal.Texture
	view   hal.TextureView
	label  string
	width  uint32
	height uint32
	mips   uint32
	format gfx.Format
}

func (t *texture) Width() uint32      { return t.width }
func (t *texture) Height() uint32     { return t.height }
func (t *texture) MipLevels() uint32  { return t.mips }
func (t *texture) Format() gfx.Format { return t.format }

func (t *texture) Destroy() {
	if t.view != nil {
		t.dev.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.raw != nil {
		t.dev.device.DestroyTexture(t.raw)
		t.raw = nil
	}
}

// heapSlot is one descriptor. Its bind group is built on first use against
// the layout of the table that references it.
type heapSlot struct {
	tex    *texture
	buf    *buffer
	offset uint64
	size   uint64

	bg       hal.BindGroup
	bgLayout hal.BindGroupLayout
}

type descriptorHeap struct {
	dev   *Device
	label string
	slots []heapSlot
}

func (h *descriptorHeap) Len() int { return len(h.slots) }

func (h *descriptorHeap) slot(i int) (*heapSlot, error) {
	if i < 0 || i >= len(h.slots) {
		return nil, fmt.Errorf("halgfx: descriptor slot %d out of range [0,%d)", i, len(h.slots))
	}
	return &h.slots[i], nil
}

func (h *descriptorHeap) CreateShaderResourceView(i int, tex gfx.Texture) error {
	s, err := h.slot(i)
	if err != nil {
		return err
	}
	t, ok := tex.(*texture)
	if !ok {
		return fmt.Errorf("halgfx: foreign texture %T", tex)
	}
	h.dev.retire(s.bg)
	*s = heapSlot{tex: t}
	return nil
}

func (h *descriptorHeap) CreateConstantBufferView(i int, buf gfx.Buffer, offset, size uint64) error {
	s, err := h.slot(i)
	if err != nil {
		return err
	}
	b, ok := buf.(*buffer)
	if !ok {
		return fmt.Errorf("halgfx: foreign buffer %T", buf)
	}
	if offset%256 != 0 || offset+size > b.size {
		return fmt.Errorf("halgfx: constant buffer view [%d,+%d) invalid for %q", offset, size, b.label)
	}
	h.dev.retire(s.bg)
	*s = heapSlot{buf: b, offset: offset, size: size}
	return nil
}

func (h *descriptorHeap) ClearSlot(i int) {
	if s, err := h.slot(i); err == nil {
		h.dev.retire(s.bg)
		*s = heapSlot{}
	}
}

// bindGroup returns the bind group of slot i for the given root parameter.
func (h *descriptorHeap) bindGroup(i int, rs *rootSignature, param int) (hal.BindGroup, error) {
	s, err := h.slot(i)
	if err != nil {
		return nil, err
	}
	if param < 0 || param >= len(rs.groups) {
		return nil, fmt.Errorf("halgfx: root parameter %d out of range", param)
	}
	layout := rs.groups[param]
	if s.bg != nil && s.bgLayout == layout {
		return s.bg, nil
	}

	var entries []gputypes.BindGroupEntry
	switch {
	case s.tex != nil:
		entries = append(entries, gputypes.BindGroupEntry{Binding: 0, Resource: gputypes.TextureViewBinding{
			TextureView: gputypes.TextureViewHandle(s.tex.view.NativeHandle()),
		}})
		if param == rs.samplerParam {
			entries = append(entries, gputypes.BindGroupEntry{Binding: 1, Resource: gputypes.SamplerBinding{
				Sampler: gputypes.SamplerHandle(rs.sampler.NativeHandle()),
			}})
		}
	case s.buf != nil:
		entries = append(entries, gputypes.BindGroupEntry{Binding: 0, Resource: gputypes.BufferBinding{
			Buffer: s.buf.raw.NativeHandle(), Offset: s.offset, Size: s.size,
		}})
	default:
		return nil, fmt.Errorf("halgfx: descriptor slot %d is empty", i)
	}

	bg, err := h.dev.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   fmt.Sprintf("%s[%d]", h.label, i),
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("halgfx: bind group for slot %d: %w", i, err)
	}
	h.dev.retire(s.bg)
	s.bg, s.bgLayout = bg, layout
	return bg, nil
}

func (h *descriptorHeap) Destroy() {
	for i := range h.slots {
		h.dev.retire(h.slots[i].bg)
		h.slots[i] = heapSlot{}
	}
}

type rootSignature struct {
	dev          *Device
	params       []gfx.RootParameter
	groups       []hal.BindGroupLayout
	layout       hal.PipelineLayout
	sampler      hal.Sampler
	samplerParam int
}

func (r *rootSignature) NumParameters() int { return len(r.params) }

func (r *rootSignature) Destroy() {
	if r.layout != nil {
		r.dev.device.DestroyPipelineLayout(r.layout)
		r.layout = nil
	}
	if r.sampler != nil {
		r.dev.device.DestroySampler(r.sampler)
		r.sampler = nil
	}
	for _, g := range r.groups {
		r.dev.device.DestroyBindGroupLayout(g)
	}
	r.groups = nil
}

type shaderBlob struct {
	dev    *Device
	module hal.ShaderModule
	stage  gfx.ShaderStage
	code   []byte
}

func (s *shaderBlob) Stage() gfx.ShaderStage { return s.stage }
func (s *shaderBlob) Bytecode() []byte       { return s.code }

func (s *shaderBlob) Destroy() {
	if s.module != nil {
		s.dev.device.DestroyShaderModule(s.module)
		s.module = nil
	}
}

type pipelineState struct {
	dev      *Device
	raw      hal.RenderPipeline
	topology gfx.Topology
}

func (p *pipelineState) Topology() gfx.Topology { return p.topology }

func (p *pipelineState) Destroy() {
	if p.raw != nil {
		p.dev.device.DestroyRenderPipeline(p.raw)
		p.raw = nil
	}
}

// fence tracks completion on the CPU side: hal reports completion only
// through Wait.
type fence struct {
	dev       *Device
	raw       hal.Fence
	completed uint64
	submitted uint64
}

func (f *fence) Completed() uint64 {
	f.dev.mu.Lock()
	defer f.dev.mu.Unlock()
	return f.completed
}

func (f *fence) Destroy() {
	if f.raw != nil {
		f.dev.device.DestroyFence(f.raw)
		f.raw = nil
	}
}

// swapChain is an offscreen ring of render-target textures.
type swapChain struct {
	dev     *Device
	surface gfx.Surface
	format  gfx.Format
	buffers []*texture
	current int
}

func (s *swapChain) build(width, height uint32, count int) error {
	for i := 0; i < count; i++ {
		t, err := s.dev.CreateTexture(&gfx.TextureDesc{
			Label:     fmt.Sprintf("back_buffer_%d", i),
			Width:     width,
			Height:    height,
			MipLevels: 1,
			Format:    s.format,
			Usage:     gfx.TextureUsageRenderTarget | gfx.TextureUsageCopySrc,
		})
		if err != nil {
			s.release()
			return err
		}
		s.buffers = append(s.buffers, t.(*texture))
	}
	s.current = 0
	return nil
}

func (s *swapChain) release() {
	for _, b := range s.buffers {
		b.Destroy()
	}
	s.buffers = s.buffers[:0]
}

func (s *swapChain) BufferCount() int         { return len(s.buffers) }
func (s *swapChain) CurrentIndex() int        { return s.current }
func (s *swapChain) Buffer(i int) gfx.Texture { return s.buffers[i] }

func (s *swapChain) Present() error {
	if p, ok := s.surface.(gfx.Presenter); ok {
		if err := p.PresentFrame(s.buffers[s.current]); err != nil {
			return fmt.Errorf("halgfx: present: %w", err)
		}
	}
	s.current = (s.current + 1) % len(s.buffers)
	return nil
}

func (s *swapChain) Resize(width, height uint32) error {
	count := len(s.buffers)
	s.release()
	return s.build(width, height, count)
}

func (s *swapChain) Destroy() { s.release() }
