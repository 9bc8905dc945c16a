// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package halgfx

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rlgl/gfx"
)

// commandList records into a hal command encoder. Pass-scoped state is
// kept on the list and re-applied whenever a new render pass opens.
type commandList struct {
	dev    *Device
	label  string
	enc    hal.CommandEncoder
	cmdBuf hal.CommandBuffer
	open   bool

	pass       hal.RenderPassEncoder
	rt, ds     *texture
	clearColor *[4]float32
	clearDepth *float32

	viewport *gfx.Viewport
	scissor  *gfx.Rect
	rootSig  *rootSignature
	heap     *descriptorHeap
	tables   map[int]int
	pipeline *pipelineState
	vbs      map[uint32]gfx.VertexBufferView
	ib       *gfx.IndexBufferView
}

var _ gfx.CommandList = (*commandList)(nil)

func (l *commandList) Reset() error {
	if l.open {
		return fmt.Errorf("halgfx: reset of open command list %q", l.label)
	}
	if l.cmdBuf != nil {
		l.dev.device.FreeCommandBuffer(l.cmdBuf)
		l.cmdBuf = nil
	}
	if err := l.enc.BeginEncoding(l.label); err != nil {
		return fmt.Errorf("halgfx: begin encoding %q: %w", l.label, err)
	}
	l.open = true
	l.rt, l.ds, l.clearColor, l.clearDepth = nil, nil, nil, nil
	l.viewport, l.scissor, l.rootSig, l.heap, l.pipeline, l.ib = nil, nil, nil, nil, nil, nil
	l.tables = make(map[int]int)
	l.vbs = make(map[uint32]gfx.VertexBufferView)
	return nil
}

func (l *commandList) Close() error {
	if !l.open {
		return fmt.Errorf("halgfx: close of closed command list %q", l.label)
	}
	l.endPass()
	cb, err := l.enc.EndEncoding()
	l.open = false
	if err != nil {
		return fmt.Errorf("halgfx: end encoding %q: %w", l.label, err)
	}
	l.cmdBuf = cb
	return nil
}

func (l *commandList) recording(what string) bool {
	if !l.open {
		l.dev.report(gfx.SeverityError, "%s recorded into closed command list %q", what, l.label)
	}
	return l.open
}

// endPass closes the open render pass. A pending clear with no pass to
// carry it gets a pass of its own, so it stays ordered before whatever is
// recorded next.
func (l *commandList) endPass() {
	if l.pass == nil && l.rt != nil && (l.clearColor != nil || l.clearDepth != nil) {
		l.beginPass()
	}
	l.closePass()
}

func (l *commandList) closePass() {
	if l.pass != nil {
		l.pass.End()
		l.pass = nil
	}
}

func (l *commandList) beginPass() bool {
	if l.pass != nil {
		return true
	}
	if l.rt == nil {
		l.dev.report(gfx.SeverityError, "render pass with no render target in %q", l.label)
		return false
	}
	color := hal.RenderPassColorAttachment{
		View:    l.rt.view,
		LoadOp:  gputypes.LoadOpLoad,
		StoreOp: gputypes.StoreOpStore,
	}
	if c := l.clearColor; c != nil {
		color.LoadOp = gputypes.LoadOpClear
		color.ClearValue = gputypes.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])}
	}
	desc := &hal.RenderPassDescriptor{
		Label:            l.label,
		ColorAttachments: []hal.RenderPassColorAttachment{color},
	}
	if l.ds != nil {
		depth := &hal.RenderPassDepthStencilAttachment{
			View:           l.ds.view,
			DepthLoadOp:    gputypes.LoadOpLoad,
			DepthStoreOp:   gputypes.StoreOpStore,
			StencilLoadOp:  gputypes.LoadOpLoad,
			StencilStoreOp: gputypes.StoreOpStore,
		}
		if l.clearDepth != nil {
			depth.DepthLoadOp = gputypes.LoadOpClear
			depth.DepthClearValue = *l.clearDepth
			depth.StencilLoadOp = gputypes.LoadOpClear
		}
		desc.DepthStencilAttachment = depth
	}
	l.clearColor, l.clearDepth = nil, nil
	l.pass = l.enc.BeginRenderPass(desc)

	if l.viewport != nil {
		l.applyViewport()
	}
	if l.scissor != nil {
		l.pass.SetScissorRect(l.scissor.X, l.scissor.Y, l.scissor.Width, l.scissor.Height)
	}
	if l.pipeline != nil {
		l.pass.SetPipeline(l.pipeline.raw)
	}
	for param, slot := range l.tables {
		l.applyTable(param, slot)
	}
	for slot, v := range l.vbs {
		l.pass.SetVertexBuffer(slot, v.Buffer.(*buffer).raw, v.Offset)
	}
	if l.ib != nil {
		l.applyIndexBuffer()
	}
	return true
}

func (l *commandList) applyViewport() {
	vp := l.viewport
	l.pass.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, vp.MinDepth, vp.MaxDepth)
}

func (l *commandList) applyTable(param, slot int) {
	if l.heap == nil || l.rootSig == nil {
		l.dev.report(gfx.SeverityError, "descriptor table %d bound without heap or root signature", param)
		return
	}
	bg, err := l.heap.bindGroup(slot, l.rootSig, param)
	if err != nil {
		l.dev.report(gfx.SeverityError, "%v", err)
		return
	}
	// #nosec G115 -- root parameter count is tiny
	l.pass.SetBindGroup(uint32(param), bg, nil)
}

func (l *commandList) applyIndexBuffer() {
	b := l.ib.Buffer.(*buffer)
	if l.ib.Format == gfx.IndexUint32 {
		l.pass.SetIndexBuffer(b.raw, gputypes.IndexFormatUint32, l.ib.Offset)
	} else {
		l.pass.SetIndexBuffer(b.raw, gputypes.IndexFormatUint16, l.ib.Offset)
	}
}

func (l *commandList) ResourceBarrier(barriers ...gfx.Barrier) {
	if !l.recording("ResourceBarrier") {
		return
	}
	l.endPass()
	var tb []hal.TextureBarrier
	for _, b := range barriers {
		// Only texture transitions are forwarded to hal.
		t, ok := b.Texture.(*texture)
		if !ok || t == nil {
			continue
		}
		tb = append(tb, hal.TextureBarrier{
			Texture: t.raw,
			Usage: hal.TextureUsageTransition{
				OldUsage: stateUsage(b.Before),
				NewUsage: stateUsage(b.After),
			},
		})
	}
	if len(tb) > 0 {
		l.enc.TransitionTextures(tb)
	}
}

func (l *commandList) CopyBufferRegion(dst gfx.Buffer, dstOffset uint64, src gfx.Buffer, srcOffset, size uint64) {
	if !l.recording("CopyBufferRegion") {
		return
	}
	l.endPass()
	l.enc.CopyBufferToBuffer(src.(*buffer).raw, dst.(*buffer).raw, []hal.BufferCopy{{
		SrcOffset: srcOffset,
		DstOffset: dstOffset,
		Size:      (size + 3) &^ 3,
	}})
}

func (l *commandList) CopyBufferToTexture(dst gfx.Texture, src gfx.Buffer, fp gfx.Footprint) {
	if !l.recording("CopyBufferToTexture") {
		return
	}
	l.endPass()
	t := dst.(*texture)
	l.enc.CopyBufferToTexture(src.(*buffer).raw, t.raw, []hal.BufferTextureCopy{bufferTextureCopy(t, fp)})
}

func (l *commandList) CopyTextureToBuffer(dst gfx.Buffer, src gfx.Texture, fp gfx.Footprint) {
	if !l.recording("CopyTextureToBuffer") {
		return
	}
	l.endPass()
	t := src.(*texture)
	l.enc.CopyTextureToBuffer(t.raw, dst.(*buffer).raw, []hal.BufferTextureCopy{bufferTextureCopy(t, fp)})
}

func bufferTextureCopy(t *texture, fp gfx.Footprint) hal.BufferTextureCopy {
	return hal.BufferTextureCopy{
		BufferLayout: hal.ImageDataLayout{Offset: fp.Offset, BytesPerRow: fp.RowPitch, RowsPerImage: fp.Height},
		TextureBase: hal.ImageCopyTexture{
			Texture:  t.raw,
			MipLevel: fp.MipLevel,
			Origin:   hal.Origin3D{X: fp.X, Y: fp.Y, Z: 0},
			Aspect:   gputypes.TextureAspectAll,
		},
		Size: hal.Extent3D{Width: fp.Width, Height: fp.Height, DepthOrArrayLayers: 1},
	}
}

func (l *commandList) SetRenderTargets(rt, ds gfx.Texture) {
	if !l.recording("SetRenderTargets") {
		return
	}
	l.endPass()
	l.rt, _ = rt.(*texture)
	l.ds, _ = ds.(*texture)
	l.clearColor, l.clearDepth = nil, nil
}

func (l *commandList) ClearRenderTarget(rgba [4]float32) {
	if !l.recording("ClearRenderTarget") {
		return
	}
	l.closePass()
	l.clearColor = &rgba
}

func (l *commandList) ClearDepth(depth float32) {
	if !l.recording("ClearDepth") {
		return
	}
	l.closePass()
	l.clearDepth = &depth
}

func (l *commandList) SetViewport(vp gfx.Viewport) {
	if !l.recording("SetViewport") {
		return
	}
	l.viewport = &vp
	if l.pass != nil {
		l.applyViewport()
	}
}

func (l *commandList) SetScissorRect(r gfx.Rect) {
	if !l.recording("SetScissorRect") {
		return
	}
	l.scissor = &r
	if l.pass != nil {
		l.pass.SetScissorRect(r.X, r.Y, r.Width, r.Height)
	}
}

func (l *commandList) SetGraphicsRootSignature(rs gfx.RootSignature) {
	if !l.recording("SetGraphicsRootSignature") {
		return
	}
	l.rootSig, _ = rs.(*rootSignature)
	clear(l.tables)
}

func (l *commandList) SetDescriptorHeap(heap gfx.DescriptorHeap) {
	if !l.recording("SetDescriptorHeap") {
		return
	}
	l.heap, _ = heap.(*descriptorHeap)
}

func (l *commandList) SetGraphicsRootDescriptorTable(param, slot int) {
	if !l.recording("SetGraphicsRootDescriptorTable") {
		return
	}
	l.tables[param] = slot
	if l.pass != nil {
		l.applyTable(param, slot)
	}
}

func (l *commandList) SetPipelineState(ps gfx.PipelineState) {
	if !l.recording("SetPipelineState") {
		return
	}
	l.pipeline, _ = ps.(*pipelineState)
	if l.pass != nil && l.pipeline != nil {
		l.pass.SetPipeline(l.pipeline.raw)
	}
}

func (l *commandList) SetVertexBuffers(startSlot uint32, views ...gfx.VertexBufferView) {
	if !l.recording("SetVertexBuffers") {
		return
	}
	for i, v := range views {
		// #nosec G115 -- slot count is tiny
		slot := startSlot + uint32(i)
		l.vbs[slot] = v
		if l.pass != nil {
			l.pass.SetVertexBuffer(slot, v.Buffer.(*buffer).raw, v.Offset)
		}
	}
}

func (l *commandList) SetIndexBuffer(view gfx.IndexBufferView) {
	if !l.recording("SetIndexBuffer") {
		return
	}
	l.ib = &view
	if l.pass != nil {
		l.applyIndexBuffer()
	}
}

func (l *commandList) DrawInstanced(vertexCount, instanceCount, startVertex, startInstance uint32) {
	if !l.recording("DrawInstanced") || !l.beginPass() {
		return
	}
	if l.pipeline == nil {
		l.dev.report(gfx.SeverityError, "draw with no pipeline state in %q", l.label)
		return
	}
	l.pass.Draw(vertexCount, instanceCount, startVertex, startInstance)
}

func (l *commandList) DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	if !l.recording("DrawIndexedInstanced") || !l.beginPass() {
		return
	}
	if l.pipeline == nil || l.ib == nil {
		l.dev.report(gfx.SeverityError, "indexed draw without pipeline or index buffer in %q", l.label)
		return
	}
	l.pass.DrawIndexed(indexCount, instanceCount, startIndex, baseVertex, startInstance)
}

func (l *commandList) Destroy() {
	if l.open {
		l.endPass()
		l.enc.DiscardEncoding()
		l.open = false
	}
	if l.cmdBuf != nil {
		l.dev.device.FreeCommandBuffer(l.cmdBuf)
		l.cmdBuf = nil
	}
}
