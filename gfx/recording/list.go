package recording

import (
	"fmt"

	"github.com/gogpu/rlgl/gfx"
)

// CommandList records commands between Reset and Close. Submitting a list
// executes its copies and clears and validates resource states.
type CommandList struct {
	dev       *Device
	label     string
	open      bool
	cmds      []Command
	destroyed bool

	// execution state
	rt, ds   *Texture
	heap     *DescriptorHeap
	rootSig  gfx.RootSignature
	pipeline gfx.PipelineState
	vbs      map[uint32]gfx.VertexBufferView
	ib       *gfx.IndexBufferView
}

var _ gfx.CommandList = (*CommandList)(nil)

// Label returns the list label.
func (l *CommandList) Label() string { return l.label }

// Recorded returns the commands recorded since the last Reset.
func (l *CommandList) Recorded() []Command { return l.cmds }

// Reset implements gfx.CommandList.
func (l *CommandList) Reset() error {
	if l.destroyed {
		return ErrDestroyed
	}
	if l.open {
		return fmt.Errorf("recording: reset of open command list %q", l.label)
	}
	l.cmds = l.cmds[:0]
	l.open = true
	return nil
}

// Close implements gfx.CommandList.
func (l *CommandList) Close() error {
	if !l.open {
		return ErrNotRecording
	}
	l.open = false
	return nil
}

func (l *CommandList) record(c Command) {
	if !l.open {
		l.dev.report(gfx.SeverityError, "%s recorded into closed command list %q", c.Type(), l.label)
		return
	}
	l.cmds = append(l.cmds, c)
}

func (l *CommandList) ResourceBarrier(barriers ...gfx.Barrier) {
	l.record(Barrier{Barriers: append([]gfx.Barrier(nil), barriers...)})
}

func (l *CommandList) CopyBufferRegion(dst gfx.Buffer, dstOffset uint64, src gfx.Buffer, srcOffset, size uint64) {
	l.record(CopyBuffer{Dst: dst, DstOffset: dstOffset, Src: src, SrcOffset: srcOffset, Size: size})
}

func (l *CommandList) CopyBufferToTexture(dst gfx.Texture, src gfx.Buffer, fp gfx.Footprint) {
	l.record(CopyBufferToTexture{Dst: dst, Src: src, Footprint: fp})
}

func (l *CommandList) CopyTextureToBuffer(dst gfx.Buffer, src gfx.Texture, fp gfx.Footprint) {
	l.record(CopyTextureToBuffer{Dst: dst, Src: src, Footprint: fp})
}

func (l *CommandList) SetRenderTargets(rt, ds gfx.Texture) {
	l.record(SetRenderTargets{RT: rt, DS: ds})
}

func (l *CommandList) ClearRenderTarget(rgba [4]float32) {
	l.record(ClearRenderTarget{Color: rgba})
}

func (l *CommandList) ClearDepth(depth float32) { l.record(ClearDepth{Depth: depth}) }

func (l *CommandList) SetViewport(vp gfx.Viewport) { l.record(SetViewport{Viewport: vp}) }

func (l *CommandList) SetScissorRect(r gfx.Rect) { l.record(SetScissorRect{Rect: r}) }

func (l *CommandList) SetGraphicsRootSignature(rs gfx.RootSignature) {
	l.record(SetRootSignature{RootSignature: rs})
}

func (l *CommandList) SetDescriptorHeap(heap gfx.DescriptorHeap) {
	l.record(SetDescriptorHeap{Heap: heap})
}

func (l *CommandList) SetGraphicsRootDescriptorTable(param, slot int) {
	l.record(SetDescriptorTable{Param: param, Slot: slot})
}

func (l *CommandList) SetPipelineState(ps gfx.PipelineState) {
	l.record(SetPipelineState{Pipeline: ps})
}

func (l *CommandList) SetVertexBuffers(startSlot uint32, views ...gfx.VertexBufferView) {
	l.record(SetVertexBuffers{StartSlot: startSlot, Views: append([]gfx.VertexBufferView(nil), views...)})
}

func (l *CommandList) SetIndexBuffer(view gfx.IndexBufferView) {
	l.record(SetIndexBuffer{View: view})
}

func (l *CommandList) DrawInstanced(vertexCount, instanceCount, startVertex, startInstance uint32) {
	l.record(Draw{VertexCount: vertexCount, InstanceCount: instanceCount,
		StartVertex: startVertex, StartInstance: startInstance})
}

func (l *CommandList) DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	l.record(DrawIndexed{IndexCount: indexCount, InstanceCount: instanceCount,
		StartIndex: startIndex, BaseVertex: baseVertex, StartInstance: startInstance})
}

// Destroy implements gfx.CommandList.
func (l *CommandList) Destroy() {
	if l.destroyed {
		return
	}
	l.destroyed = true
	l.dev.track("command list", -1)
}

// execute replays the recorded commands against the in-memory resources.
func (l *CommandList) execute() {
	l.rt, l.ds, l.heap, l.rootSig, l.pipeline, l.ib = nil, nil, nil, nil, nil, nil
	l.vbs = make(map[uint32]gfx.VertexBufferView)

	for _, c := range l.cmds {
		switch c := c.(type) {
		case Barrier:
			l.execBarrier(c)
		case CopyBuffer:
			l.execCopyBuffer(c)
		case CopyBufferToTexture:
			l.execCopyToTexture(c)
		case CopyTextureToBuffer:
			l.execCopyFromTexture(c)
		case SetRenderTargets:
			l.rt, _ = c.RT.(*Texture)
			l.ds, _ = c.DS.(*Texture)
		case ClearRenderTarget:
			l.execClear(c)
		case ClearDepth:
			if l.ds == nil {
				l.dev.report(gfx.SeverityError, "ClearDepth with no depth target bound")
			}
		case SetRootSignature:
			l.rootSig = c.RootSignature
		case SetDescriptorHeap:
			l.heap, _ = c.Heap.(*DescriptorHeap)
		case SetDescriptorTable:
			l.execDescriptorTable(c)
		case SetPipelineState:
			l.pipeline = c.Pipeline
		case SetVertexBuffers:
			for i, v := range c.Views {
				// #nosec G115 -- slot count is tiny
				l.vbs[c.StartSlot+uint32(i)] = v
			}
		case SetIndexBuffer:
			v := c.View
			l.ib = &v
		case Draw:
			l.validateDraw(false)
		case DrawIndexed:
			l.validateDraw(true)
		}
	}
}

func stateOf(r any) (*gfx.ResourceState, string) {
	switch r := r.(type) {
	case *Buffer:
		return &r.state, r.label
	case *Texture:
		return &r.state, r.label
	}
	return nil, ""
}

func (l *CommandList) execBarrier(c Barrier) {
	for _, b := range c.Barriers {
		var res any = b.Buffer
		if b.Texture != nil {
			res = b.Texture
		}
		st, label := stateOf(res)
		if st == nil {
			l.dev.report(gfx.SeverityError, "barrier on foreign resource %T", res)
			continue
		}
		if *st != b.Before {
			l.dev.report(gfx.SeverityWarning, "barrier on %q: resource is in %s, barrier expects %s",
				label, *st, b.Before)
		}
		*st = b.After
	}
}

func (l *CommandList) execCopyBuffer(c CopyBuffer) {
	dst, ok1 := c.Dst.(*Buffer)
	src, ok2 := c.Src.(*Buffer)
	if !ok1 || !ok2 {
		l.dev.report(gfx.SeverityError, "CopyBuffer with foreign buffers")
		return
	}
	if dst.heap == gfx.HeapDefault && dst.state != gfx.StateCopyDest {
		l.dev.report(gfx.SeverityWarning, "CopyBuffer into %q in state %s", dst.label, dst.state)
	}
	if c.SrcOffset+c.Size > src.Size() || c.DstOffset+c.Size > dst.Size() {
		l.dev.report(gfx.SeverityError, "CopyBuffer %q→%q out of range", src.label, dst.label)
		return
	}
	copy(dst.data[c.DstOffset:c.DstOffset+c.Size], src.data[c.SrcOffset:c.SrcOffset+c.Size])
}

func (l *CommandList) execCopyToTexture(c CopyBufferToTexture) {
	dst, ok1 := c.Dst.(*Texture)
	src, ok2 := c.Src.(*Buffer)
	if !ok1 || !ok2 {
		l.dev.report(gfx.SeverityError, "CopyBufferToTexture with foreign resources")
		return
	}
	if dst.state != gfx.StateCopyDest {
		l.dev.report(gfx.SeverityWarning, "CopyBufferToTexture into %q in state %s", dst.label, dst.state)
	}
	fp := c.Footprint
	if int(fp.MipLevel) >= len(dst.levels) {
		l.dev.report(gfx.SeverityError, "CopyBufferToTexture into missing mip %d of %q", fp.MipLevel, dst.label)
		return
	}
	lw, lh := dst.levelSize(fp.MipLevel)
	if fp.X+fp.Width > lw || fp.Y+fp.Height > lh {
		l.dev.report(gfx.SeverityError, "CopyBufferToTexture region exceeds mip %d of %q", fp.MipLevel, dst.label)
		return
	}
	level := dst.levels[fp.MipLevel]
	rowBytes := int(fp.Width) * 4
	for row := 0; row < int(fp.Height); row++ {
		s := int(fp.Offset) + row*int(fp.RowPitch)
		if s+rowBytes > len(src.data) {
			l.dev.report(gfx.SeverityError, "CopyBufferToTexture reads past %q", src.label)
			return
		}
		d := ((int(fp.Y)+row)*int(lw) + int(fp.X)) * 4
		copy(level[d:d+rowBytes], src.data[s:s+rowBytes])
	}
}

func (l *CommandList) execCopyFromTexture(c CopyTextureToBuffer) {
	dst, ok1 := c.Dst.(*Buffer)
	src, ok2 := c.Src.(*Texture)
	if !ok1 || !ok2 {
		l.dev.report(gfx.SeverityError, "CopyTextureToBuffer with foreign resources")
		return
	}
	if src.state != gfx.StateCopySource {
		l.dev.report(gfx.SeverityWarning, "CopyTextureToBuffer from %q in state %s", src.label, src.state)
	}
	fp := c.Footprint
	if int(fp.MipLevel) >= len(src.levels) {
		l.dev.report(gfx.SeverityError, "CopyTextureToBuffer from missing mip %d", fp.MipLevel)
		return
	}
	lw, _ := src.levelSize(fp.MipLevel)
	level := src.levels[fp.MipLevel]
	rowBytes := int(fp.Width) * 4
	for row := 0; row < int(fp.Height); row++ {
		d := int(fp.Offset) + row*int(fp.RowPitch)
		s := ((int(fp.Y)+row)*int(lw) + int(fp.X)) * 4
		if d+rowBytes > len(dst.data) || s+rowBytes > len(level) {
			l.dev.report(gfx.SeverityError, "CopyTextureToBuffer out of range")
			return
		}
		copy(dst.data[d:d+rowBytes], level[s:s+rowBytes])
	}
}

func unorm8(v float32) byte {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return byte(v*255 + 0.5)
}

func (l *CommandList) execClear(c ClearRenderTarget) {
	if l.rt == nil {
		l.dev.report(gfx.SeverityError, "ClearRenderTarget with no render target bound")
		return
	}
	if l.rt.state != gfx.StateRenderTarget {
		l.dev.report(gfx.SeverityWarning, "ClearRenderTarget on %q in state %s", l.rt.label, l.rt.state)
	}
	px := [4]byte{unorm8(c.Color[0]), unorm8(c.Color[1]), unorm8(c.Color[2]), unorm8(c.Color[3])}
	if l.rt.format == gfx.FormatBGRA8Unorm {
		px[0], px[2] = px[2], px[0]
	}
	level := l.rt.levels[0]
	for i := 0; i+4 <= len(level); i += 4 {
		copy(level[i:i+4], px[:])
	}
}

func (l *CommandList) execDescriptorTable(c SetDescriptorTable) {
	if l.heap == nil {
		l.dev.report(gfx.SeverityError, "descriptor table bound with no descriptor heap")
		return
	}
	if c.Slot < 0 || c.Slot >= len(l.heap.slots) || l.heap.slots[c.Slot].empty() {
		l.dev.report(gfx.SeverityError, "descriptor table %d points at empty slot %d", c.Param, c.Slot)
		return
	}
	if tex, ok := l.heap.slots[c.Slot].tex.(*Texture); ok && tex.state != gfx.StateShaderResource {
		l.dev.report(gfx.SeverityWarning, "texture %q sampled in state %s", tex.label, tex.state)
	}
}

func (l *CommandList) validateDraw(indexed bool) {
	switch {
	case l.pipeline == nil:
		l.dev.report(gfx.SeverityError, "draw with no pipeline state")
	case l.rootSig == nil:
		l.dev.report(gfx.SeverityError, "draw with no root signature")
	case l.rt == nil:
		l.dev.report(gfx.SeverityError, "draw with no render target")
	case l.rt.state != gfx.StateRenderTarget:
		l.dev.report(gfx.SeverityWarning, "draw into %q in state %s", l.rt.label, l.rt.state)
	case indexed && l.ib == nil:
		l.dev.report(gfx.SeverityError, "indexed draw with no index buffer")
	}
	for slot, v := range l.vbs {
		if b, ok := v.Buffer.(*Buffer); ok && b.heap == gfx.HeapDefault && b.state != gfx.StateVertexBuffer {
			l.dev.report(gfx.SeverityWarning, "vertex buffer slot %d (%q) in state %s", slot, b.label, b.state)
		}
	}
}
