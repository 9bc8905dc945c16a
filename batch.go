package rlgl

import (
	"fmt"

	"github.com/gogpu/rlgl/gfx"
	"github.com/gogpu/rlgl/internal/pool"
)

// DrawMode is the primitive type of a Begin/End block.
type DrawMode uint8

const (
	Lines DrawMode = iota + 1
	Triangles
	Quads
)

func (m DrawMode) String() string {
	switch m {
	case Lines:
		return "lines"
	case Triangles:
		return "triangles"
	case Quads:
		return "quads"
	default:
		return fmt.Sprintf("DrawMode(%d)", m)
	}
}

// verticesPerPrimitive returns 2, 3 or 4.
func (m DrawMode) verticesPerPrimitive() int {
	switch m {
	case Lines:
		return 2
	case Triangles:
		return 3
	default:
		return 4
	}
}

// 2D vertices start at the far plane of the default projection and move
// toward the near plane by depthStep per End, stopping at maxDepth.
const (
	initialDepth = -1.0
	maxDepth     = 0.0
	depthStep    = 1.0 / 20000
)

// DrawCall is a run of vertices drawn with one mode and one texture.
type DrawCall struct {
	Mode        DrawMode
	VertexCount int
	// VertexAlignment pads the call so the next one starts on a multiple
	// of 4 vertices.
	VertexAlignment int
	TextureID       TextureID
}

// alignment returns the padding that brings n up to a multiple of 4.
func alignment(n int) int { return (4 - n%4) % 4 }

// RenderBatch accumulates vertices and draw calls between flushes. Its
// render buffers are used round-robin, one per flush.
type RenderBatch struct {
	ids     []pool.ID
	buffers []*renderBuffer
	current int

	draws       []DrawCall
	drawCounter int

	vertexCounter int
	currentDepth  float32
}

func (b *RenderBatch) currentDraw() *DrawCall { return &b.draws[b.drawCounter-1] }

// capacity is the vertex bound shared by all render buffers.
func (b *RenderBatch) capacity() int {
	if len(b.buffers) == 0 {
		return 0
	}
	return b.buffers[0].capacity()
}

func (b *RenderBatch) reset(tex TextureID) {
	for i := range b.draws {
		b.draws[i] = DrawCall{Mode: Quads, TextureID: tex}
	}
	b.drawCounter = 1
	b.vertexCounter = 0
	b.currentDepth = initialDepth
}

// DrawCalls returns a copy of the draw calls accumulated since the last
// flush.
func (b *RenderBatch) DrawCalls() []DrawCall {
	return append([]DrawCall(nil), b.draws[:b.drawCounter]...)
}

// VertexCount returns the vertices accumulated since the last flush,
// including alignment padding.
func (b *RenderBatch) VertexCount() int { return b.vertexCounter }

// Elements returns the number of quads one render buffer holds.
func (b *RenderBatch) Elements() int {
	if len(b.buffers) == 0 {
		return 0
	}
	return b.buffers[0].elements
}

// BufferCount returns the number of render buffers.
func (b *RenderBatch) BufferCount() int { return len(b.buffers) }

// LoadRenderBatch creates a batch of numBuffers render buffers holding
// elements quads each.
func (c *RenderContext) LoadRenderBatch(numBuffers, elements int) (*RenderBatch, error) {
	b, err := c.loadRenderBatch(numBuffers, elements)
	if err != nil {
		c.log.Error("rlgl: load render batch failed", "buffers", numBuffers, "elements", elements, "err", err)
		return nil, fmt.Errorf("load render batch: %w", err)
	}
	return b, nil
}

func (c *RenderContext) loadRenderBatch(numBuffers, elements int) (*RenderBatch, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if numBuffers < 1 || elements < 1 {
		return nil, fmt.Errorf("%w: %d buffers of %d elements", ErrInvalidSize, numBuffers, elements)
	}
	b := &RenderBatch{draws: make([]DrawCall, c.cfg.Batch.DrawCalls)}
	for i := 0; i < numBuffers; i++ {
		rb, err := c.newRenderBuffer(elements)
		if err == nil {
			var id pool.ID
			if id, err = c.renderBuffers.Add(rb); err == nil {
				b.ids = append(b.ids, id)
				b.buffers = append(b.buffers, rb)
				continue
			}
			c.retire(rb.destroy)
		}
		c.releaseBatchBuffers(b)
		return nil, fmt.Errorf("render buffer %d: %w", i, err)
	}
	b.reset(c.defaultTexture)
	c.log.Debug("rlgl: render batch loaded", "buffers", numBuffers, "elements", elements)
	return b, nil
}

// releaseBatchBuffers removes the batch's render buffers from the pool and
// destroys them once the GPU is done with them.
func (c *RenderContext) releaseBatchBuffers(b *RenderBatch) {
	for i, id := range b.ids {
		if _, err := c.renderBuffers.Remove(id); err == nil {
			c.retire(b.buffers[i].destroy)
		}
	}
	b.ids, b.buffers = nil, nil
}

// UnloadRenderBatch releases a batch loaded with LoadRenderBatch. Pending
// vertices are discarded. Unloading the active batch activates the
// default batch.
func (c *RenderContext) UnloadRenderBatch(b *RenderBatch) {
	if c.closed || b == nil {
		return
	}
	if b == c.defaultBatch {
		c.log.Warn("rlgl: refusing to unload the default render batch")
		return
	}
	if b == c.batch {
		b.vertexCounter = 0
		c.SetRenderBatchActive(nil)
	}
	c.releaseBatchBuffers(b)
}

// SetRenderBatchActive flushes the active batch and makes b active. A nil
// batch selects the default batch.
func (c *RenderContext) SetRenderBatchActive(b *RenderBatch) {
	if c.closed {
		return
	}
	c.DrawRenderBatch(c.batch)
	if b == nil || len(b.buffers) == 0 {
		b = c.defaultBatch
	}
	c.batch = b
}

// DrawRenderBatchActive flushes the active batch.
func (c *RenderContext) DrawRenderBatchActive() {
	c.DrawRenderBatch(c.batch)
}

// CheckRenderBatchLimit flushes the active batch when n more vertices
// would reach its capacity, keeping the current mode and texture. It
// reports whether a flush happened.
func (c *RenderContext) CheckRenderBatchLimit(n int) bool {
	b := c.batch
	if c.closed || b == nil || b.vertexCounter+n < b.capacity() {
		return false
	}
	c.flushCarry()
	return true
}

// flushCarry flushes the active batch and reopens its first draw call with
// the mode and texture of the call that was current.
func (c *RenderContext) flushCarry() {
	b := c.batch
	last := *b.currentDraw()
	c.DrawRenderBatch(b)
	d := b.currentDraw()
	d.Mode, d.TextureID = last.Mode, last.TextureID
}

// DrawRenderBatch uploads the batch's pending vertices, records its draw
// calls into the frame and resets it.
func (c *RenderContext) DrawRenderBatch(b *RenderBatch) {
	if c.closed || b == nil || len(b.buffers) == 0 {
		return
	}
	if b.vertexCounter > 0 {
		if err := c.flush(b); err != nil {
			c.log.Error("rlgl: draw render batch failed", "vertices", b.vertexCounter, "err", err)
		}
	}
	b.reset(c.defaultTexture)
	b.current = (b.current + 1) % len(b.buffers)
}

func (c *RenderContext) flush(b *RenderBatch) error {
	rb := b.buffers[b.current]
	if rb.segment == c.segment || c.cbCursor >= c.cfg.ConstantSlots {
		if err := c.submitPartial(); err != nil {
			return err
		}
	}

	var err error
	if c.scratch, err = rb.upload(c.list, b.vertexCounter, c.scratch); err != nil {
		return err
	}
	rb.segment = c.segment

	mvp := c.matrices.MVP().Float32()
	c.scratch = appendFloats(c.scratch[:0], mvp[:])
	// #nosec G115 -- cursor is bounded by ConstantSlots
	if err := c.constants.Write(uint64(c.cbCursor)*c.cbRegion, c.scratch); err != nil {
		return fmt.Errorf("write mvp: %w", err)
	}
	cbSlot := c.cfg.MaxTextures + c.cbCursor
	c.cbCursor++

	list := c.list
	list.SetRenderTargets(c.backBuffer(), c.depth)
	list.SetViewport(c.viewport)
	list.SetScissorRect(gfx.Rect{Width: uint32(c.width), Height: uint32(c.height)})
	list.SetGraphicsRootSignature(c.rootSig)
	list.SetDescriptorHeap(c.heap)
	list.SetGraphicsRootDescriptorTable(paramConstants, cbSlot)
	list.SetVertexBuffers(0, rb.views()...)
	list.SetIndexBuffer(rb.indexView)

	var bound gfx.PipelineState
	offset := 0
	for _, d := range b.draws[:b.drawCounter] {
		if d.VertexCount > 0 {
			t, _ := c.resolveTexture(d.TextureID)
			list.SetGraphicsRootDescriptorTable(paramTexture, t.slot)
			if ps := c.pipelineFor(d.Mode); ps != bound {
				list.SetPipelineState(ps)
				bound = ps
			}
			// #nosec G115 -- counts are bounded by the batch capacity
			if d.Mode == Quads {
				list.DrawIndexedInstanced(uint32(d.VertexCount/4*6), 1, uint32(offset/4*6), 0, 0)
			} else {
				list.DrawInstanced(uint32(d.VertexCount), 1, uint32(offset), 0)
			}
			c.frameStats.DrawCalls++
		}
		offset += d.VertexCount + d.VertexAlignment
	}
	c.frameStats.Flushes++
	c.frameStats.Vertices += b.vertexCounter
	return nil
}
