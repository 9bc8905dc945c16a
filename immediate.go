package rlgl

import (
	"math"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/rlgl/internal/pool"
)

// Begin starts a block of vertices of the given mode. A mode change closes
// the current draw call and opens a new one bound to the current texture.
func (c *RenderContext) Begin(mode DrawMode) {
	if c.closed {
		return
	}
	if c.batch.currentDraw().Mode != mode {
		c.openDraw(mode, c.boundTexture)
	}
}

// End finishes a block. Later 2D vertices are placed slightly in front.
func (c *RenderContext) End() {
	if c.closed {
		return
	}
	c.batch.currentDepth = min(c.batch.currentDepth+depthStep, maxDepth)
}

// openDraw closes the current draw call, padding it to a quad boundary,
// and makes the next one current with the given mode and texture. A call
// with no vertices is reused in place.
func (c *RenderContext) openDraw(mode DrawMode, tex TextureID) {
	b := c.batch
	if d := b.currentDraw(); d.VertexCount > 0 {
		d.VertexAlignment = alignment(d.VertexCount)
		if !c.CheckRenderBatchLimit(d.VertexAlignment) {
			b.vertexCounter += d.VertexAlignment
			if b.drawCounter < len(b.draws) {
				b.drawCounter++
			} else {
				c.DrawRenderBatch(b)
			}
		}
	}
	*b.currentDraw() = DrawCall{Mode: mode, TextureID: tex}
}

// SetTexture binds a texture for the following vertices. Zero, or an id
// that is not loaded, binds the default texture.
func (c *RenderContext) SetTexture(id TextureID) {
	if c.closed {
		return
	}
	switch {
	case id == 0:
		id = c.defaultTexture
	case !c.textures.Contains(pool.ID(id)):
		c.log.Warn("rlgl: texture not loaded, using default texture", "id", id)
		id = c.defaultTexture
	}
	c.boundTexture = id

	b := c.batch
	if b.vertexCounter >= b.capacity() {
		c.flushCarry()
	}
	if d := b.currentDraw(); d.TextureID != id {
		c.openDraw(d.Mode, id)
	}
}

// Vertex3f emits a vertex with the current texcoord, normal and color.
func (c *RenderContext) Vertex3f(x, y, z float32) {
	if c.closed {
		return
	}
	p := f32.Vec3{x, y, z}
	if c.matrices.transformRequired {
		p = c.matrices.transform.TransformPoint(p)
	}

	b := c.batch
	d := b.currentDraw()
	n := d.Mode.verticesPerPrimitive()
	if (d.VertexCount%n == 0 && b.vertexCounter+n > b.capacity()) || b.vertexCounter >= b.capacity() {
		c.flushCarry()
		d = b.currentDraw()
	}

	rb := b.buffers[b.current]
	i := b.vertexCounter
	copy(rb.positions[i*3:i*3+3], p[:])
	copy(rb.texcoords[i*2:i*2+2], c.texcoord[:])
	copy(rb.normals[i*3:i*3+3], c.normal[:])
	copy(rb.colors[i*4:i*4+4], c.color[:])

	b.vertexCounter++
	d.VertexCount++
}

// Vertex2f emits a vertex at the batch's current depth.
func (c *RenderContext) Vertex2f(x, y float32) {
	if c.closed {
		return
	}
	c.Vertex3f(x, y, c.batch.currentDepth)
}

// Vertex2i emits a vertex at integer coordinates.
func (c *RenderContext) Vertex2i(x, y int32) {
	c.Vertex2f(float32(x), float32(y))
}

// TexCoord2f sets the texture coordinate of the following vertices, in
// texels of the current draw call's texture.
func (c *RenderContext) TexCoord2f(u, v float32) {
	if c.closed {
		return
	}
	w, h := float32(1), float32(1)
	if t, _ := c.resolveTexture(c.batch.currentDraw().TextureID); t != nil {
		w, h = float32(t.width), float32(t.height)
	}
	c.texcoord = [2]float32{u / w, v / h}
}

// Normal3f sets the normal of the following vertices. It is transformed
// and renormalized while a transform is active.
func (c *RenderContext) Normal3f(x, y, z float32) {
	n := f32.Vec3{x, y, z}
	if c.matrices.transformRequired {
		n = c.matrices.transform.TransformVector(n)
	}
	if l := math.Sqrt(float64(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])); l != 0 {
		inv := float32(1 / l)
		n = f32.Vec3{n[0] * inv, n[1] * inv, n[2] * inv}
	}
	c.normal = n
}

// Color4ub sets the color of the following vertices.
func (c *RenderContext) Color4ub(r, g, b, a uint8) {
	c.color = [4]uint8{r, g, b, a}
}

// Color4f sets the color from components in [0, 1].
func (c *RenderContext) Color4f(r, g, b, a float32) {
	c.Color4ub(unorm8(r), unorm8(g), unorm8(b), unorm8(a))
}

// Color3f sets an opaque color from components in [0, 1].
func (c *RenderContext) Color3f(r, g, b float32) {
	c.Color4f(r, g, b, 1)
}

func unorm8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
