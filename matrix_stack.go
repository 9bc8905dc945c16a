package rlgl

import (
	"log/slog"
	"math"

	"github.com/gogpu/rlgl/gfx"
)

// MatrixMode selects which matrix the matrix operations modify.
type MatrixMode uint8

const (
	// ModelView targets the modelview matrix, or the transform matrix
	// while a push is active.
	ModelView MatrixMode = iota
	// Projection targets the projection matrix.
	Projection
)

func (m MatrixMode) String() string {
	if m == Projection {
		return "projection"
	}
	return "modelview"
}

// MatrixStack holds the modelview, projection and transform matrices and
// a bounded push/pop stack.
//
// While a push is active in ModelView mode the operations target the
// transform matrix instead, and vertices are transformed on the CPU as
// they are emitted.
type MatrixStack struct {
	log *slog.Logger

	modelview  Matrix
	projection Matrix
	transform  Matrix

	mode    MatrixMode
	current *Matrix

	stack [MaxMatrixStackDepth]Matrix
	depth int

	transformRequired bool
}

// NewMatrixStack returns a stack in ModelView mode with every matrix set
// to identity. A nil logger uses the package logger.
func NewMatrixStack(log *slog.Logger) *MatrixStack {
	s := &MatrixStack{}
	s.init(log)
	return s
}

func (s *MatrixStack) init(log *slog.Logger) {
	if log == nil {
		log = Logger()
	}
	*s = MatrixStack{
		log:        log,
		modelview:  Identity(),
		projection: Identity(),
		transform:  Identity(),
	}
	s.current = &s.modelview
}

// Mode returns the current matrix mode.
func (s *MatrixStack) Mode() MatrixMode { return s.mode }

// Depth returns the number of pushed matrices.
func (s *MatrixStack) Depth() int { return s.depth }

// TransformRequired reports whether emitted vertices go through the
// transform matrix.
func (s *MatrixStack) TransformRequired() bool { return s.transformRequired }

// SetMode retargets the current matrix.
func (s *MatrixStack) SetMode(mode MatrixMode) {
	if mode == Projection {
		s.current = &s.projection
	} else {
		s.current = &s.modelview
	}
	s.mode = mode
}

// Push saves the current matrix. Overflowing the stack is logged and the
// push is ignored.
func (s *MatrixStack) Push() {
	if s.depth >= MaxMatrixStackDepth {
		s.log.Error("rlgl: matrix stack overflow", "max", MaxMatrixStackDepth)
		return
	}
	if s.mode == ModelView {
		s.transformRequired = true
		s.current = &s.transform
	}
	s.stack[s.depth] = *s.current
	s.depth++
}

// Pop restores the last pushed matrix.
func (s *MatrixStack) Pop() {
	if s.depth == 0 {
		s.log.Warn("rlgl: matrix stack underflow")
		return
	}
	s.depth--
	*s.current = s.stack[s.depth]
	if s.depth == 0 && s.mode == ModelView {
		s.current = &s.modelview
		s.transformRequired = false
	}
}

// LoadIdentity resets the current matrix.
func (s *MatrixStack) LoadIdentity() { *s.current = Identity() }

// Translate applies a translation before the current transform.
func (s *MatrixStack) Translate(x, y, z float32) {
	*s.current = Translate(x, y, z).Multiply(*s.current)
}

// Rotate applies a rotation of angle degrees around (x, y, z) before the
// current transform.
func (s *MatrixStack) Rotate(angle, x, y, z float32) {
	*s.current = Rotate(angle*math.Pi/180, x, y, z).Multiply(*s.current)
}

// Scale applies a scale before the current transform.
func (s *MatrixStack) Scale(x, y, z float32) {
	*s.current = Scale(x, y, z).Multiply(*s.current)
}

// Mult applies m before the current transform.
func (s *MatrixStack) Mult(m Matrix) {
	*s.current = m.Multiply(*s.current)
}

// Frustum multiplies the current matrix by a perspective projection.
func (s *MatrixStack) Frustum(left, right, bottom, top, near, far float64) {
	*s.current = s.current.Multiply(Frustum(left, right, bottom, top, near, far))
}

// Ortho multiplies the current matrix by an orthographic projection.
func (s *MatrixStack) Ortho(left, right, bottom, top, near, far float64) {
	*s.current = s.current.Multiply(Ortho(left, right, bottom, top, near, far))
}

// Current returns the matrix the operations currently target.
func (s *MatrixStack) Current() Matrix { return *s.current }

func (s *MatrixStack) ModelView() Matrix  { return s.modelview }
func (s *MatrixStack) Projection() Matrix { return s.projection }
func (s *MatrixStack) Transform() Matrix  { return s.transform }

func (s *MatrixStack) SetModelView(m Matrix)  { s.modelview = m }
func (s *MatrixStack) SetProjection(m Matrix) { s.projection = m }

// MVP returns the combined modelview-projection matrix.
func (s *MatrixStack) MVP() Matrix {
	return s.modelview.Multiply(s.projection)
}

// MatrixMode retargets the matrix operations.
func (c *RenderContext) MatrixMode(mode MatrixMode) { c.matrices.SetMode(mode) }

// PushMatrix saves the current matrix.
func (c *RenderContext) PushMatrix() { c.matrices.Push() }

// PopMatrix restores the last saved matrix.
func (c *RenderContext) PopMatrix() { c.matrices.Pop() }

// LoadIdentity resets the current matrix.
func (c *RenderContext) LoadIdentity() { c.matrices.LoadIdentity() }

// Translatef applies a translation to the current matrix.
func (c *RenderContext) Translatef(x, y, z float32) { c.matrices.Translate(x, y, z) }

// Rotatef applies a rotation of angle degrees around (x, y, z).
func (c *RenderContext) Rotatef(angle, x, y, z float32) { c.matrices.Rotate(angle, x, y, z) }

// Scalef applies a scale to the current matrix.
func (c *RenderContext) Scalef(x, y, z float32) { c.matrices.Scale(x, y, z) }

// MultMatrixf applies m to the current matrix.
func (c *RenderContext) MultMatrixf(m Matrix) { c.matrices.Mult(m) }

// Frustum multiplies the current matrix by a perspective projection.
func (c *RenderContext) Frustum(left, right, bottom, top, near, far float64) {
	c.matrices.Frustum(left, right, bottom, top, near, far)
}

// Ortho multiplies the current matrix by an orthographic projection.
func (c *RenderContext) Ortho(left, right, bottom, top, near, far float64) {
	c.matrices.Ortho(left, right, bottom, top, near, far)
}

func (c *RenderContext) MatrixModelView() Matrix  { return c.matrices.ModelView() }
func (c *RenderContext) MatrixProjection() Matrix { return c.matrices.Projection() }
func (c *RenderContext) MatrixTransform() Matrix  { return c.matrices.Transform() }

// SetMatrixModelView replaces the modelview matrix.
func (c *RenderContext) SetMatrixModelView(m Matrix) { c.matrices.SetModelView(m) }

// SetMatrixProjection replaces the projection matrix.
func (c *RenderContext) SetMatrixProjection(m Matrix) { c.matrices.SetProjection(m) }

// Matrices exposes the context's matrix stack.
func (c *RenderContext) Matrices() *MatrixStack { return &c.matrices }

// Viewport sets the render target area. Pending vertices are flushed
// with the previous viewport.
func (c *RenderContext) Viewport(x, y, width, height int) {
	c.DrawRenderBatchActive()
	c.viewport = gfx.Viewport{
		X:        float32(x),
		Y:        float32(y),
		Width:    float32(width),
		Height:   float32(height),
		MaxDepth: 1,
	}
}

// SetClipPlanes sets the near and far cull distances reported by
// CullDistanceNear and CullDistanceFar.
func (c *RenderContext) SetClipPlanes(near, far float64) {
	c.cullNear, c.cullFar = near, far
}

func (c *RenderContext) CullDistanceNear() float64 { return c.cullNear }
func (c *RenderContext) CullDistanceFar() float64  { return c.cullFar }
