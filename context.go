package rlgl

import (
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/rlgl/gfx"
	"github.com/gogpu/rlgl/internal/pool"
)

// Root parameter indices of the shared root signature.
const (
	paramTexture   = 0
	paramConstants = 1
)

// minConstantRegion is the smallest constant buffer region, large enough
// for one MVP matrix and aligned for every backend we know of.
const minConstantRegion = 256

// RenderContext is an immediate-mode renderer bound to one device and one
// swap chain. It owns every GPU object it creates and releases them in
// Close.
//
// A RenderContext is not safe for concurrent use.
type RenderContext struct {
	log *slog.Logger
	cfg Config

	dev       gfx.Device
	ownDevice bool
	surface   gfx.Surface

	width  int
	height int

	queue      gfx.CommandQueue
	list       gfx.CommandList
	heap       gfx.DescriptorHeap
	rootSig    gfx.RootSignature
	fence      gfx.Fence
	fenceValue uint64
	swapChain  gfx.SwapChain
	depth      gfx.Texture

	constants gfx.Buffer
	cbRegion  uint64
	cbCursor  int

	// segment counts command list submissions. Staging memory recorded in
	// the current segment must not be rewritten before it is submitted.
	segment uint64

	textures      *pool.Pool[*texture]
	renderBuffers *pool.Pool[*renderBuffer]
	shaders       *pool.Pool[*shader]
	pipelines     *pool.Pool[*pipeline]

	texSlots       []bool
	defaultTexture TextureID

	defaultTriangles PipelineID
	defaultLines     PipelineID
	activeTriangles  PipelineID
	activeLines      PipelineID

	defaultBatch *RenderBatch
	batch        *RenderBatch
	boundTexture TextureID

	matrices MatrixStack
	viewport gfx.Viewport

	cullNear   float64
	cullFar    float64
	clearColor [4]float32

	texcoord [2]float32
	normal   f32.Vec3
	color    [4]uint8

	scratch []byte

	// release holds the teardown of init-created objects, run in reverse.
	release []func()
	// retired holds destructors that run after the next fence wait.
	retired []func()

	frame      uint64
	frameStats FrameStats
	lastStats  FrameStats

	closed bool
}

var _ io.Closer = (*RenderContext)(nil)

// New opens a device, creates the swap chain and default resources and
// begins the first frame.
//
// Example:
//
//	rc, err := rlgl.New(rlgl.WithSurface(win))
//	if err != nil {
//		return err
//	}
//	defer rc.Close()
//
//	rc.Begin(rlgl.Quads)
//	rc.Vertex2f(10, 10)
//	...
//	rc.End()
//	err = rc.Present()
func New(opts ...Option) (*RenderContext, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &RenderContext{
		log:           o.logger,
		cfg:           o.config,
		surface:       o.surface,
		segment:       1,
		textures:      pool.New[*texture](o.config.MaxTextures),
		renderBuffers: pool.New[*renderBuffer](o.config.Batch.Buffers),
		shaders:       pool.New[*shader](4),
		pipelines:     pool.New[*pipeline](4),
		normal:        f32.Vec3{0, 0, 1},
		color:         [4]uint8{255, 255, 255, 255},
	}
	if c.log == nil {
		c.log = Logger()
	}
	if err := c.init(o); err != nil {
		c.log.Error("rlgl: initialization failed", "err", err)
		c.teardown()
		return nil, fmt.Errorf("rlgl: init: %w", err)
	}
	c.log.Info("rlgl: context ready",
		"width", c.width, "height", c.height,
		"batch_buffers", c.cfg.Batch.Buffers, "batch_elements", c.cfg.Batch.Elements)
	return c, nil
}

func (c *RenderContext) init(o options) error {
	if c.surface != nil {
		if w, h := c.surface.Size(); w > 0 && h > 0 {
			c.cfg.Width, c.cfg.Height = w, h
		}
	} else {
		c.surface = gfx.OffscreenSurface{Width: c.cfg.Width, Height: c.cfg.Height}
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	c.width, c.height = c.cfg.Width, c.cfg.Height
	c.cullNear, c.cullFar = c.cfg.CullNear, c.cfg.CullFar
	c.clearColor = c.cfg.ClearColor
	c.texSlots = make([]bool, c.cfg.MaxTextures)

	if err := c.openDevice(o); err != nil {
		return err
	}
	c.queue = c.dev.Queue()

	steps := []struct {
		name string
		fn   func() error
	}{
		{"command list", c.initCommandList},
		{"descriptor heap", c.initDescriptorHeap},
		{"root signature", c.initRootSignature},
		{"fence", c.initFence},
		{"swap chain", c.initSwapChain},
		{"depth buffer", c.initDepthBuffer},
		{"constant buffer", c.initConstantBuffer},
		{"default texture", c.initDefaultTexture},
		{"default shaders", c.loadDefaultPrograms},
		{"default batch", c.initDefaultBatch},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}

	c.matrices.init(c.log)
	c.resetProjection()
	c.beginFrame()
	return nil
}

func (c *RenderContext) openDevice(o options) error {
	if o.device != nil {
		c.dev = o.device
	} else {
		name := o.backend
		if name == "" {
			name = c.cfg.Backend
		}
		opts := gfx.OpenOptions{AllowSoftware: c.cfg.AllowSoftware}
		var err error
		if name != "" {
			c.dev, err = gfx.OpenByName(name, opts)
		} else {
			c.dev, err = gfx.Open(opts)
		}
		if err != nil {
			return fmt.Errorf("open device: %w", err)
		}
		c.ownDevice = true
	}
	info := c.dev.Info()
	c.log.Info("rlgl: device opened", "adapter", info.Name, "backend", info.Backend, "software", info.Software)
	return nil
}

// onClose pushes fn onto the teardown stack.
func (c *RenderContext) onClose(fn func()) {
	c.release = append(c.release, fn)
}

func (c *RenderContext) initCommandList() error {
	list, err := c.dev.CreateCommandList("frame")
	if err != nil {
		return err
	}
	c.list = list
	c.onClose(func() { c.list.Destroy() })
	return c.list.Reset()
}

func (c *RenderContext) initDescriptorHeap() error {
	heap, err := c.dev.CreateDescriptorHeap(&gfx.DescriptorHeapDesc{
		Label:          "descriptors",
		NumDescriptors: c.cfg.MaxTextures + c.cfg.ConstantSlots,
		ShaderVisible:  true,
	})
	if err != nil {
		return err
	}
	c.heap = heap
	c.onClose(func() { c.heap.Destroy() })
	return nil
}

func (c *RenderContext) initRootSignature() error {
	rs, err := c.dev.CreateRootSignature(&gfx.RootSignatureDesc{
		Label: "rlgl",
		Parameters: []gfx.RootParameter{
			paramTexture:   {Range: gfx.RangeSRV, Visibility: gfx.VisibilityPixel},
			paramConstants: {Range: gfx.RangeCBV, Visibility: gfx.VisibilityVertex},
		},
		StaticSamplers: []gfx.StaticSampler{{Filter: gfx.FilterPoint, Address: gfx.AddressBorder}},
	})
	if err != nil {
		return err
	}
	c.rootSig = rs
	c.onClose(func() { c.rootSig.Destroy() })
	return nil
}

func (c *RenderContext) initFence() error {
	f, err := c.dev.CreateFence(0)
	if err != nil {
		return err
	}
	c.fence = f
	c.onClose(func() { c.fence.Destroy() })
	return nil
}

func (c *RenderContext) initSwapChain() error {
	// #nosec G115 -- size validated positive
	sc, err := c.dev.CreateSwapChain(&gfx.SwapChainDesc{
		Surface:     c.surface,
		Width:       uint32(c.width),
		Height:      uint32(c.height),
		BufferCount: c.cfg.BackBuffers,
		Format:      gfx.FormatRGBA8Unorm,
	})
	if err != nil {
		return err
	}
	c.swapChain = sc
	c.onClose(func() { c.swapChain.Destroy() })
	return nil
}

func (c *RenderContext) createDepthTexture() (gfx.Texture, error) {
	// #nosec G115 -- size validated positive
	return c.dev.CreateTexture(&gfx.TextureDesc{
		Label:        "depth",
		Width:        uint32(c.width),
		Height:       uint32(c.height),
		MipLevels:    1,
		Format:       gfx.FormatDepth32Float,
		Usage:        gfx.TextureUsageDepthStencil,
		InitialState: gfx.StateDepthWrite,
	})
}

func (c *RenderContext) initDepthBuffer() error {
	depth, err := c.createDepthTexture()
	if err != nil {
		return err
	}
	c.depth = depth
	c.onClose(func() { c.depth.Destroy() })
	return nil
}

// initConstantBuffer creates one MVP region per constant slot, each viewed
// by a descriptor after the texture slots.
func (c *RenderContext) initConstantBuffer() error {
	c.cbRegion = max(minConstantRegion, c.dev.Limits().ConstantBufferAlignment)
	// #nosec G115 -- slot count validated positive
	buf, err := c.dev.CreateBuffer(&gfx.BufferDesc{
		Label: "constants",
		Size:  c.cbRegion * uint64(c.cfg.ConstantSlots),
		Heap:  gfx.HeapUpload,
		Usage: gfx.BufferUsageConstant,
	})
	if err != nil {
		return err
	}
	c.constants = buf
	c.onClose(func() { c.constants.Destroy() })
	for i := 0; i < c.cfg.ConstantSlots; i++ {
		// #nosec G115 -- i is non-negative
		if err := c.heap.CreateConstantBufferView(c.cfg.MaxTextures+i, buf, uint64(i)*c.cbRegion, c.cbRegion); err != nil {
			return fmt.Errorf("view %d: %w", i, err)
		}
	}
	return nil
}

func (c *RenderContext) initDefaultTexture() error {
	id, err := c.LoadTexture([]byte{255, 255, 255, 255}, 1, 1, PixelFormatR8G8B8A8, 1)
	if err != nil {
		return err
	}
	c.defaultTexture = id
	c.boundTexture = id
	return nil
}

func (c *RenderContext) initDefaultBatch() error {
	b, err := c.LoadRenderBatch(c.cfg.Batch.Buffers, c.cfg.Batch.Elements)
	if err != nil {
		return err
	}
	c.defaultBatch = b
	c.batch = b
	return nil
}

// resetProjection restores the default 2D setup: a full-framebuffer
// viewport, a top-left origin orthographic projection and an identity
// modelview.
func (c *RenderContext) resetProjection() {
	c.viewport = gfx.Viewport{Width: float32(c.width), Height: float32(c.height), MaxDepth: 1}
	mode := c.matrices.Mode()
	c.matrices.SetMode(Projection)
	c.matrices.LoadIdentity()
	c.matrices.Ortho(0, float64(c.width), float64(c.height), 0, 0, 1)
	c.matrices.SetMode(ModelView)
	c.matrices.LoadIdentity()
	c.matrices.SetMode(mode)
}

func (c *RenderContext) backBuffer() gfx.Texture {
	return c.swapChain.Buffer(c.swapChain.CurrentIndex())
}

// retire defers fn until the GPU has finished the work recorded so far.
func (c *RenderContext) retire(fn func()) {
	c.retired = append(c.retired, fn)
}

func (c *RenderContext) runRetired() {
	fns := c.retired
	c.retired = nil
	for _, fn := range fns {
		fn()
	}
}

// Close waits for the GPU and releases every object the context created,
// then the device if New opened it. Close is idempotent.
func (c *RenderContext) Close() error {
	if c.closed {
		return nil
	}
	var err error
	if c.fence != nil {
		if err = c.dev.Wait(c.fence, c.fenceValue); err != nil {
			err = fmt.Errorf("rlgl: close: %w", err)
		}
	}
	c.teardown()
	c.log.Info("rlgl: context closed", "frames", c.frame)
	return err
}

// teardown releases pool resources, then init-created objects in reverse
// creation order, then the device.
func (c *RenderContext) teardown() {
	c.runRetired()
	c.shaders.Each(func(_ pool.ID, s *shader) bool {
		s.blob.Destroy()
		return true
	})
	c.shaders.Clear()
	c.pipelines.Each(func(_ pool.ID, p *pipeline) bool {
		p.ps.Destroy()
		return true
	})
	c.pipelines.Clear()
	c.textures.Each(func(_ pool.ID, t *texture) bool {
		t.destroy()
		return true
	})
	c.textures.Clear()
	c.renderBuffers.Each(func(_ pool.ID, rb *renderBuffer) bool {
		rb.destroy()
		return true
	})
	c.renderBuffers.Clear()

	for i := len(c.release) - 1; i >= 0; i-- {
		c.release[i]()
	}
	c.release = nil
	if c.ownDevice && c.dev != nil {
		c.dev.Destroy()
	}
	c.batch, c.defaultBatch = nil, nil
	c.closed = true
}

// Device returns the device the context renders with.
func (c *RenderContext) Device() gfx.Device { return c.dev }

// Config returns the validated configuration the context was created
// with. Width and Height reflect the size at creation.
func (c *RenderContext) Config() Config { return c.cfg }

// Width returns the framebuffer width.
func (c *RenderContext) Width() int { return c.width }

// Height returns the framebuffer height.
func (c *RenderContext) Height() int { return c.height }
