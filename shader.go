package rlgl

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/gogpu/rlgl/gfx"
	"github.com/gogpu/rlgl/internal/pool"
)

//go:embed shaders/default_vs.wgsl
var defaultVertexShader string

//go:embed shaders/default_fs.wgsl
var defaultFragmentShader string

// ShaderID identifies a compiled shader awaiting linking.
type ShaderID uint32

// PipelineID identifies a linked shader program.
type PipelineID uint32

// ShaderStage tags a compiled shader.
type ShaderStage uint8

const (
	VertexShader ShaderStage = iota + 1
	FragmentShader
)

func (s ShaderStage) String() string {
	switch s {
	case VertexShader:
		return "vertex"
	case FragmentShader:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderStage(%d)", s)
	}
}

func (s ShaderStage) gfx() gfx.ShaderStage {
	if s == FragmentShader {
		return gfx.StageFragment
	}
	return gfx.StageVertex
}

// Topology is the primitive class a pipeline rasterizes. Quads and
// triangles share the triangle pipeline.
type Topology uint8

const (
	TopologyTriangles Topology = iota
	TopologyLines
)

func (t Topology) String() string {
	if t == TopologyLines {
		return "lines"
	}
	return "triangles"
}

func (t Topology) gfx() gfx.Topology {
	if t == TopologyLines {
		return gfx.TopologyLine
	}
	return gfx.TopologyTriangle
}

type shader struct {
	blob  gfx.ShaderBlob
	stage ShaderStage
}

type pipeline struct {
	ps       gfx.PipelineState
	topology Topology
}

// CompileShader compiles source for one stage. The shader lives until it
// is linked by LoadShaderProgram or released with UnloadShader.
func (c *RenderContext) CompileShader(source string, stage ShaderStage) (ShaderID, error) {
	if c.closed {
		return 0, ErrClosed
	}
	if stage != VertexShader && stage != FragmentShader {
		return 0, fmt.Errorf("compile shader: %w: %v", ErrStageMismatch, stage)
	}
	blob, err := c.dev.CompileShader(stage.String(), source, stage.gfx())
	if err != nil {
		c.log.Error("rlgl: shader compilation failed", "stage", stage, "err", err)
		return 0, fmt.Errorf("compile %s shader: %w", stage, err)
	}
	id, err := c.shaders.Add(&shader{blob: blob, stage: stage})
	if err != nil {
		blob.Destroy()
		return 0, fmt.Errorf("compile %s shader: %w", stage, err)
	}
	c.log.Debug("rlgl: shader compiled", "id", id, "stage", stage)
	return ShaderID(id), nil
}

// UnloadShader releases a compiled shader that was never linked.
func (c *RenderContext) UnloadShader(id ShaderID) {
	if c.closed {
		return
	}
	s, err := c.shaders.Remove(pool.ID(id))
	if err != nil {
		c.log.Warn("rlgl: unload of unknown shader", "id", id, "err", err)
		return
	}
	s.blob.Destroy()
}

// LoadShaderProgram links a vertex and a fragment shader into a pipeline
// for the given topology. On success both shaders are released and their
// ids become stale. A stage mismatch fails without touching the shaders.
func (c *RenderContext) LoadShaderProgram(vs, fs ShaderID, topology Topology) (PipelineID, error) {
	id, err := c.loadShaderProgram(vs, fs, topology)
	if err != nil {
		c.log.Error("rlgl: shader program link failed", "vs", vs, "fs", fs, "topology", topology, "err", err)
		return 0, fmt.Errorf("load shader program: %w", err)
	}
	return id, nil
}

func (c *RenderContext) loadShaderProgram(vsID, fsID ShaderID, topology Topology) (PipelineID, error) {
	if c.closed {
		return 0, ErrClosed
	}
	vs, err := c.shaders.Get(pool.ID(vsID))
	if err != nil {
		return 0, fmt.Errorf("%w: vertex %d: %w", ErrUnknownShader, vsID, err)
	}
	fs, err := c.shaders.Get(pool.ID(fsID))
	if err != nil {
		return 0, fmt.Errorf("%w: fragment %d: %w", ErrUnknownShader, fsID, err)
	}
	if vs.stage != VertexShader || fs.stage != FragmentShader {
		return 0, fmt.Errorf("%w: got %s and %s shaders", ErrStageMismatch, vs.stage, fs.stage)
	}

	ps, err := c.dev.CreatePipelineState(&gfx.PipelineStateDesc{
		Label:         "pipeline_" + topology.String(),
		RootSignature: c.rootSig,
		VS:            vs.blob,
		FS:            fs.blob,
		InputLayout:   inputLayout,
		Topology:      topology.gfx(),
		RenderFormat:  c.swapChain.Buffer(0).Format(),
		DepthFormat:   c.depth.Format(),
		AlphaBlend:    true,
	})
	if err != nil {
		return 0, err
	}
	id, err := c.pipelines.Add(&pipeline{ps: ps, topology: topology})
	if err != nil {
		ps.Destroy()
		return 0, err
	}

	c.UnloadShader(vsID)
	c.UnloadShader(fsID)
	c.log.Debug("rlgl: shader program loaded", "id", id, "topology", topology)
	return PipelineID(id), nil
}

// LoadShaderCode compiles and links a program in one step.
func (c *RenderContext) LoadShaderCode(vsSource, fsSource string, topology Topology) (PipelineID, error) {
	vs, err := c.CompileShader(vsSource, VertexShader)
	if err != nil {
		return 0, err
	}
	fs, err := c.CompileShader(fsSource, FragmentShader)
	if err != nil {
		c.UnloadShader(vs)
		return 0, err
	}
	id, err := c.LoadShaderProgram(vs, fs, topology)
	if err != nil {
		c.UnloadShader(vs)
		c.UnloadShader(fs)
		return 0, err
	}
	return id, nil
}

// UnloadShaderProgram releases a pipeline once the GPU is done with it.
// If it is in use by SetShaderProgram the default pipeline is restored.
// The default pipelines cannot be unloaded.
func (c *RenderContext) UnloadShaderProgram(id PipelineID) {
	if c.closed {
		return
	}
	if id == c.defaultTriangles || id == c.defaultLines {
		c.log.Warn("rlgl: refusing to unload a default shader program", "id", id)
		return
	}
	if !c.pipelines.Contains(pool.ID(id)) {
		c.log.Warn("rlgl: unload of unknown shader program", "id", id)
		return
	}
	if id == c.activeTriangles || id == c.activeLines {
		c.DrawRenderBatchActive()
		if id == c.activeTriangles {
			c.activeTriangles = c.defaultTriangles
		}
		if id == c.activeLines {
			c.activeLines = c.defaultLines
		}
	}
	p, _ := c.pipelines.Remove(pool.ID(id))
	c.retire(p.ps.Destroy)
}

// SetShaderProgram draws the following vertices of the program's topology
// with it. Zero restores both default programs. Pending vertices are
// flushed with the previous program.
func (c *RenderContext) SetShaderProgram(id PipelineID) error {
	if c.closed {
		return ErrClosed
	}
	if id == 0 {
		if c.activeTriangles != c.defaultTriangles || c.activeLines != c.defaultLines {
			c.DrawRenderBatchActive()
			c.activeTriangles, c.activeLines = c.defaultTriangles, c.defaultLines
		}
		return nil
	}
	p, err := c.pipelines.Get(pool.ID(id))
	if err != nil {
		c.log.Warn("rlgl: unknown shader program", "id", id, "err", err)
		return fmt.Errorf("%w: %d: %w", ErrUnknownPipeline, id, err)
	}
	active := &c.activeTriangles
	if p.topology == TopologyLines {
		active = &c.activeLines
	}
	if *active != id {
		c.DrawRenderBatchActive()
		*active = id
	}
	return nil
}

// pipelineFor returns the active pipeline for mode.
func (c *RenderContext) pipelineFor(mode DrawMode) gfx.PipelineState {
	id, fallback := c.activeTriangles, c.defaultTriangles
	if mode == Lines {
		id, fallback = c.activeLines, c.defaultLines
	}
	if p, err := c.pipelines.Get(pool.ID(id)); err == nil {
		return p.ps
	}
	p, _ := c.pipelines.Get(pool.ID(fallback))
	return p.ps
}

// loadDefaultPrograms builds the triangle and line pipelines from the
// embedded shaders.
func (c *RenderContext) loadDefaultPrograms() error {
	var errs []error
	for _, t := range []Topology{TopologyTriangles, TopologyLines} {
		id, err := c.LoadShaderCode(defaultVertexShader, defaultFragmentShader, t)
		if err != nil {
			errs = append(errs, fmt.Errorf("default %s program: %w", t, err))
			continue
		}
		if t == TopologyLines {
			c.defaultLines = id
		} else {
			c.defaultTriangles = id
		}
	}
	c.activeTriangles, c.activeLines = c.defaultTriangles, c.defaultLines
	return errors.Join(errs...)
}
