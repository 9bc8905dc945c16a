// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gfx

import "fmt"

// HeapType selects where a buffer lives.
type HeapType uint8

const (
	// HeapDefault is GPU-local memory, not CPU-writable.
	HeapDefault HeapType = iota
	// HeapUpload is CPU-writable memory used as a copy source.
	HeapUpload
	// HeapReadback is CPU-readable memory used as a copy destination.
	HeapReadback
)

var heapNames = [...]string{"default", "upload", "readback"}

func (h HeapType) String() string {
	if int(h) < len(heapNames) {
		return heapNames[h]
	}
	return fmt.Sprintf("HeapType(%d)", h)
}

// ResourceState is the usage state of a buffer or texture.
type ResourceState uint16

const (
	StateCommon ResourceState = iota
	StateVertexBuffer
	StateIndexBuffer
	StateConstantBuffer
	StateCopyDest
	StateCopySource
	StateShaderResource
	StateRenderTarget
	StateDepthWrite
	StatePresent
)

var stateNames = [...]string{
	StateCommon:         "Common",
	StateVertexBuffer:   "VertexBuffer",
	StateIndexBuffer:    "IndexBuffer",
	StateConstantBuffer: "ConstantBuffer",
	StateCopyDest:       "CopyDest",
	StateCopySource:     "CopySource",
	StateShaderResource: "ShaderResource",
	StateRenderTarget:   "RenderTarget",
	StateDepthWrite:     "DepthWrite",
	StatePresent:        "Present",
}

func (s ResourceState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("ResourceState(%d)", s)
}

// BufferUsage declares how a buffer may be bound.
type BufferUsage uint8

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageConstant
	BufferUsageCopySrc
	BufferUsageCopyDst
)

// BufferDesc describes a buffer.
type BufferDesc struct {
	Label string
	Size  uint64
	Heap  HeapType
	Usage BufferUsage
	// InitialState is the state the buffer is created in.
	InitialState ResourceState
}

// Format is a texel format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatRGBA8Unorm
	FormatBGRA8Unorm
	FormatDepth24Stencil8
	FormatDepth32Float
)

var formatNames = [...]string{"Unknown", "RGBA8Unorm", "BGRA8Unorm", "Depth24Stencil8", "Depth32Float"}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", f)
}

// BytesPerPixel returns the texel size of a color format, or 0.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatRGBA8Unorm, FormatBGRA8Unorm:
		return 4
	default:
		return 0
	}
}

// IsDepth reports whether f is a depth format.
func (f Format) IsDepth() bool {
	return f == FormatDepth24Stencil8 || f == FormatDepth32Float
}

// TextureUsage declares how a texture may be used.
type TextureUsage uint8

const (
	TextureUsageSampled TextureUsage = 1 << iota
	TextureUsageRenderTarget
	TextureUsageDepthStencil
	TextureUsageCopySrc
	TextureUsageCopyDst
)

// TextureDesc describes a 2D texture.
type TextureDesc struct {
	Label        string
	Width        uint32
	Height       uint32
	MipLevels    uint32
	Format       Format
	Usage        TextureUsage
	InitialState ResourceState
}

// CopyPitchAlignment is the row pitch alignment required for
// buffer/texture copies.
const CopyPitchAlignment = 256

// RowPitch returns the aligned row pitch for width texels of bpp bytes.
func RowPitch(width uint32, bpp int) uint32 {
	// #nosec G115 -- bpp is a small texel size
	raw := width * uint32(bpp)
	return (raw + CopyPitchAlignment - 1) &^ (CopyPitchAlignment - 1)
}

// Footprint locates one texture subresource inside a buffer.
type Footprint struct {
	Offset   uint64
	RowPitch uint32
	Width    uint32
	Height   uint32
	// X and Y are the destination (or source) origin inside the mip level.
	X, Y     uint32
	MipLevel uint32
}

// Barrier transitions a buffer or a texture between states. Exactly one of
// Buffer and Texture is set.
type Barrier struct {
	Buffer  Buffer
	Texture Texture
	Before  ResourceState
	After   ResourceState
}

// BufferTransition builds a buffer barrier.
func BufferTransition(b Buffer, before, after ResourceState) Barrier {
	return Barrier{Buffer: b, Before: before, After: after}
}

// TextureTransition builds a texture barrier.
func TextureTransition(t Texture, before, after ResourceState) Barrier {
	return Barrier{Texture: t, Before: before, After: after}
}

// DescriptorHeapDesc describes a descriptor heap.
type DescriptorHeapDesc struct {
	Label          string
	NumDescriptors int
	ShaderVisible  bool
}

// RangeType is the kind of descriptors a root table exposes.
type RangeType uint8

const (
	RangeSRV RangeType = iota
	RangeCBV
)

// ShaderVisibility selects the pipeline stage a root parameter is visible to.
type ShaderVisibility uint8

const (
	VisibilityAll ShaderVisibility = iota
	VisibilityVertex
	VisibilityPixel
)

// RootParameter is a single-descriptor table parameter.
type RootParameter struct {
	Range      RangeType
	Visibility ShaderVisibility
}

// Filter is a sampler filter.
type Filter uint8

const (
	FilterPoint Filter = iota
	FilterLinear
)

// AddressMode is a sampler address mode.
type AddressMode uint8

const (
	AddressBorder AddressMode = iota
	AddressClamp
	AddressWrap
)

// StaticSampler is a sampler baked into a root signature. It is visible
// to the pixel stage next to the first SRV table.
type StaticSampler struct {
	Filter  Filter
	Address AddressMode
}

// RootSignatureDesc describes the binding contract of pipelines.
type RootSignatureDesc struct {
	Label          string
	Parameters     []RootParameter
	StaticSamplers []StaticSampler
}

// ShaderStage tags a shader blob.
type ShaderStage uint8

const (
	StageVertex ShaderStage = iota + 1
	StageFragment
)

func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderStage(%d)", s)
	}
}

// Topology is the primitive topology class of a pipeline.
type Topology uint8

const (
	TopologyTriangle Topology = iota
	TopologyLine
)

func (t Topology) String() string {
	if t == TopologyLine {
		return "line"
	}
	return "triangle"
}

// VertexFormat is the format of one vertex attribute.
type VertexFormat uint8

const (
	VertexFloat32x2 VertexFormat = iota
	VertexFloat32x3
	VertexFloat32x4
	VertexUnorm8x4
)

// Size returns the attribute size in bytes.
func (f VertexFormat) Size() uint32 {
	switch f {
	case VertexFloat32x2:
		return 8
	case VertexFloat32x3:
		return 12
	case VertexFloat32x4:
		return 16
	default:
		return 4
	}
}

// InputElement binds one attribute to one vertex buffer slot.
type InputElement struct {
	Semantic string
	Format   VertexFormat
	Slot     uint32
	Location uint32
}

// PipelineStateDesc describes a graphics pipeline.
type PipelineStateDesc struct {
	Label         string
	RootSignature RootSignature
	VS            ShaderBlob
	FS            ShaderBlob
	InputLayout   []InputElement
	Topology      Topology
	RenderFormat  Format
	DepthFormat   Format
	AlphaBlend    bool
	DepthTest     bool
}

// IndexFormat is the index element type.
type IndexFormat uint8

const (
	IndexUint16 IndexFormat = iota
	IndexUint32
)

// VertexBufferView is a bound range of a vertex buffer.
type VertexBufferView struct {
	Buffer Buffer
	Offset uint64
	Size   uint64
	Stride uint32
}

// IndexBufferView is a bound range of an index buffer.
type IndexBufferView struct {
	Buffer Buffer
	Offset uint64
	Size   uint64
	Format IndexFormat
}

// Viewport maps normalized device coordinates to the render target.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// Rect is a scissor rectangle in pixels.
type Rect struct {
	X, Y, Width, Height uint32
}

// Severity grades device diagnostics.
type Severity uint8

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// Message is one entry of a device's diagnostic queue.
type Message struct {
	Severity Severity
	Text     string
}

// AdapterInfo describes the adapter a device was opened on.
type AdapterInfo struct {
	Name     string
	Backend  string
	Software bool
}

// Limits reports device limits rlgl sizes resources against.
type Limits struct {
	// ConstantBufferAlignment is the required offset/size alignment of a
	// constant buffer view.
	ConstantBufferAlignment uint64
	MaxTextureDimension     uint32
}
