// Package recording provides an in-memory gfx backend that records every
// command it is given.
//
// The device executes copies and clears on the CPU so uploaded vertex
// data, texture contents and read-backs can be inspected, and it tracks
// resource states so a barrier whose Before state does not match the
// resource's actual state is reported through PollMessages, the way a
// driver debug layer would.
//
// Draws are recorded but not rasterized.
//
// # Example
//
//	dev := recording.New()
//	ctx, err := rlgl.New(rlgl.WithDevice(dev))
//	...
//	for _, sub := range dev.Submissions() {
//	    for _, cmd := range sub.Commands {
//	        fmt.Println(cmd.Type())
//	    }
//	}
package recording

import "github.com/gogpu/rlgl/gfx"

// CommandType identifies a recorded command.
type CommandType uint8

const (
	// Copy and state commands
	CmdBarrier CommandType = iota
	CmdCopyBuffer
	CmdCopyBufferToTexture
	CmdCopyTextureToBuffer

	// Output merger
	CmdSetRenderTargets
	CmdClearRenderTarget
	CmdClearDepth
	CmdSetViewport
	CmdSetScissorRect

	// Binding
	CmdSetRootSignature
	CmdSetDescriptorHeap
	CmdSetDescriptorTable
	CmdSetPipelineState
	CmdSetVertexBuffers
	CmdSetIndexBuffer

	// Drawing
	CmdDraw
	CmdDrawIndexed
)

var commandTypeNames = [...]string{
	CmdBarrier:             "Barrier",
	CmdCopyBuffer:          "CopyBuffer",
	CmdCopyBufferToTexture: "CopyBufferToTexture",
	CmdCopyTextureToBuffer: "CopyTextureToBuffer",
	CmdSetRenderTargets:    "SetRenderTargets",
	CmdClearRenderTarget:   "ClearRenderTarget",
	CmdClearDepth:          "ClearDepth",
	CmdSetViewport:         "SetViewport",
	CmdSetScissorRect:      "SetScissorRect",
	CmdSetRootSignature:    "SetRootSignature",
	CmdSetDescriptorHeap:   "SetDescriptorHeap",
	CmdSetDescriptorTable:  "SetDescriptorTable",
	CmdSetPipelineState:    "SetPipelineState",
	CmdSetVertexBuffers:    "SetVertexBuffers",
	CmdSetIndexBuffer:      "SetIndexBuffer",
	CmdDraw:                "Draw",
	CmdDrawIndexed:         "DrawIndexed",
}

// String returns the name of the command type.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// Command is a recorded command.
type Command interface {
	Type() CommandType
}

// Barrier records a ResourceBarrier call.
type Barrier struct {
	Barriers []gfx.Barrier
}

// CopyBuffer records a CopyBufferRegion call.
type CopyBuffer struct {
	Dst       gfx.Buffer
	DstOffset uint64
	Src       gfx.Buffer
	SrcOffset uint64
	Size      uint64
}

// CopyBufferToTexture records a buffer to texture copy.
type CopyBufferToTexture struct {
	Dst       gfx.Texture
	Src       gfx.Buffer
	Footprint gfx.Footprint
}

// CopyTextureToBuffer records a texture to buffer copy.
type CopyTextureToBuffer struct {
	Dst       gfx.Buffer
	Src       gfx.Texture
	Footprint gfx.Footprint
}

// SetRenderTargets records bound targets. DS may be nil.
type SetRenderTargets struct {
	RT gfx.Texture
	DS gfx.Texture
}

// ClearRenderTarget records a color clear of the bound render target.
type ClearRenderTarget struct {
	Color [4]float32
}

// ClearDepth records a depth clear of the bound depth target.
type ClearDepth struct {
	Depth float32
}

// SetViewport records a viewport.
type SetViewport struct {
	Viewport gfx.Viewport
}

// SetScissorRect records a scissor rectangle.
type SetScissorRect struct {
	Rect gfx.Rect
}

// SetRootSignature records a root signature bind.
type SetRootSignature struct {
	RootSignature gfx.RootSignature
}

// SetDescriptorHeap records a descriptor heap bind.
type SetDescriptorHeap struct {
	Heap gfx.DescriptorHeap
}

// SetDescriptorTable records a root descriptor table bind.
type SetDescriptorTable struct {
	Param int
	Slot  int
}

// SetPipelineState records a pipeline bind.
type SetPipelineState struct {
	Pipeline gfx.PipelineState
}

// SetVertexBuffers records vertex buffer binds.
type SetVertexBuffers struct {
	StartSlot uint32
	Views     []gfx.VertexBufferView
}

// SetIndexBuffer records an index buffer bind.
type SetIndexBuffer struct {
	View gfx.IndexBufferView
}

// Draw records a non-indexed draw.
type Draw struct {
	VertexCount   uint32
	InstanceCount uint32
	StartVertex   uint32
	StartInstance uint32
}

// DrawIndexed records an indexed draw.
type DrawIndexed struct {
	IndexCount    uint32
	InstanceCount uint32
	StartIndex    uint32
	BaseVertex    int32
	StartInstance uint32
}

func (Barrier) Type() CommandType             { return CmdBarrier }
func (CopyBuffer) Type() CommandType          { return CmdCopyBuffer }
func (CopyBufferToTexture) Type() CommandType { return CmdCopyBufferToTexture }
func (CopyTextureToBuffer) Type() CommandType { return CmdCopyTextureToBuffer }
func (SetRenderTargets) Type() CommandType    { return CmdSetRenderTargets }
func (ClearRenderTarget) Type() CommandType   { return CmdClearRenderTarget }
func (ClearDepth) Type() CommandType          { return CmdClearDepth }
func (SetViewport) Type() CommandType         { return CmdSetViewport }
func (SetScissorRect) Type() CommandType      { return CmdSetScissorRect }
func (SetRootSignature) Type() CommandType    { return CmdSetRootSignature }
func (SetDescriptorHeap) Type() CommandType   { return CmdSetDescriptorHeap }
func (SetDescriptorTable) Type() CommandType  { return CmdSetDescriptorTable }
func (SetPipelineState) Type() CommandType    { return CmdSetPipelineState }
func (SetVertexBuffers) Type() CommandType    { return CmdSetVertexBuffers }
func (SetIndexBuffer) Type() CommandType      { return CmdSetIndexBuffer }
func (Draw) Type() CommandType                { return CmdDraw }
func (DrawIndexed) Type() CommandType         { return CmdDrawIndexed }
