// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gfx

// Device creates GPU objects. It is the root of a backend.
type Device interface {
	// Info describes the adapter the device was opened on.
	Info() AdapterInfo

	// Limits reports the device limits.
	Limits() Limits

	// Queue returns the device's graphics queue.
	Queue() CommandQueue

	CreateBuffer(desc *BufferDesc) (Buffer, error)
	CreateTexture(desc *TextureDesc) (Texture, error)
	CreateDescriptorHeap(desc *DescriptorHeapDesc) (DescriptorHeap, error)
	CreateRootSignature(desc *RootSignatureDesc) (RootSignature, error)

	// CompileShader compiles source for one stage into a bytecode blob.
	CompileShader(label, source string, stage ShaderStage) (ShaderBlob, error)

	CreatePipelineState(desc *PipelineStateDesc) (PipelineState, error)

	// CreateCommandList creates a command list in the closed state.
	CreateCommandList(label string) (CommandList, error)

	CreateFence(initial uint64) (Fence, error)
	CreateSwapChain(desc *SwapChainDesc) (SwapChain, error)

	// Wait blocks until fence reaches value. There is no timeout.
	Wait(fence Fence, value uint64) error

	// PollMessages drains the diagnostic queue.
	PollMessages() []Message

	// Destroy releases the device. All objects it created must be
	// destroyed first.
	Destroy()
}

// Buffer is a linear GPU allocation.
type Buffer interface {
	Size() uint64
	Heap() HeapType

	// Write copies data into an upload-heap buffer at offset.
	Write(offset uint64, data []byte) error

	// Read copies from a readback-heap buffer at offset into dst.
	// The caller must have waited for the GPU work that filled it.
	Read(offset uint64, dst []byte) error

	Destroy()
}

// Texture is a 2D image resource.
type Texture interface {
	Width() uint32
	Height() uint32
	MipLevels() uint32
	Format() Format
	Destroy()
}

// DescriptorHeap is an array of resource views addressed by slot.
type DescriptorHeap interface {
	Len() int

	// CreateShaderResourceView writes a view of tex into slot.
	CreateShaderResourceView(slot int, tex Texture) error

	// CreateConstantBufferView writes a view of buf[offset:offset+size]
	// into slot.
	CreateConstantBufferView(slot int, buf Buffer, offset, size uint64) error

	// ClearSlot drops whatever view slot holds.
	ClearSlot(slot int)

	Destroy()
}

// RootSignature is the binding contract pipelines are built against.
type RootSignature interface {
	NumParameters() int
	Destroy()
}

// ShaderBlob is compiled shader bytecode for one stage.
type ShaderBlob interface {
	Stage() ShaderStage
	Bytecode() []byte
	Destroy()
}

// PipelineState is a compiled graphics pipeline.
type PipelineState interface {
	Topology() Topology
	Destroy()
}

// CommandList records GPU work. A list is created closed; Reset opens it
// for recording and Close finishes it for submission. Reset must not be
// called while a previous submission of the list may still execute.
type CommandList interface {
	Reset() error
	Close() error

	ResourceBarrier(barriers ...Barrier)
	CopyBufferRegion(dst Buffer, dstOffset uint64, src Buffer, srcOffset, size uint64)
	CopyBufferToTexture(dst Texture, src Buffer, fp Footprint)
	CopyTextureToBuffer(dst Buffer, src Texture, fp Footprint)

	// SetRenderTargets binds the color target and an optional depth target.
	SetRenderTargets(rt Texture, ds Texture)
	ClearRenderTarget(rgba [4]float32)
	ClearDepth(depth float32)

	SetViewport(vp Viewport)
	SetScissorRect(r Rect)

	SetGraphicsRootSignature(rs RootSignature)
	SetDescriptorHeap(heap DescriptorHeap)

	// SetGraphicsRootDescriptorTable points root parameter param at the
	// descriptor in slot of the bound heap.
	SetGraphicsRootDescriptorTable(param int, slot int)

	SetPipelineState(ps PipelineState)
	SetVertexBuffers(startSlot uint32, views ...VertexBufferView)
	SetIndexBuffer(view IndexBufferView)

	DrawInstanced(vertexCount, instanceCount, startVertex, startInstance uint32)
	DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32)

	Destroy()
}

// CommandQueue executes closed command lists.
type CommandQueue interface {
	// Submit executes lists in order and signals fence to value once they
	// complete.
	Submit(lists []CommandList, fence Fence, value uint64) error
}

// Fence is a monotonically increasing GPU→CPU completion counter.
type Fence interface {
	// Completed returns the last value the GPU signaled.
	Completed() uint64
	Destroy()
}

// SwapChainDesc describes a swap chain.
type SwapChainDesc struct {
	Surface     Surface
	Width       uint32
	Height      uint32
	BufferCount int
	Format      Format
}

// SwapChain owns the presentable back buffers.
type SwapChain interface {
	BufferCount() int

	// CurrentIndex is the back buffer the next frame renders into.
	CurrentIndex() int

	Buffer(i int) Texture

	// Present hands the current back buffer to the surface and advances
	// CurrentIndex. The back buffer must be in StatePresent.
	Present() error

	Resize(width, height uint32) error
	Destroy()
}
