package rlgl

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/rlgl/gfx"
)

// Vertex attribute streams, one vertex buffer slot each.
const (
	streamPosition = iota
	streamTexcoord
	streamNormal
	streamColor
	numStreams
)

var streamStrides = [numStreams]uint32{12, 8, 12, 4}

var streamNames = [numStreams]string{"position", "texcoord", "normal", "color"}

// inputLayout is the fixed vertex layout every pipeline is built with.
var inputLayout = []gfx.InputElement{
	{Semantic: "POSITION", Format: gfx.VertexFloat32x3, Slot: streamPosition, Location: 0},
	{Semantic: "TEXCOORD", Format: gfx.VertexFloat32x2, Slot: streamTexcoord, Location: 1},
	{Semantic: "NORMAL", Format: gfx.VertexFloat32x3, Slot: streamNormal, Location: 2},
	{Semantic: "COLOR", Format: gfx.VertexUnorm8x4, Slot: streamColor, Location: 3},
}

type vertexStream struct {
	gpu     gfx.Buffer
	staging gfx.Buffer
	view    gfx.VertexBufferView
}

// renderBuffer is one frame slice of a batch: CPU-side vertex arrays for
// 4 x elements vertices, their GPU buffers and the shared quad index
// buffer.
type renderBuffer struct {
	elements int

	positions []float32
	texcoords []float32
	normals   []float32
	colors    []byte

	streams     [numStreams]vertexStream
	index       gfx.Buffer
	indexUpload gfx.Buffer
	indexView   gfx.IndexBufferView

	// segment is the command list segment the staging buffers were last
	// recorded into.
	segment uint64
}

// quadIndices returns 6 indices per element in the pattern
// 4k, 4k+1, 4k+2, 4k, 4k+2, 4k+3.
func quadIndices(elements int) []byte {
	out := make([]byte, elements*6*4)
	for k := 0; k < elements; k++ {
		// #nosec G115 -- element count is bounded by config validation
		base := uint32(k * 4)
		for i, idx := range [6]uint32{base, base + 1, base + 2, base, base + 2, base + 3} {
			binary.LittleEndian.PutUint32(out[(k*6+i)*4:], idx)
		}
	}
	return out
}

// newRenderBuffer creates the buffers for elements quads and records the
// index buffer upload.
func (c *RenderContext) newRenderBuffer(elements int) (_ *renderBuffer, err error) {
	vertices := elements * 4
	rb := &renderBuffer{
		elements:  elements,
		positions: make([]float32, vertices*3),
		texcoords: make([]float32, vertices*2),
		normals:   make([]float32, vertices*3),
		colors:    make([]byte, vertices*4),
	}
	defer func() {
		if err != nil {
			rb.destroy()
		}
	}()

	for i := range rb.streams {
		s := &rb.streams[i]
		size := uint64(vertices) * uint64(streamStrides[i])
		s.gpu, err = c.dev.CreateBuffer(&gfx.BufferDesc{
			Label:        "batch_" + streamNames[i],
			Size:         size,
			Heap:         gfx.HeapDefault,
			Usage:        gfx.BufferUsageVertex | gfx.BufferUsageCopyDst,
			InitialState: gfx.StateVertexBuffer,
		})
		if err != nil {
			return nil, fmt.Errorf("%s buffer: %w", streamNames[i], err)
		}
		s.staging, err = c.dev.CreateBuffer(&gfx.BufferDesc{
			Label: "batch_" + streamNames[i] + "_upload",
			Size:  size,
			Heap:  gfx.HeapUpload,
			Usage: gfx.BufferUsageCopySrc,
		})
		if err != nil {
			return nil, fmt.Errorf("%s upload buffer: %w", streamNames[i], err)
		}
		s.view = gfx.VertexBufferView{Buffer: s.gpu, Size: size, Stride: streamStrides[i]}
	}

	indices := quadIndices(elements)
	size := uint64(len(indices))
	rb.index, err = c.dev.CreateBuffer(&gfx.BufferDesc{
		Label:        "batch_index",
		Size:         size,
		Heap:         gfx.HeapDefault,
		Usage:        gfx.BufferUsageIndex | gfx.BufferUsageCopyDst,
		InitialState: gfx.StateCopyDest,
	})
	if err != nil {
		return nil, fmt.Errorf("index buffer: %w", err)
	}
	rb.indexUpload, err = c.dev.CreateBuffer(&gfx.BufferDesc{
		Label: "batch_index_upload",
		Size:  size,
		Heap:  gfx.HeapUpload,
		Usage: gfx.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("index upload buffer: %w", err)
	}
	if err = rb.indexUpload.Write(0, indices); err != nil {
		return nil, fmt.Errorf("index upload: %w", err)
	}
	rb.indexView = gfx.IndexBufferView{Buffer: rb.index, Size: size, Format: gfx.IndexUint32}

	c.list.CopyBufferRegion(rb.index, 0, rb.indexUpload, 0, size)
	c.list.ResourceBarrier(gfx.BufferTransition(rb.index, gfx.StateCopyDest, gfx.StateIndexBuffer))
	return rb, nil
}

// capacity is the number of vertices the buffer holds.
func (rb *renderBuffer) capacity() int { return rb.elements * 4 }

func (rb *renderBuffer) views() []gfx.VertexBufferView {
	v := make([]gfx.VertexBufferView, numStreams)
	for i := range rb.streams {
		v[i] = rb.streams[i].view
	}
	return v
}

// appendFloats appends the little-endian encoding of src to dst.
func appendFloats(dst []byte, src []float32) []byte {
	for _, f := range src {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(f))
	}
	return dst
}

// upload writes the first n vertices into the staging buffers and records
// the copies into the GPU buffers. scratch is reused for encoding and the
// grown slice is returned.
func (rb *renderBuffer) upload(list gfx.CommandList, n int, scratch []byte) ([]byte, error) {
	for i := range rb.streams {
		var data []byte
		switch i {
		case streamPosition:
			scratch = appendFloats(scratch[:0], rb.positions[:n*3])
			data = scratch
		case streamTexcoord:
			scratch = appendFloats(scratch[:0], rb.texcoords[:n*2])
			data = scratch
		case streamNormal:
			scratch = appendFloats(scratch[:0], rb.normals[:n*3])
			data = scratch
		case streamColor:
			data = rb.colors[:n*4]
		}
		if err := rb.streams[i].staging.Write(0, data); err != nil {
			return scratch, fmt.Errorf("upload %s: %w", streamNames[i], err)
		}
	}

	var toCopy, toVertex [numStreams]gfx.Barrier
	for i := range rb.streams {
		toCopy[i] = gfx.BufferTransition(rb.streams[i].gpu, gfx.StateVertexBuffer, gfx.StateCopyDest)
		toVertex[i] = gfx.BufferTransition(rb.streams[i].gpu, gfx.StateCopyDest, gfx.StateVertexBuffer)
	}
	list.ResourceBarrier(toCopy[:]...)
	for i := range rb.streams {
		s := &rb.streams[i]
		list.CopyBufferRegion(s.gpu, 0, s.staging, 0, uint64(n)*uint64(streamStrides[i]))
	}
	list.ResourceBarrier(toVertex[:]...)
	return scratch, nil
}

func (rb *renderBuffer) destroy() {
	for i := range rb.streams {
		s := &rb.streams[i]
		if s.gpu != nil {
			s.gpu.Destroy()
			s.gpu = nil
		}
		if s.staging != nil {
			s.staging.Destroy()
			s.staging = nil
		}
	}
	if rb.index != nil {
		rb.index.Destroy()
		rb.index = nil
	}
	if rb.indexUpload != nil {
		rb.indexUpload.Destroy()
		rb.indexUpload = nil
	}
}
