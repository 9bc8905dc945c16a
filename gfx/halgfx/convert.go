// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package halgfx

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rlgl/gfx"
)

func textureFormat(f gfx.Format) gputypes.TextureFormat {
	switch f {
	case gfx.FormatBGRA8Unorm:
		return gputypes.TextureFormatBGRA8Unorm
	case gfx.FormatDepth24Stencil8:
		return gputypes.TextureFormatDepth24PlusStencil8
	case gfx.FormatDepth32Float:
		return gputypes.TextureFormatDepth32Float
	default:
		return gputypes.TextureFormatRGBA8Unorm
	}
}

func formatFromSurface(f gputypes.TextureFormat) gfx.Format {
	if f == gputypes.TextureFormatBGRA8Unorm {
		return gfx.FormatBGRA8Unorm
	}
	return gfx.FormatRGBA8Unorm
}

func bufferUsage(u gfx.BufferUsage) gputypes.BufferUsage {
	var out gputypes.BufferUsage
	if u&gfx.BufferUsageVertex != 0 {
		out |= gputypes.BufferUsageVertex
	}
	if u&gfx.BufferUsageIndex != 0 {
		out |= gputypes.BufferUsageIndex
	}
	if u&gfx.BufferUsageConstant != 0 {
		out |= gputypes.BufferUsageUniform
	}
	if u&gfx.BufferUsageCopySrc != 0 {
		out |= gputypes.BufferUsageCopySrc
	}
	if u&gfx.BufferUsageCopyDst != 0 {
		out |= gputypes.BufferUsageCopyDst
	}
	return out
}

func textureUsage(u gfx.TextureUsage) gputypes.TextureUsage {
	var out gputypes.TextureUsage
	if u&gfx.TextureUsageSampled != 0 {
		out |= gputypes.TextureUsageTextureBinding
	}
	if u&(gfx.TextureUsageRenderTarget|gfx.TextureUsageDepthStencil) != 0 {
		out |= gputypes.TextureUsageRenderAttachment
	}
	if u&gfx.TextureUsageCopySrc != 0 {
		out |= gputypes.TextureUsageCopySrc
	}
	if u&gfx.TextureUsageCopyDst != 0 {
		out |= gputypes.TextureUsageCopyDst
	}
	return out
}

// stateUsage maps a resource state to the texture usage hal transitions
// between. Present maps to CopySrc: back buffers are read, not scanned out.
func stateUsage(s gfx.ResourceState) gputypes.TextureUsage {
	switch s {
	case gfx.StateCopyDest:
		return gputypes.TextureUsageCopyDst
	case gfx.StateCopySource, gfx.StatePresent:
		return gputypes.TextureUsageCopySrc
	case gfx.StateShaderResource:
		return gputypes.TextureUsageTextureBinding
	case gfx.StateRenderTarget, gfx.StateDepthWrite:
		return gputypes.TextureUsageRenderAttachment
	default:
		return 0
	}
}

func samplerDescriptor(label string, s gfx.StaticSampler) *hal.SamplerDescriptor {
	desc := &hal.SamplerDescriptor{
		Label:        label,
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
	}
	// hal has no border color; clamp stands in for AddressBorder.
	if s.Address == gfx.AddressWrap {
		desc.AddressModeU = gputypes.AddressModeRepeat
		desc.AddressModeV = gputypes.AddressModeRepeat
		desc.AddressModeW = gputypes.AddressModeRepeat
	}
	if s.Filter == gfx.FilterLinear {
		desc.MagFilter = gputypes.FilterModeLinear
		desc.MinFilter = gputypes.FilterModeLinear
		desc.MipmapFilter = gputypes.FilterModeLinear
	}
	return desc
}

func setVisibility(e *gputypes.BindGroupLayoutEntry, v gfx.ShaderVisibility) {
	switch v {
	case gfx.VisibilityVertex:
		e.Visibility = gputypes.ShaderStageVertex
	case gfx.VisibilityPixel:
		e.Visibility = gputypes.ShaderStageFragment
	default:
		e.Visibility = gputypes.ShaderStageVertex | gputypes.ShaderStageFragment
	}
}

func vertexFormat(f gfx.VertexFormat) gputypes.VertexFormat {
	switch f {
	case gfx.VertexFloat32x2:
		return gputypes.VertexFormatFloat32x2
	case gfx.VertexFloat32x3:
		return gputypes.VertexFormatFloat32x3
	case gfx.VertexFloat32x4:
		return gputypes.VertexFormatFloat32x4
	default:
		return gputypes.VertexFormatUnorm8x4
	}
}

// vertexLayouts groups input elements into one tightly packed layout per
// vertex buffer slot.
func vertexLayouts(elems []gfx.InputElement) []gputypes.VertexBufferLayout {
	var slots uint32
	for _, e := range elems {
		slots = max(slots, e.Slot+1)
	}
	layouts := make([]gputypes.VertexBufferLayout, slots)
	for i := range layouts {
		layouts[i].StepMode = gputypes.VertexStepModeVertex
	}
	for _, e := range elems {
		l := &layouts[e.Slot]
		l.Attributes = append(l.Attributes, gputypes.VertexAttribute{
			Format:         vertexFormat(e.Format),
			Offset:         l.ArrayStride,
			ShaderLocation: e.Location,
		})
		l.ArrayStride += uint64(e.Format.Size())
	}
	return layouts
}
