// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package halgfx

import (
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/rlgl/gfx"
)

const testShader = `
struct Uniforms { mvp: mat4x4<f32> }
@group(1) @binding(0) var<uniform> u: Uniforms;
@group(0) @binding(0) var tex: texture_2d<f32>;
@group(0) @binding(1) var samp: sampler;

struct VsOut {
    @builtin(position) pos: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(@location(0) pos: vec3<f32>, @location(1) uv: vec2<f32>) -> VsOut {
    var out: VsOut;
    out.pos = vec4<f32>(pos, 1.0) * u.mvp;
    out.uv = uv;
    return out;
}

@fragment
fn fs_main(in: VsOut) -> @location(0) vec4<f32> {
    return textureSample(tex, samp, in.uv);
}
`

func openNoop(t *testing.T) *Device {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	d, err := openInstance(instance, gfx.OpenOptions{AllowSoftware: true}, "noop")
	if err != nil {
		instance.Destroy()
		t.Fatalf("openInstance() error = %v", err)
	}
	t.Cleanup(d.Destroy)
	return d
}

func TestRankAdapters(t *testing.T) {
	mk := func(name string, typ gputypes.DeviceType) hal.ExposedAdapter {
		var a hal.ExposedAdapter
		a.Info.Name = name
		a.Info.DeviceType = typ
		return a
	}
	adapters := []hal.ExposedAdapter{
		mk("cpu", gputypes.DeviceTypeCPU),
		mk("igpu", gputypes.DeviceTypeIntegratedGPU),
		mk("dgpu", gputypes.DeviceTypeDiscreteGPU),
	}

	tests := []struct {
		name          string
		allowSoftware bool
		want          []string
	}{
		{"hardware only", false, []string{"dgpu", "igpu"}},
		{"with software", true, []string{"dgpu", "igpu", "cpu"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rankAdapters(adapters, tt.allowSoftware)
			if len(got) != len(tt.want) {
				t.Fatalf("rankAdapters() returned %d adapters, want %d", len(got), len(tt.want))
			}
			for i, a := range got {
				if a.Info.Name != tt.want[i] {
					t.Errorf("rankAdapters()[%d] = %q, want %q", i, a.Info.Name, tt.want[i])
				}
			}
		})
	}
}

func TestVertexLayouts(t *testing.T) {
	layouts := vertexLayouts([]gfx.InputElement{
		{Semantic: "POSITION", Format: gfx.VertexFloat32x3, Slot: 0, Location: 0},
		{Semantic: "TEXCOORD", Format: gfx.VertexFloat32x2, Slot: 1, Location: 1},
		{Semantic: "NORMAL", Format: gfx.VertexFloat32x3, Slot: 2, Location: 2},
		{Semantic: "COLOR", Format: gfx.VertexUnorm8x4, Slot: 3, Location: 3},
	})
	if len(layouts) != 4 {
		t.Fatalf("len(layouts) = %d, want 4", len(layouts))
	}
	strides := []uint64{12, 8, 12, 4}
	for i, want := range strides {
		if uint64(layouts[i].ArrayStride) != want {
			t.Errorf("slot %d stride = %d, want %d", i, layouts[i].ArrayStride, want)
		}
	}
}

func TestNoopFrame(t *testing.T) {
	d := openNoop(t)

	rt, err := d.CreateTexture(&gfx.TextureDesc{Label: "rt", Width: 16, Height: 16, MipLevels: 1,
		Format: gfx.FormatRGBA8Unorm, Usage: gfx.TextureUsageRenderTarget | gfx.TextureUsageCopySrc})
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Destroy()
	tex, err := d.CreateTexture(&gfx.TextureDesc{Label: "tex", Width: 1, Height: 1, MipLevels: 1,
		Format: gfx.FormatRGBA8Unorm, Usage: gfx.TextureUsageSampled | gfx.TextureUsageCopyDst})
	if err != nil {
		t.Fatal(err)
	}
	defer tex.Destroy()
	vb, err := d.CreateBuffer(&gfx.BufferDesc{Label: "vb", Size: 36, Usage: gfx.BufferUsageVertex})
	if err != nil {
		t.Fatal(err)
	}
	defer vb.Destroy()
	cb, err := d.CreateBuffer(&gfx.BufferDesc{Label: "cb", Size: 256, Heap: gfx.HeapUpload,
		Usage: gfx.BufferUsageConstant})
	if err != nil {
		t.Fatal(err)
	}
	defer cb.Destroy()
	if err := cb.Write(0, make([]byte, 64)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	rs, err := d.CreateRootSignature(&gfx.RootSignatureDesc{
		Label: "rs",
		Parameters: []gfx.RootParameter{
			{Range: gfx.RangeSRV, Visibility: gfx.VisibilityPixel},
			{Range: gfx.RangeCBV, Visibility: gfx.VisibilityVertex},
		},
		StaticSamplers: []gfx.StaticSampler{{Filter: gfx.FilterPoint, Address: gfx.AddressWrap}},
	})
	if err != nil {
		t.Fatalf("CreateRootSignature() error = %v", err)
	}
	defer rs.Destroy()

	vs, err := d.CompileShader("vs", testShader, gfx.StageVertex)
	if err != nil {
		t.Fatalf("CompileShader(vs) error = %v", err)
	}
	defer vs.Destroy()
	fs, err := d.CompileShader("fs", testShader, gfx.StageFragment)
	if err != nil {
		t.Fatalf("CompileShader(fs) error = %v", err)
	}
	defer fs.Destroy()
	if len(vs.Bytecode()) == 0 {
		t.Error("empty SPIR-V")
	}

	ps, err := d.CreatePipelineState(&gfx.PipelineStateDesc{
		Label:         "ps",
		RootSignature: rs,
		VS:            vs,
		FS:            fs,
		InputLayout: []gfx.InputElement{
			{Semantic: "POSITION", Format: gfx.VertexFloat32x3, Slot: 0, Location: 0},
			{Semantic: "TEXCOORD", Format: gfx.VertexFloat32x2, Slot: 1, Location: 1},
		},
		Topology:     gfx.TopologyTriangle,
		RenderFormat: gfx.FormatRGBA8Unorm,
		AlphaBlend:   true,
	})
	if err != nil {
		t.Fatalf("CreatePipelineState() error = %v", err)
	}
	defer ps.Destroy()

	heap, err := d.CreateDescriptorHeap(&gfx.DescriptorHeapDesc{Label: "heap", NumDescriptors: 2, ShaderVisible: true})
	if err != nil {
		t.Fatal(err)
	}
	defer heap.Destroy()
	if err := heap.CreateShaderResourceView(0, tex); err != nil {
		t.Fatal(err)
	}
	if err := heap.CreateConstantBufferView(1, cb, 0, 256); err != nil {
		t.Fatal(err)
	}

	fence, err := d.CreateFence(0)
	if err != nil {
		t.Fatal(err)
	}
	defer fence.Destroy()
	list, err := d.CreateCommandList("frame")
	if err != nil {
		t.Fatal(err)
	}
	defer list.Destroy()

	if err := list.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	list.ResourceBarrier(gfx.TextureTransition(rt, gfx.StatePresent, gfx.StateRenderTarget))
	list.SetRenderTargets(rt, nil)
	list.ClearRenderTarget([4]float32{0, 0, 0, 1})
	list.SetViewport(gfx.Viewport{Width: 16, Height: 16, MaxDepth: 1})
	list.SetScissorRect(gfx.Rect{Width: 16, Height: 16})
	list.SetGraphicsRootSignature(rs)
	list.SetDescriptorHeap(heap)
	list.SetGraphicsRootDescriptorTable(0, 0)
	list.SetGraphicsRootDescriptorTable(1, 1)
	list.SetPipelineState(ps)
	list.SetVertexBuffers(0,
		gfx.VertexBufferView{Buffer: vb, Size: 36, Stride: 12},
		gfx.VertexBufferView{Buffer: vb, Size: 24, Stride: 8})
	list.DrawInstanced(3, 1, 0, 0)
	list.ResourceBarrier(gfx.TextureTransition(rt, gfx.StateRenderTarget, gfx.StatePresent))
	if err := list.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := d.Queue().Submit([]gfx.CommandList{list}, fence, 1); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := d.Wait(fence, 1); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if fence.Completed() != 1 {
		t.Errorf("Completed() = %d, want 1", fence.Completed())
	}
	if msgs := d.PollMessages(); len(msgs) != 0 {
		t.Errorf("unexpected messages: %v", msgs)
	}
}

func TestSubmitOpenListFails(t *testing.T) {
	d := openNoop(t)
	list, err := d.CreateCommandList("open")
	if err != nil {
		t.Fatal(err)
	}
	defer list.Destroy()
	if err := list.Reset(); err != nil {
		t.Fatal(err)
	}
	if err := d.Queue().Submit([]gfx.CommandList{list}, nil, 0); err == nil {
		t.Error("Submit() of open list succeeded")
	}
}

func TestBufferHeapRules(t *testing.T) {
	d := openNoop(t)
	gpu, err := d.CreateBuffer(&gfx.BufferDesc{Label: "gpu", Size: 16, Usage: gfx.BufferUsageVertex})
	if err != nil {
		t.Fatal(err)
	}
	defer gpu.Destroy()
	if err := gpu.Write(0, []byte{1}); err == nil {
		t.Error("Write() to default heap succeeded")
	}
	if _, err := d.CreateBuffer(&gfx.BufferDesc{Label: "empty"}); err == nil {
		t.Error("zero-size CreateBuffer() succeeded")
	}
}

type plainProvider struct{}

func (plainProvider) Device() gpucontext.Device             { return nil }
func (plainProvider) Queue() gpucontext.Queue               { return nil }
func (plainProvider) Adapter() gpucontext.Adapter           { return nil }
func (plainProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }

type sharedProvider struct {
	plainProvider
	dev hal.Device
	q   hal.Queue
}

func (p sharedProvider) HalDevice() any { return p.dev }
func (p sharedProvider) HalQueue() any  { return p.q }

func TestNewFromProvider(t *testing.T) {
	if _, err := NewFromProvider(plainProvider{}); err == nil {
		t.Error("NewFromProvider() accepted a provider without HAL types")
	}

	owner := openNoop(t)
	d, err := NewFromProvider(sharedProvider{dev: owner.device, q: owner.queue})
	if err != nil {
		t.Fatalf("NewFromProvider() error = %v", err)
	}
	if d.Info().Backend != BackendName {
		t.Errorf("Info().Backend = %q, want %q", d.Info().Backend, BackendName)
	}
	// Destroying the wrapper leaves the shared device usable.
	d.Destroy()
	if _, err := owner.CreateFence(0); err != nil {
		t.Errorf("shared device unusable after wrapper Destroy: %v", err)
	}
}
