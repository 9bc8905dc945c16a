// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package halgfx

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rlgl/gfx"
)

// BackendName is the registry name of the hal backend.
const BackendName = "hal"

// waitSlice bounds a single hal fence wait. Wait loops until the value is
// reached, logging each expired slice.
const waitSlice = 2 * time.Second

// ErrNoAdapter is returned when no adapter could be opened.
var ErrNoAdapter = errors.New("halgfx: no usable adapter")

// Device is a gfx.Device backed by a hal device.
type Device struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	external bool

	info     gfx.AdapterInfo
	q        *queue
	messages []gfx.Message

	// retired bind groups are destroyed once the GPU has caught up with
	// lastSubmit.
	retired    []hal.BindGroup
	lastSubmit uint64
}

var _ gfx.Device = (*Device)(nil)

// Open creates a Vulkan instance and opens the best adapter on it.
func Open(opts gfx.OpenOptions) (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan", gfx.ErrBackendUnavailable)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("halgfx: create instance: %w", err)
	}
	d, err := openInstance(instance, opts, "vulkan")
	if err != nil {
		instance.Destroy()
		return nil, err
	}
	return d, nil
}

func openInstance(instance hal.Instance, opts gfx.OpenOptions, backend string) (*Device, error) {
	adapters := instance.EnumerateAdapters(nil)
	candidates := rankAdapters(adapters, opts.AllowSoftware)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %d adapter(s), none eligible", ErrNoAdapter, len(adapters))
	}

	var errs []error
	for _, a := range candidates {
		od, err := a.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
		if err != nil {
			slogger().Warn("halgfx: adapter open failed", "adapter", a.Info.Name, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", a.Info.Name, err))
			continue
		}
		d := newDevice(od.Device, od.Queue)
		d.instance = instance
		d.info = gfx.AdapterInfo{
			Name:     a.Info.Name,
			Backend:  backend,
			Software: a.Info.DeviceType == gputypes.DeviceTypeCPU,
		}
		slogger().Info("halgfx: adapter selected", "adapter", a.Info.Name, "software", d.info.Software)
		return d, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrNoAdapter, errors.Join(errs...))
}

// rankAdapters orders adapters discrete first, CPU last, dropping CPU
// adapters unless allowSoftware is set.
func rankAdapters(adapters []hal.ExposedAdapter, allowSoftware bool) []*hal.ExposedAdapter {
	rank := func(t gputypes.DeviceType) int {
		switch t {
		case gputypes.DeviceTypeDiscreteGPU:
			return 0
		case gputypes.DeviceTypeIntegratedGPU:
			return 1
		case gputypes.DeviceTypeCPU:
			return 3
		default:
			return 2
		}
	}
	var out []*hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeCPU && !allowSoftware {
			continue
		}
		out = append(out, &adapters[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i].Info.DeviceType) < rank(out[j].Info.DeviceType)
	})
	return out
}

// NewFromProvider wraps a hal device owned by the host application. The
// provider must expose HalDevice and HalQueue. Destroy leaves the shared
// device alive.
func NewFromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("halgfx: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("halgfx: provider HalDevice is not hal.Device")
	}
	q, ok := hp.HalQueue().(hal.Queue)
	if !ok || q == nil {
		return nil, fmt.Errorf("halgfx: provider HalQueue is not hal.Queue")
	}
	d := newDevice(device, q)
	d.external = true
	d.info = gfx.AdapterInfo{Name: "shared", Backend: BackendName}
	slogger().Debug("halgfx: using shared device", "surface_format", formatFromSurface(provider.SurfaceFormat()))
	return d, nil
}

func newDevice(device hal.Device, q hal.Queue) *Device {
	d := &Device{device: device, queue: q}
	d.q = &queue{dev: d}
	return d
}

// HalDevice returns the underlying hal device.
func (d *Device) HalDevice() any { return d.device }

// HalQueue returns the underlying hal queue.
func (d *Device) HalQueue() any { return d.queue }

func (d *Device) report(sev gfx.Severity, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	d.mu.Lock()
	d.messages = append(d.messages, gfx.Message{Severity: sev, Text: msg})
	d.mu.Unlock()
	slogger().Debug("halgfx: "+msg, "severity", sev)
}

func (d *Device) retire(bg hal.BindGroup) {
	if bg == nil {
		return
	}
	d.mu.Lock()
	d.retired = append(d.retired, bg)
	d.mu.Unlock()
}

func (d *Device) Info() gfx.AdapterInfo { return d.info }

func (d *Device) Limits() gfx.Limits {
	return gfx.Limits{ConstantBufferAlignment: 256, MaxTextureDimension: 8192}
}

func (d *Device) Queue() gfx.CommandQueue { return d.q }

// CreateBuffer implements gfx.Device.
func (d *Device) CreateBuffer(desc *gfx.BufferDesc) (gfx.Buffer, error) {
	if desc.Size == 0 {
		return nil, fmt.Errorf("halgfx: buffer %q has zero size", desc.Label)
	}
	usage := bufferUsage(desc.Usage)
	switch desc.Heap {
	case gfx.HeapUpload:
		usage |= gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	case gfx.HeapReadback:
		usage = gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst
	default:
		usage |= gputypes.BufferUsageCopyDst
	}
	raw, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  (desc.Size + 3) &^ 3,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("halgfx: create buffer %q: %w", desc.Label, err)
	}
	return &buffer{dev: d, raw: raw, size: desc.Size, heap: desc.Heap, label: desc.Label}, nil
}

// CreateTexture implements gfx.Device.
func (d *Device) CreateTexture(desc *gfx.TextureDesc) (gfx.Texture, error) {
	mips := max(desc.MipLevels, 1)
	raw, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          hal.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
		MipLevelCount: mips,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        textureFormat(desc.Format),
		Usage:         textureUsage(desc.Usage),
	})
	if err != nil {
		return nil, fmt.Errorf("halgfx: create texture %q: %w", desc.Label, err)
	}
	view, err := d.device.CreateTextureView(raw, &hal.TextureViewDescriptor{
		Label:     desc.Label + "_view",
		Dimension: gputypes.TextureViewDimension2D,
	})
	if err != nil {
		d.device.DestroyTexture(raw)
		return nil, fmt.Errorf("halgfx: create view of %q: %w", desc.Label, err)
	}
	return &texture{dev: d, raw: raw, view: view, label: desc.Label,
		width: desc.Width, height: desc.Height, mips: mips, format: desc.Format}, nil
}

// CreateDescriptorHeap implements gfx.Device.
func (d *Device) CreateDescriptorHeap(desc *gfx.DescriptorHeapDesc) (gfx.DescriptorHeap, error) {
	if desc.NumDescriptors <= 0 {
		return nil, fmt.Errorf("halgfx: heap %q has no descriptors", desc.Label)
	}
	return &descriptorHeap{dev: d, label: desc.Label, slots: make([]heapSlot, desc.NumDescriptors)}, nil
}

// CreateRootSignature implements gfx.Device. Parameter i becomes bind
// group i. Static samplers are bound at binding 1 of the first SRV group.
func (d *Device) CreateRootSignature(desc *gfx.RootSignatureDesc) (gfx.RootSignature, error) {
	rs := &rootSignature{dev: d, params: append([]gfx.RootParameter(nil), desc.Parameters...), samplerParam: -1}
	for i, p := range desc.Parameters {
		entry := gputypes.BindGroupLayoutEntry{Binding: 0}
		setVisibility(&entry, p.Visibility)
		entries := []gputypes.BindGroupLayoutEntry{entry}
		switch p.Range {
		case gfx.RangeSRV:
			entries[0].Texture = &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			}
			if rs.samplerParam < 0 && len(desc.StaticSamplers) > 0 {
				rs.samplerParam = i
				s := gputypes.BindGroupLayoutEntry{
					Binding: 1,
					Sampler: &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
				}
				setVisibility(&s, p.Visibility)
				entries = append(entries, s)
			}
		case gfx.RangeCBV:
			entries[0].Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
		}
		layout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s_group%d", desc.Label, i),
			Entries: entries,
		})
		if err != nil {
			rs.Destroy()
			return nil, fmt.Errorf("halgfx: root signature %q parameter %d: %w", desc.Label, i, err)
		}
		rs.groups = append(rs.groups, layout)
	}
	if len(desc.StaticSamplers) > 0 {
		sampler, err := d.device.CreateSampler(samplerDescriptor(desc.Label+"_sampler", desc.StaticSamplers[0]))
		if err != nil {
			rs.Destroy()
			return nil, fmt.Errorf("halgfx: root signature %q sampler: %w", desc.Label, err)
		}
		rs.sampler = sampler
	}
	layout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: rs.groups,
	})
	if err != nil {
		rs.Destroy()
		return nil, fmt.Errorf("halgfx: root signature %q layout: %w", desc.Label, err)
	}
	rs.layout = layout
	return rs, nil
}

// CompileShader implements gfx.Device. WGSL is compiled to SPIR-V with
// naga. The entry point is vs_main or fs_main depending on stage.
func (d *Device) CompileShader(label, source string, stage gfx.ShaderStage) (gfx.ShaderBlob, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("halgfx: compile %s shader %q: %w", stage, label, err)
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: words},
	})
	if err != nil {
		return nil, fmt.Errorf("halgfx: shader module %q: %w", label, err)
	}
	return &shaderBlob{dev: d, module: module, stage: stage, code: spirvBytes}, nil
}

// CreatePipelineState implements gfx.Device.
func (d *Device) CreatePipelineState(desc *gfx.PipelineStateDesc) (gfx.PipelineState, error) {
	rs, ok := desc.RootSignature.(*rootSignature)
	if !ok {
		return nil, fmt.Errorf("halgfx: pipeline %q: foreign root signature %T", desc.Label, desc.RootSignature)
	}
	vs, ok1 := desc.VS.(*shaderBlob)
	fs, ok2 := desc.FS.(*shaderBlob)
	if !ok1 || !ok2 || vs.stage != gfx.StageVertex || fs.stage != gfx.StageFragment {
		return nil, fmt.Errorf("halgfx: pipeline %q needs a vertex and a fragment shader", desc.Label)
	}

	target := gputypes.ColorTargetState{
		Format:    textureFormat(desc.RenderFormat),
		WriteMask: gputypes.ColorWriteMaskAll,
	}
	if desc.AlphaBlend {
		target.Blend = &gputypes.BlendState{
			Color: gputypes.BlendComponent{
				SrcFactor: gputypes.BlendFactorSrcAlpha,
				DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
				Operation: gputypes.BlendOperationAdd,
			},
			Alpha: gputypes.BlendComponent{
				SrcFactor: gputypes.BlendFactorOne,
				DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
				Operation: gputypes.BlendOperationAdd,
			},
		}
	}
	primitive := gputypes.PrimitiveState{
		Topology: gputypes.PrimitiveTopologyTriangleList,
		CullMode: gputypes.CullModeNone,
	}
	if desc.Topology == gfx.TopologyLine {
		primitive.Topology = gputypes.PrimitiveTopologyLineList
	}

	pd := &hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: rs.layout,
		Vertex: hal.VertexState{
			Module:     vs.module,
			EntryPoint: "vs_main",
			Buffers:    vertexLayouts(desc.InputLayout),
		},
		Fragment: &hal.FragmentState{
			Module:     fs.module,
			EntryPoint: "fs_main",
			Targets:    []gputypes.ColorTargetState{target},
		},
		Primitive:   primitive,
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	}
	if desc.DepthFormat != gfx.FormatUnknown {
		ds := &hal.DepthStencilState{
			Format:            textureFormat(desc.DepthFormat),
			DepthWriteEnabled: desc.DepthTest,
			DepthCompare:      gputypes.CompareFunctionAlways,
			StencilFront:      keepStencil,
			StencilBack:       keepStencil,
		}
		if desc.DepthTest {
			ds.DepthCompare = gputypes.CompareFunctionLessEqual
		}
		pd.DepthStencil = ds
	}

	raw, err := d.device.CreateRenderPipeline(pd)
	if err != nil {
		return nil, fmt.Errorf("halgfx: create pipeline %q: %w", desc.Label, err)
	}
	return &pipelineState{dev: d, raw: raw, topology: desc.Topology}, nil
}

var keepStencil = hal.StencilFaceState{
	Compare:     gputypes.CompareFunctionAlways,
	FailOp:      hal.StencilOperationKeep,
	DepthFailOp: hal.StencilOperationKeep,
	PassOp:      hal.StencilOperationKeep,
}

// CreateCommandList implements gfx.Device.
func (d *Device) CreateCommandList(label string) (gfx.CommandList, error) {
	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("halgfx: create command encoder %q: %w", label, err)
	}
	return &commandList{dev: d, label: label, enc: enc}, nil
}

// CreateFence implements gfx.Device.
func (d *Device) CreateFence(initial uint64) (gfx.Fence, error) {
	raw, err := d.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("halgfx: create fence: %w", err)
	}
	return &fence{dev: d, raw: raw, completed: initial, submitted: initial}, nil
}

// CreateSwapChain implements gfx.Device.
func (d *Device) CreateSwapChain(desc *gfx.SwapChainDesc) (gfx.SwapChain, error) {
	if desc.BufferCount < 1 {
		return nil, fmt.Errorf("halgfx: swap chain needs at least one buffer")
	}
	sc := &swapChain{dev: d, surface: desc.Surface, format: desc.Format}
	if err := sc.build(desc.Width, desc.Height, desc.BufferCount); err != nil {
		return nil, err
	}
	return sc, nil
}

// Wait implements gfx.Device.
func (d *Device) Wait(f gfx.Fence, value uint64) error {
	fc, ok := f.(*fence)
	if !ok {
		return fmt.Errorf("halgfx: foreign fence %T", f)
	}
	if fc.Completed() >= value {
		return nil
	}
	for {
		done, err := d.device.Wait(fc.raw, value, waitSlice)
		if err != nil {
			return fmt.Errorf("halgfx: wait for fence value %d: %w", value, err)
		}
		if done {
			break
		}
		slogger().Warn("halgfx: still waiting for GPU", "value", value)
	}

	d.mu.Lock()
	fc.completed = max(fc.completed, value)
	var free []hal.BindGroup
	if value >= d.lastSubmit {
		free, d.retired = d.retired, nil
	}
	d.mu.Unlock()
	for _, bg := range free {
		d.device.DestroyBindGroup(bg)
	}
	return nil
}

// PollMessages implements gfx.Device.
func (d *Device) PollMessages() []gfx.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	msgs := d.messages
	d.messages = nil
	return msgs
}

// Destroy implements gfx.Device. A shared device is left alive.
func (d *Device) Destroy() {
	d.mu.Lock()
	retired := d.retired
	d.retired = nil
	d.mu.Unlock()
	for _, bg := range retired {
		d.device.DestroyBindGroup(bg)
	}
	if d.external {
		return
	}
	d.device.Destroy()
	if d.instance != nil {
		d.instance.Destroy()
	}
}

type queue struct {
	dev *Device
}

func (q *queue) Submit(lists []gfx.CommandList, f gfx.Fence, value uint64) error {
	bufs := make([]hal.CommandBuffer, 0, len(lists))
	for _, l := range lists {
		cl, ok := l.(*commandList)
		if !ok {
			return fmt.Errorf("halgfx: foreign command list %T", l)
		}
		if cl.open || cl.cmdBuf == nil {
			return fmt.Errorf("halgfx: command list %q is not closed", cl.label)
		}
		bufs = append(bufs, cl.cmdBuf)
	}
	var raw hal.Fence
	if f != nil {
		fc, ok := f.(*fence)
		if !ok {
			return fmt.Errorf("halgfx: foreign fence %T", f)
		}
		raw = fc.raw
		q.dev.mu.Lock()
		fc.submitted = max(fc.submitted, value)
		q.dev.lastSubmit = max(q.dev.lastSubmit, value)
		q.dev.mu.Unlock()
	}
	if err := q.dev.queue.Submit(bufs, raw, value); err != nil {
		return fmt.Errorf("halgfx: submit: %w", err)
	}
	return nil
}
