package recording

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gogpu/rlgl/gfx"
)

// BackendName is the registry name of the recording backend.
const BackendName = "recording"

func init() {
	gfx.Register(BackendName, 0, func(gfx.OpenOptions) (gfx.Device, error) {
		return New(), nil
	}, nil)
}

// Errors reported by the recording device.
var (
	// ErrInjected is wrapped by failures set up with FailNext.
	ErrInjected = errors.New("recording: injected failure")

	// ErrNotRecording is returned when recording into a closed list.
	ErrNotRecording = errors.New("recording: command list is not open")

	// ErrFenceNotReached is returned by Wait for a value no submission
	// will signal. A hardware device would block forever.
	ErrFenceNotReached = errors.New("recording: fence value never signaled")

	// ErrDestroyed is returned when using a destroyed object.
	ErrDestroyed = errors.New("recording: object destroyed")
)

// Op names a device entry point for failure injection.
type Op string

// Injectable operations.
const (
	OpCreateBuffer         Op = "CreateBuffer"
	OpCreateTexture        Op = "CreateTexture"
	OpCreateDescriptorHeap Op = "CreateDescriptorHeap"
	OpCreateRootSignature  Op = "CreateRootSignature"
	OpCompileShader        Op = "CompileShader"
	OpCreatePipelineState  Op = "CreatePipelineState"
	OpCreateCommandList    Op = "CreateCommandList"
	OpCreateFence          Op = "CreateFence"
	OpCreateSwapChain      Op = "CreateSwapChain"
	OpSubmit               Op = "Submit"
)

// Submission is one executed command list.
type Submission struct {
	Label    string
	Commands []Command
}

// Device is an in-memory gfx.Device.
type Device struct {
	mu sync.Mutex

	info     gfx.AdapterInfo
	limits   gfx.Limits
	queue    *queue
	fail     map[Op]int
	live     map[string]int
	messages []gfx.Message
	subs     []Submission
	presents int
}

var _ gfx.Device = (*Device)(nil)

// New creates a recording device.
func New() *Device {
	d := &Device{
		info: gfx.AdapterInfo{Name: "recording", Backend: BackendName, Software: true},
		limits: gfx.Limits{
			ConstantBufferAlignment: 256,
			MaxTextureDimension:     16384,
		},
		fail: make(map[Op]int),
		live: make(map[string]int),
	}
	d.queue = &queue{dev: d}
	return d
}

// FailNext makes the next n calls of op fail with ErrInjected.
func (d *Device) FailNext(op Op, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail[op] += n
}

func (d *Device) injected(op Op) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail[op] > 0 {
		d.fail[op]--
		return fmt.Errorf("%w: %s", ErrInjected, op)
	}
	return nil
}

func (d *Device) track(kind string, delta int) {
	d.mu.Lock()
	d.live[kind] += delta
	d.mu.Unlock()
}

// LiveObjects returns the number of objects created and not yet destroyed,
// by kind ("buffer", "texture", ...).
func (d *Device) LiveObjects() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]int, len(d.live))
	for k, v := range d.live {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

// Submissions returns every executed command list in submission order.
func (d *Device) Submissions() []Submission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Submission(nil), d.subs...)
}

// Commands returns every executed command of the given types, in order.
// With no types it returns all commands.
func (d *Device) Commands(types ...CommandType) []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Command
	for _, s := range d.subs {
		for _, c := range s.Commands {
			if len(types) == 0 || containsType(types, c.Type()) {
				out = append(out, c)
			}
		}
	}
	return out
}

func containsType(types []CommandType, t CommandType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

// ResetLog forgets recorded submissions and pending messages.
func (d *Device) ResetLog() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = nil
	d.messages = nil
}

// Presents returns how many frames were presented.
func (d *Device) Presents() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presents
}

func (d *Device) report(sev gfx.Severity, format string, args ...any) {
	d.mu.Lock()
	d.messages = append(d.messages, gfx.Message{Severity: sev, Text: fmt.Sprintf(format, args...)})
	d.mu.Unlock()
}

// Info implements gfx.Device.
func (d *Device) Info() gfx.AdapterInfo { return d.info }

// Limits implements gfx.Device.
func (d *Device) Limits() gfx.Limits { return d.limits }

// Queue implements gfx.Device.
func (d *Device) Queue() gfx.CommandQueue { return d.queue }

// CreateBuffer implements gfx.Device.
func (d *Device) CreateBuffer(desc *gfx.BufferDesc) (gfx.Buffer, error) {
	if err := d.injected(OpCreateBuffer); err != nil {
		return nil, err
	}
	if desc.Size == 0 {
		return nil, fmt.Errorf("recording: buffer %q has zero size", desc.Label)
	}
	d.track("buffer", 1)
	return &Buffer{dev: d, label: desc.Label, heap: desc.Heap, usage: desc.Usage,
		state: desc.InitialState, data: make([]byte, desc.Size)}, nil
}

// CreateTexture implements gfx.Device.
func (d *Device) CreateTexture(desc *gfx.TextureDesc) (gfx.Texture, error) {
	if err := d.injected(OpCreateTexture); err != nil {
		return nil, err
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("recording: texture %q has zero size", desc.Label)
	}
	if desc.Width > d.limits.MaxTextureDimension || desc.Height > d.limits.MaxTextureDimension {
		return nil, fmt.Errorf("recording: texture %q exceeds %d texels", desc.Label, d.limits.MaxTextureDimension)
	}
	mips := desc.MipLevels
	if mips == 0 {
		mips = 1
	}
	t := &Texture{dev: d, label: desc.Label, width: desc.Width, height: desc.Height,
		mips: mips, format: desc.Format, state: desc.InitialState}
	bpp := desc.Format.BytesPerPixel()
	if bpp == 0 {
		bpp = 4
	}
	w, h := desc.Width, desc.Height
	for i := uint32(0); i < mips; i++ {
		t.levels = append(t.levels, make([]byte, int(w)*int(h)*bpp))
		w, h = max(w/2, 1), max(h/2, 1)
	}
	d.track("texture", 1)
	return t, nil
}

// CreateDescriptorHeap implements gfx.Device.
func (d *Device) CreateDescriptorHeap(desc *gfx.DescriptorHeapDesc) (gfx.DescriptorHeap, error) {
	if err := d.injected(OpCreateDescriptorHeap); err != nil {
		return nil, err
	}
	if desc.NumDescriptors <= 0 {
		return nil, fmt.Errorf("recording: heap %q has no descriptors", desc.Label)
	}
	d.track("descriptor heap", 1)
	return &DescriptorHeap{dev: d, slots: make([]descriptor, desc.NumDescriptors)}, nil
}

// CreateRootSignature implements gfx.Device.
func (d *Device) CreateRootSignature(desc *gfx.RootSignatureDesc) (gfx.RootSignature, error) {
	if err := d.injected(OpCreateRootSignature); err != nil {
		return nil, err
	}
	d.track("root signature", 1)
	return &RootSignature{dev: d, params: append([]gfx.RootParameter(nil), desc.Parameters...),
		samplers: append([]gfx.StaticSampler(nil), desc.StaticSamplers...)}, nil
}

// CompileShader implements gfx.Device. The source must declare an entry
// point for the requested stage.
func (d *Device) CompileShader(label, source string, stage gfx.ShaderStage) (gfx.ShaderBlob, error) {
	if err := d.injected(OpCompileShader); err != nil {
		return nil, err
	}
	var attr string
	switch stage {
	case gfx.StageVertex:
		attr = "@vertex"
	case gfx.StageFragment:
		attr = "@fragment"
	default:
		return nil, fmt.Errorf("recording: shader %q: unknown stage %v", label, stage)
	}
	if !strings.Contains(source, attr) {
		return nil, fmt.Errorf("recording: shader %q: no %s entry point", label, attr)
	}
	d.track("shader", 1)
	return &ShaderBlob{dev: d, stage: stage, code: []byte(source)}, nil
}

// CreatePipelineState implements gfx.Device.
func (d *Device) CreatePipelineState(desc *gfx.PipelineStateDesc) (gfx.PipelineState, error) {
	if err := d.injected(OpCreatePipelineState); err != nil {
		return nil, err
	}
	if desc.RootSignature == nil {
		return nil, fmt.Errorf("recording: pipeline %q has no root signature", desc.Label)
	}
	if desc.VS == nil || desc.VS.Stage() != gfx.StageVertex {
		return nil, fmt.Errorf("recording: pipeline %q: VS is not a vertex shader", desc.Label)
	}
	if desc.FS == nil || desc.FS.Stage() != gfx.StageFragment {
		return nil, fmt.Errorf("recording: pipeline %q: FS is not a fragment shader", desc.Label)
	}
	d.track("pipeline", 1)
	return &PipelineState{dev: d, label: desc.Label, topology: desc.Topology,
		layout: append([]gfx.InputElement(nil), desc.InputLayout...)}, nil
}

// CreateCommandList implements gfx.Device.
func (d *Device) CreateCommandList(label string) (gfx.CommandList, error) {
	if err := d.injected(OpCreateCommandList); err != nil {
		return nil, err
	}
	d.track("command list", 1)
	return &CommandList{dev: d, label: label}, nil
}

// CreateFence implements gfx.Device.
func (d *Device) CreateFence(initial uint64) (gfx.Fence, error) {
	if err := d.injected(OpCreateFence); err != nil {
		return nil, err
	}
	d.track("fence", 1)
	return &Fence{dev: d, value: initial}, nil
}

// CreateSwapChain implements gfx.Device.
func (d *Device) CreateSwapChain(desc *gfx.SwapChainDesc) (gfx.SwapChain, error) {
	if err := d.injected(OpCreateSwapChain); err != nil {
		return nil, err
	}
	if desc.BufferCount < 1 {
		return nil, fmt.Errorf("recording: swap chain needs at least one buffer")
	}
	sc := &SwapChain{dev: d, surface: desc.Surface, format: desc.Format}
	if err := sc.build(desc.Width, desc.Height, desc.BufferCount); err != nil {
		return nil, err
	}
	d.track("swap chain", 1)
	return sc, nil
}

// Wait implements gfx.Device. Work completes at submission, so waiting for
// a value that has not been signaled can never succeed.
func (d *Device) Wait(fence gfx.Fence, value uint64) error {
	f, ok := fence.(*Fence)
	if !ok {
		return fmt.Errorf("recording: foreign fence %T", fence)
	}
	if f.Completed() < value {
		return fmt.Errorf("%w: have %d, want %d", ErrFenceNotReached, f.Completed(), value)
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

// Destroy implements gfx.Device.
func (d *Device) Destroy() {
	for kind, n := range d.LiveObjects() {
		d.report(gfx.SeverityWarning, "device destroyed with %d live %s object(s)", n, kind)
	}
}

type queue struct {
	dev *Device
}

func (q *queue) Submit(lists []gfx.CommandList, fence gfx.Fence, value uint64) error {
	if err := q.dev.injected(OpSubmit); err != nil {
		return err
	}
	for _, l := range lists {
		cl, ok := l.(*CommandList)
		if !ok {
			return fmt.Errorf("recording: foreign command list %T", l)
		}
		if cl.open {
			return fmt.Errorf("recording: command list %q submitted while open", cl.label)
		}
		cl.execute()
		q.dev.mu.Lock()
		q.dev.subs = append(q.dev.subs, Submission{Label: cl.label, Commands: append([]Command(nil), cl.cmds...)})
		q.dev.mu.Unlock()
	}
	if fence != nil {
		f, ok := fence.(*Fence)
		if !ok {
			return fmt.Errorf("recording: foreign fence %T", fence)
		}
		f.signal(value)
	}
	return nil
}
