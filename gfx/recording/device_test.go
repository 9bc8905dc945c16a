package recording

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/rlgl/gfx"
)

func mustBuffer(t *testing.T, d *Device, desc gfx.BufferDesc) *Buffer {
	t.Helper()
	b, err := d.CreateBuffer(&desc)
	if err != nil {
		t.Fatalf("CreateBuffer(%q) error = %v", desc.Label, err)
	}
	return b.(*Buffer)
}

func mustTexture(t *testing.T, d *Device, desc gfx.TextureDesc) *Texture {
	t.Helper()
	tex, err := d.CreateTexture(&desc)
	if err != nil {
		t.Fatalf("CreateTexture(%q) error = %v", desc.Label, err)
	}
	return tex.(*Texture)
}

func mustList(t *testing.T, d *Device) *CommandList {
	t.Helper()
	l, err := d.CreateCommandList("test")
	if err != nil {
		t.Fatalf("CreateCommandList() error = %v", err)
	}
	if err := l.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	return l.(*CommandList)
}

func submit(t *testing.T, d *Device, l *CommandList) {
	t.Helper()
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := d.Queue().Submit([]gfx.CommandList{l}, nil, 0); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
}

func TestBufferHeapAccess(t *testing.T) {
	d := New()
	up := mustBuffer(t, d, gfx.BufferDesc{Label: "up", Size: 16, Heap: gfx.HeapUpload})
	gpu := mustBuffer(t, d, gfx.BufferDesc{Label: "gpu", Size: 16, Heap: gfx.HeapDefault})

	if err := up.Write(0, []byte{1, 2, 3}); err != nil {
		t.Errorf("upload Write() error = %v", err)
	}
	if err := up.Write(14, []byte{1, 2, 3}); err == nil {
		t.Error("overflowing Write() succeeded")
	}
	if err := gpu.Write(0, []byte{1}); err == nil {
		t.Error("Write() to default heap succeeded")
	}
	if err := up.Read(0, make([]byte, 1)); err == nil {
		t.Error("Read() from upload heap succeeded")
	}
}

func TestCopyBufferAndBarriers(t *testing.T) {
	d := New()
	up := mustBuffer(t, d, gfx.BufferDesc{Label: "up", Size: 8, Heap: gfx.HeapUpload})
	vb := mustBuffer(t, d, gfx.BufferDesc{Label: "vb", Size: 8, InitialState: gfx.StateVertexBuffer})
	if err := up.Write(0, []byte{1, 2, 3, 4, 5, 6, 7, 8}); err != nil {
		t.Fatal(err)
	}

	l := mustList(t, d)
	l.ResourceBarrier(gfx.BufferTransition(vb, gfx.StateVertexBuffer, gfx.StateCopyDest))
	l.CopyBufferRegion(vb, 2, up, 0, 4)
	l.ResourceBarrier(gfx.BufferTransition(vb, gfx.StateCopyDest, gfx.StateVertexBuffer))
	submit(t, d, l)

	if got := vb.Bytes()[2:6]; string(got) != string([]byte{1, 2, 3, 4}) {
		t.Errorf("vb[2:6] = %v, want [1 2 3 4]", got)
	}
	if vb.State() != gfx.StateVertexBuffer {
		t.Errorf("vb state = %v, want VertexBuffer", vb.State())
	}
	if msgs := d.PollMessages(); len(msgs) != 0 {
		t.Errorf("unexpected messages: %v", msgs)
	}
}

func TestBarrierMismatchIsReported(t *testing.T) {
	d := New()
	vb := mustBuffer(t, d, gfx.BufferDesc{Label: "vb", Size: 4, InitialState: gfx.StateVertexBuffer})

	l := mustList(t, d)
	l.ResourceBarrier(gfx.BufferTransition(vb, gfx.StateCopySource, gfx.StateCopyDest))
	submit(t, d, l)

	msgs := d.PollMessages()
	if len(msgs) != 1 || msgs[0].Severity != gfx.SeverityWarning {
		t.Fatalf("messages = %v, want one warning", msgs)
	}
	if !strings.Contains(msgs[0].Text, `"vb"`) {
		t.Errorf("message %q does not name the resource", msgs[0].Text)
	}
	if vb.State() != gfx.StateCopyDest {
		t.Errorf("state after barrier = %v, want CopyDest", vb.State())
	}
}

func TestTextureRoundTrip(t *testing.T) {
	d := New()
	tex := mustTexture(t, d, gfx.TextureDesc{Label: "t", Width: 2, Height: 2, MipLevels: 1,
		Format: gfx.FormatRGBA8Unorm, InitialState: gfx.StateCopyDest})
	pitch := gfx.RowPitch(2, 4)
	up := mustBuffer(t, d, gfx.BufferDesc{Label: "up", Size: uint64(pitch) * 2, Heap: gfx.HeapUpload})
	rb := mustBuffer(t, d, gfx.BufferDesc{Label: "rb", Size: uint64(pitch) * 2, Heap: gfx.HeapReadback,
		InitialState: gfx.StateCopyDest})

	src := make([]byte, pitch*2)
	for i := 0; i < 8; i++ {
		src[i] = byte(i + 1)
		src[int(pitch)+i] = byte(i + 9)
	}
	if err := up.Write(0, src); err != nil {
		t.Fatal(err)
	}

	fp := gfx.Footprint{RowPitch: pitch, Width: 2, Height: 2}
	l := mustList(t, d)
	l.CopyBufferToTexture(tex, up, fp)
	l.ResourceBarrier(gfx.TextureTransition(tex, gfx.StateCopyDest, gfx.StateCopySource))
	l.CopyTextureToBuffer(rb, tex, fp)
	submit(t, d, l)

	px := tex.Pixels(0)
	for i := 0; i < 16; i++ {
		if px[i] != byte(i+1) {
			t.Fatalf("texel byte %d = %d, want %d", i, px[i], i+1)
		}
	}
	out := make([]byte, 8)
	if err := rb.Read(uint64(pitch), out); err != nil {
		t.Fatal(err)
	}
	if out[0] != 9 || out[7] != 16 {
		t.Errorf("readback row 1 = %v", out)
	}
	if msgs := d.PollMessages(); len(msgs) != 0 {
		t.Errorf("unexpected messages: %v", msgs)
	}
}

func TestClearRenderTarget(t *testing.T) {
	d := New()
	rt := mustTexture(t, d, gfx.TextureDesc{Label: "rt", Width: 2, Height: 1, Format: gfx.FormatRGBA8Unorm,
		InitialState: gfx.StateRenderTarget})

	l := mustList(t, d)
	l.SetRenderTargets(rt, nil)
	l.ClearRenderTarget([4]float32{1, 0, 0.5, 1})
	submit(t, d, l)

	want := []byte{255, 0, 128, 255, 255, 0, 128, 255}
	if got := rt.Pixels(0); string(got) != string(want) {
		t.Errorf("pixels = %v, want %v", got, want)
	}
}

func TestDrawValidation(t *testing.T) {
	d := New()
	l := mustList(t, d)
	l.DrawInstanced(3, 1, 0, 0)
	submit(t, d, l)

	msgs := d.PollMessages()
	if len(msgs) != 1 || msgs[0].Severity != gfx.SeverityError {
		t.Fatalf("messages = %v, want one error", msgs)
	}
	if n := len(d.Commands(CmdDraw)); n != 1 {
		t.Errorf("recorded draws = %d, want 1", n)
	}
}

func TestCommandListLifecycle(t *testing.T) {
	d := New()
	raw, _ := d.CreateCommandList("l")
	l := raw.(*CommandList)

	l.DrawInstanced(3, 1, 0, 0)
	if len(l.Recorded()) != 0 {
		t.Error("closed list recorded a command")
	}
	if len(d.PollMessages()) != 1 {
		t.Error("recording into a closed list was not reported")
	}

	if err := l.Close(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Close() of closed list error = %v, want ErrNotRecording", err)
	}
	if err := l.Reset(); err != nil {
		t.Fatal(err)
	}
	if err := l.Reset(); err == nil {
		t.Error("Reset() of open list succeeded")
	}
	if err := d.Queue().Submit([]gfx.CommandList{l}, nil, 0); err == nil {
		t.Error("Submit() of open list succeeded")
	}
}

func TestFenceAndWait(t *testing.T) {
	d := New()
	f, _ := d.CreateFence(0)
	l := mustList(t, d)
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if err := d.Queue().Submit([]gfx.CommandList{l}, f, 3); err != nil {
		t.Fatal(err)
	}
	if f.Completed() != 3 {
		t.Errorf("Completed() = %d, want 3", f.Completed())
	}
	if err := d.Wait(f, 3); err != nil {
		t.Errorf("Wait(3) error = %v", err)
	}
	if err := d.Wait(f, 4); !errors.Is(err, ErrFenceNotReached) {
		t.Errorf("Wait(4) error = %v, want ErrFenceNotReached", err)
	}
}

func TestFailNext(t *testing.T) {
	d := New()
	d.FailNext(OpCreateTexture, 1)
	desc := &gfx.TextureDesc{Width: 1, Height: 1, Format: gfx.FormatRGBA8Unorm}
	if _, err := d.CreateTexture(desc); !errors.Is(err, ErrInjected) {
		t.Fatalf("first CreateTexture() error = %v, want ErrInjected", err)
	}
	if _, err := d.CreateTexture(desc); err != nil {
		t.Fatalf("second CreateTexture() error = %v", err)
	}
}

func TestLiveObjects(t *testing.T) {
	d := New()
	b := mustBuffer(t, d, gfx.BufferDesc{Size: 4})
	sc, err := d.CreateSwapChain(&gfx.SwapChainDesc{Width: 4, Height: 4, BufferCount: 2,
		Format: gfx.FormatRGBA8Unorm})
	if err != nil {
		t.Fatal(err)
	}
	live := d.LiveObjects()
	if live["buffer"] != 1 || live["texture"] != 2 || live["swap chain"] != 1 {
		t.Errorf("LiveObjects() = %v", live)
	}

	b.Destroy()
	b.Destroy()
	sc.Destroy()
	if live := d.LiveObjects(); len(live) != 0 {
		t.Errorf("LiveObjects() after destroy = %v, want empty", live)
	}
}

type countingSurface struct {
	gfx.OffscreenSurface
	frames int
}

func (s *countingSurface) PresentFrame(gfx.Texture) error {
	s.frames++
	return nil
}

func TestSwapChainPresent(t *testing.T) {
	d := New()
	surf := &countingSurface{OffscreenSurface: gfx.OffscreenSurface{Width: 4, Height: 4}}
	raw, err := d.CreateSwapChain(&gfx.SwapChainDesc{Surface: surf, Width: 4, Height: 4, BufferCount: 2,
		Format: gfx.FormatRGBA8Unorm})
	if err != nil {
		t.Fatal(err)
	}
	sc := raw.(*SwapChain)

	for i := 0; i < 3; i++ {
		if err := sc.Present(); err != nil {
			t.Fatal(err)
		}
	}
	if sc.CurrentIndex() != 1 {
		t.Errorf("CurrentIndex() = %d, want 1", sc.CurrentIndex())
	}
	if surf.frames != 3 || d.Presents() != 3 {
		t.Errorf("frames = %d, presents = %d, want 3", surf.frames, d.Presents())
	}

	if err := sc.Resize(8, 2); err != nil {
		t.Fatal(err)
	}
	if bb := sc.Buffer(0); bb.Width() != 8 || bb.Height() != 2 {
		t.Errorf("back buffer after resize = %dx%d", bb.Width(), bb.Height())
	}
	if sc.CurrentIndex() != 0 {
		t.Errorf("CurrentIndex() after resize = %d, want 0", sc.CurrentIndex())
	}
}

func TestSwapChainResizeAfterFailure(t *testing.T) {
	d := New()
	raw, err := d.CreateSwapChain(&gfx.SwapChainDesc{Width: 4, Height: 4, BufferCount: 3,
		Format: gfx.FormatRGBA8Unorm})
	if err != nil {
		t.Fatal(err)
	}
	sc := raw.(*SwapChain)

	d.FailNext(OpCreateTexture, 1)
	if err := sc.Resize(8, 8); !errors.Is(err, ErrInjected) {
		t.Fatalf("Resize() = %v, want the injected failure", err)
	}
	if sc.BufferCount() != 0 || d.LiveObjects()["texture"] != 0 {
		t.Errorf("failed resize left %d buffers, %d live textures", sc.BufferCount(), d.LiveObjects()["texture"])
	}
	if err := sc.Resize(4, 4); err != nil {
		t.Fatalf("Resize() after failure = %v", err)
	}
	if sc.BufferCount() != 3 {
		t.Errorf("BufferCount() = %d, want 3", sc.BufferCount())
	}
}

func TestConstantBufferViewAlignment(t *testing.T) {
	d := New()
	heap, _ := d.CreateDescriptorHeap(&gfx.DescriptorHeapDesc{NumDescriptors: 2})
	cb := mustBuffer(t, d, gfx.BufferDesc{Size: 512, Heap: gfx.HeapUpload})

	if err := heap.CreateConstantBufferView(0, cb, 256, 256); err != nil {
		t.Errorf("aligned view error = %v", err)
	}
	if err := heap.CreateConstantBufferView(0, cb, 64, 256); err == nil {
		t.Error("misaligned view succeeded")
	}
	if err := heap.CreateConstantBufferView(2, cb, 0, 256); err == nil {
		t.Error("out-of-range slot succeeded")
	}
}
