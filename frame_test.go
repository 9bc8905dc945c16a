package rlgl

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/gogpu/rlgl/gfx"
	"github.com/gogpu/rlgl/gfx/recording"
)

func TestFrame_TexturedQuad(t *testing.T) {
	rc, dev, logs := newTestContext(t)
	if rc.Width() != 800 || rc.Height() != 600 {
		t.Fatalf("size = %dx%d, want 800x600", rc.Width(), rc.Height())
	}

	id, err := rc.LoadTexture([]byte{255, 255, 255, 255}, 1, 1, PixelFormatR8G8B8A8, 1)
	if err != nil || id == 0 {
		t.Fatalf("LoadTexture() = %d, %v", id, err)
	}
	rc.SetTexture(id)
	rc.Begin(Quads)
	rc.Vertex2f(0, 0)
	rc.Vertex2f(0, 100)
	rc.Vertex2f(100, 100)
	rc.Vertex2f(100, 0)
	rc.End()

	draws := rc.batch.DrawCalls()
	want := DrawCall{Mode: Quads, VertexCount: 4, TextureID: id}
	if len(draws) != 1 || draws[0] != want {
		t.Fatalf("draw calls = %+v, want [%+v]", draws, want)
	}

	if err := rc.Present(); err != nil {
		t.Fatalf("Present() = %v", err)
	}
	indexed := indexedDraws(dev)
	if len(indexed) != 1 {
		t.Fatalf("got %d indexed draws, want 1", len(indexed))
	}
	if d := indexed[0]; d.IndexCount != 6 || d.InstanceCount != 1 || d.StartIndex != 0 {
		t.Errorf("indexed draw = %+v, want 6 indices from 0", d)
	}

	tex, _ := rc.resolveTexture(id)
	bound := false
	for _, c := range dev.Commands(recording.CmdSetDescriptorTable) {
		if dt := c.(recording.SetDescriptorTable); dt.Param == paramTexture && dt.Slot == tex.slot {
			bound = true
		}
	}
	if !bound {
		t.Errorf("texture slot %d was never bound", tex.slot)
	}

	if msgs := logs.atLeast(slog.LevelWarn); len(msgs) != 0 {
		t.Errorf("unexpected warnings or errors: %v", msgs)
	}
	if logs.has(slog.LevelInfo, "rlgl: device message") {
		t.Error("the device reported a validation message")
	}
	if dev.Presents() != 1 {
		t.Errorf("Presents() = %d, want 1", dev.Presents())
	}

	st := rc.Stats()
	if st.Frame != 0 || st.DrawCalls != 1 || st.Flushes != 1 || st.Vertices != 4 || st.Submits != 1 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestFrame_UnknownTextureFallsBack(t *testing.T) {
	rc, dev, logs := newTestContext(t)

	rc.SetTexture(7)
	drawQuad(rc, 10, 10, 20)

	if !logs.has(slog.LevelWarn, "rlgl: texture not loaded, using default texture") {
		t.Error("no warning for an unknown texture id")
	}
	draws := rc.batch.DrawCalls()
	if len(draws) != 1 || draws[0].TextureID != rc.DefaultTextureID() {
		t.Fatalf("draw calls = %+v, want one call on the default texture", draws)
	}
	if err := rc.Present(); err != nil {
		t.Fatalf("Present() = %v", err)
	}
	if len(indexedDraws(dev)) != 1 {
		t.Error("quad on the default texture was not drawn")
	}
	if logs.count(slog.LevelError) != 0 {
		t.Errorf("unexpected errors: %v", logs.atLeast(slog.LevelError))
	}
}

func TestFrame_ConsecutiveFrames(t *testing.T) {
	rc, dev, logs := newTestContext(t)

	for frame := 0; frame < 5; frame++ {
		drawQuad(rc, float32(frame), 0, 10)
		if err := rc.Present(); err != nil {
			t.Fatalf("Present() frame %d = %v", frame, err)
		}
		if st := rc.Stats(); st.Frame != uint64(frame) || st.DrawCalls != 1 {
			t.Errorf("frame %d stats = %+v", frame, st)
		}
	}
	if dev.Presents() != 5 {
		t.Errorf("Presents() = %d, want 5", dev.Presents())
	}
	if len(dev.Submissions()) != 5 {
		t.Errorf("submissions = %d, want one per frame", len(dev.Submissions()))
	}
	if msgs := logs.atLeast(slog.LevelWarn); len(msgs) != 0 {
		t.Errorf("unexpected warnings: %v", msgs)
	}
	if logs.has(slog.LevelInfo, "rlgl: device message") {
		t.Error("the device reported a validation message")
	}
}

func TestFrame_RenderBufferReuseSubmitsEarly(t *testing.T) {
	rc, dev, logs := newTestContext(t)

	// The default batch has two render buffers; the third flush reuses
	// the first within the same frame.
	for i := 0; i < 3; i++ {
		drawQuad(rc, float32(i*10), 0, 5)
		rc.DrawRenderBatchActive()
	}
	if err := rc.Present(); err != nil {
		t.Fatalf("Present() = %v", err)
	}
	st := rc.Stats()
	if st.Flushes != 3 || st.DrawCalls != 3 || st.Submits != 2 {
		t.Errorf("Stats() = %+v, want 3 flushes, 3 draws, 2 submits", st)
	}
	if len(indexedDraws(dev)) != 3 {
		t.Errorf("indexed draws = %d, want 3", len(indexedDraws(dev)))
	}
	if msgs := logs.atLeast(slog.LevelWarn); len(msgs) != 0 {
		t.Errorf("unexpected warnings: %v", msgs)
	}
	if logs.has(slog.LevelInfo, "rlgl: device message") {
		t.Error("the device reported a validation message")
	}
}

func TestFrame_ConstantRegionsSubmitEarly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConstantSlots = 2
	cfg.Batch.Buffers = 8
	rc, _, _ := newTestContext(t, WithConfig(cfg))

	for i := 0; i < 5; i++ {
		drawQuad(rc, 0, 0, 5)
		rc.DrawRenderBatchActive()
	}
	if err := rc.Present(); err != nil {
		t.Fatalf("Present() = %v", err)
	}
	if st := rc.Stats(); st.Submits != 3 {
		t.Errorf("Submits = %d, want 3 for 5 flushes over 2 constant regions", st.Submits)
	}
}

func TestFrame_ClearColorReadback(t *testing.T) {
	rc, _, _ := newTestContext(t)
	rc.ClearColor(255, 0, 0, 255)
	if err := rc.Present(); err != nil {
		t.Fatalf("Present() = %v", err)
	}

	pix, err := rc.ReadScreenPixels()
	if err != nil {
		t.Fatalf("ReadScreenPixels() = %v", err)
	}
	if len(pix) != 800*600*4 {
		t.Fatalf("len = %d, want %d", len(pix), 800*600*4)
	}
	for _, i := range []int{0, 4 * 799, len(pix) - 4} {
		if got := pix[i : i+4]; got[0] != 255 || got[1] != 0 || got[2] != 0 || got[3] != 255 {
			t.Errorf("pixel at byte %d = %v, want red", i, got)
		}
	}
	if err := rc.Present(); err != nil {
		t.Errorf("Present() after readback = %v", err)
	}
}

func TestFrame_Resize(t *testing.T) {
	rc, _, logs := newTestContext(t)
	drawQuad(rc, 0, 0, 10)

	if err := rc.Resize(320, 240); err != nil {
		t.Fatalf("Resize() = %v", err)
	}
	if rc.Width() != 320 || rc.Height() != 240 {
		t.Errorf("size = %dx%d, want 320x240", rc.Width(), rc.Height())
	}
	if rc.MatrixProjection() != Ortho(0, 320, 240, 0, 0, 1) {
		t.Error("projection was not reset to the new size")
	}
	pix, err := rc.ReadScreenPixels()
	if err != nil {
		t.Fatalf("ReadScreenPixels() = %v", err)
	}
	if len(pix) != 320*240*4 {
		t.Errorf("len = %d, want %d", len(pix), 320*240*4)
	}
	drawQuad(rc, 0, 0, 10)
	if err := rc.Present(); err != nil {
		t.Fatalf("Present() = %v", err)
	}
	if msgs := logs.atLeast(slog.LevelWarn); len(msgs) != 0 {
		t.Errorf("unexpected warnings: %v", msgs)
	}
	if logs.has(slog.LevelInfo, "rlgl: device message") {
		t.Error("the device reported a validation message")
	}

	if err := rc.Resize(0, 10); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("Resize(0, 10) = %v, want ErrInvalidSize", err)
	}
}

// depthFailDevice fails the next fail depth buffer creations.
type depthFailDevice struct {
	*recording.Device
	fail int
}

func (d *depthFailDevice) CreateTexture(desc *gfx.TextureDesc) (gfx.Texture, error) {
	if desc.Format == gfx.FormatDepth32Float && d.fail > 0 {
		d.fail--
		return nil, recording.ErrInjected
	}
	return d.Device.CreateTexture(desc)
}

func TestFrame_ResizeFailureKeepsOldSize(t *testing.T) {
	tests := []struct {
		name   string
		inject func(dev *recording.Device, wrap *depthFailDevice)
	}{
		{"swap chain", func(dev *recording.Device, _ *depthFailDevice) { dev.FailNext(recording.OpCreateTexture, 1) }},
		{"depth buffer", func(_ *recording.Device, wrap *depthFailDevice) { wrap.fail = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := recording.New()
			wrap := &depthFailDevice{Device: dev}
			rc, _, logs := newTestContext(t, WithDevice(wrap))
			drawQuad(rc, 0, 0, 10)
			textures := dev.LiveObjects()["texture"]

			tt.inject(dev, wrap)
			err := rc.Resize(320, 240)
			if !errors.Is(err, recording.ErrInjected) {
				t.Fatalf("Resize() = %v, want the injected failure", err)
			}
			if errors.Is(err, ErrClosed) {
				t.Fatal("a recoverable resize failure closed the context")
			}
			if rc.Width() != 800 || rc.Height() != 600 {
				t.Errorf("size = %dx%d, want 800x600 kept", rc.Width(), rc.Height())
			}
			if rc.MatrixProjection() != Ortho(0, 800, 600, 0, 0, 1) {
				t.Error("projection changed on a failed resize")
			}
			if got := dev.LiveObjects()["texture"]; got != textures {
				t.Errorf("live textures = %d, want %d", got, textures)
			}

			drawQuad(rc, 0, 0, 10)
			if err := rc.Present(); err != nil {
				t.Fatalf("Present() after failed resize = %v", err)
			}
			pix, err := rc.ReadScreenPixels()
			if err != nil {
				t.Fatalf("ReadScreenPixels() = %v", err)
			}
			if len(pix) != 800*600*4 {
				t.Errorf("len = %d, want %d", len(pix), 800*600*4)
			}
			if logs.has(slog.LevelInfo, "rlgl: device message") {
				t.Error("the device reported a validation message")
			}

			if err := rc.Resize(320, 240); err != nil {
				t.Fatalf("Resize() after recovery = %v", err)
			}
		})
	}
}

func TestFrame_ResizeUnrecoverableClosesContext(t *testing.T) {
	dev := recording.New()
	rc, _, logs := newTestContext(t, WithDevice(dev))
	drawQuad(rc, 0, 0, 10)

	// The resize and the restore of the old size both fail.
	dev.FailNext(recording.OpCreateTexture, 2)
	err := rc.Resize(320, 240)
	if !errors.Is(err, recording.ErrInjected) || !errors.Is(err, ErrClosed) {
		t.Fatalf("Resize() = %v, want the injected failure and ErrClosed", err)
	}
	if !logs.has(slog.LevelError, "rlgl: swap chain lost, closing context") {
		t.Error("losing the swap chain was not logged")
	}
	if live := dev.LiveObjects(); len(live) != 0 {
		t.Errorf("live objects after the context closed: %v", live)
	}

	drawQuad(rc, 0, 0, 10)
	if err := rc.Present(); !errors.Is(err, ErrClosed) {
		t.Errorf("Present() = %v, want ErrClosed", err)
	}
	if err := rc.Resize(320, 240); !errors.Is(err, ErrClosed) {
		t.Errorf("Resize() = %v, want ErrClosed", err)
	}
	if err := rc.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestFrame_SubmitFailure(t *testing.T) {
	rc, dev, logs := newTestContext(t)
	dev.FailNext(recording.OpSubmit, 1)
	if err := rc.Present(); !errors.Is(err, recording.ErrInjected) {
		t.Fatalf("Present() = %v, want injected failure", err)
	}
	if !logs.has(slog.LevelError, "rlgl: present failed") {
		t.Error("failed present was not logged")
	}
	if dev.Presents() != 0 {
		t.Error("a frame that failed to submit was presented")
	}
}

func TestClose_ReleasesEverything(t *testing.T) {
	dev := recording.New()
	rc, err := New(WithDevice(dev))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	if _, err := rc.LoadTexture(make([]byte, 16*16*4), 16, 16, PixelFormatR8G8B8A8, 4); err != nil {
		t.Fatalf("LoadTexture() = %v", err)
	}
	if _, err := rc.LoadRenderBatch(2, 64); err != nil {
		t.Fatalf("LoadRenderBatch() = %v", err)
	}
	if _, err := rc.LoadShaderCode(defaultVertexShader, defaultFragmentShader, TopologyLines); err != nil {
		t.Fatalf("LoadShaderCode() = %v", err)
	}
	if _, err := rc.CompileShader(defaultVertexShader, VertexShader); err != nil {
		t.Fatalf("CompileShader() = %v", err)
	}
	drawQuad(rc, 0, 0, 10)
	if err := rc.Present(); err != nil {
		t.Fatalf("Present() = %v", err)
	}
	if _, err := rc.ReadScreenPixels(); err != nil {
		t.Fatalf("ReadScreenPixels() = %v", err)
	}

	if err := rc.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if live := dev.LiveObjects(); len(live) != 0 {
		t.Errorf("live objects after Close: %v", live)
	}
	if err := rc.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if err := rc.Present(); !errors.Is(err, ErrClosed) {
		t.Errorf("Present() after Close = %v, want ErrClosed", err)
	}
	if _, err := rc.LoadTexture([]byte{0, 0, 0, 0}, 1, 1, PixelFormatR8G8B8A8, 1); !errors.Is(err, ErrClosed) {
		t.Errorf("LoadTexture() after Close = %v, want ErrClosed", err)
	}
	// Immediate-mode calls after Close are ignored.
	drawQuad(rc, 0, 0, 1)
}

func TestNew_InitFailureCleansUp(t *testing.T) {
	ops := []recording.Op{
		recording.OpCreateCommandList,
		recording.OpCreateDescriptorHeap,
		recording.OpCreateRootSignature,
		recording.OpCreateFence,
		recording.OpCreateSwapChain,
		recording.OpCreateTexture,
		recording.OpCreateBuffer,
		recording.OpCompileShader,
		recording.OpCreatePipelineState,
	}
	for _, op := range ops {
		t.Run(string(op), func(t *testing.T) {
			dev := recording.New()
			dev.FailNext(op, 1)
			logs := &logCapture{}

			rc, err := New(WithDevice(dev), WithLogger(slog.New(logs)))
			if err == nil {
				rc.Close()
				t.Fatal("New() succeeded with a failing device")
			}
			if rc != nil {
				t.Error("New() returned a context alongside an error")
			}
			if !errors.Is(err, recording.ErrInjected) {
				t.Errorf("New() = %v, want the injected failure", err)
			}
			if !logs.has(slog.LevelError, "rlgl: initialization failed") {
				t.Error("init failure was not logged at error level")
			}
			if live := dev.LiveObjects(); len(live) != 0 {
				t.Errorf("live objects after failed init: %v", live)
			}
		})
	}
}
