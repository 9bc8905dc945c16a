// Command rlbench renders a field of spinning textured quads through rlgl
// and reports per-frame batching statistics.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/gogpu/rlgl"
	"github.com/gogpu/rlgl/gfx"
	_ "github.com/gogpu/rlgl/gfx/recording" // fallback when no GPU backend opens
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file")
		backend    = flag.String("backend", "", "gfx backend name (default: best available)")
		width      = flag.Int("width", 0, "framebuffer width (overrides config)")
		height     = flag.Int("height", 0, "framebuffer height (overrides config)")
		frames     = flag.Int("frames", 120, "frames to render")
		quads      = flag.Int("quads", 2000, "quads per frame")
		output     = flag.String("output", "", "write the last frame to this PNG file")
		verbose    = flag.Bool("v", false, "log debug output to stderr")
		listOnly   = flag.Bool("list", false, "list registered backends and exit")
	)
	flag.Parse()

	if *listOnly {
		for _, name := range gfx.Backends() {
			fmt.Println(name)
		}
		return
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	rlgl.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := rlgl.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = rlgl.LoadConfig(*configPath); err != nil {
			log.Fatalf("rlbench: %v", err)
		}
	}
	if *width > 0 {
		cfg.Width = *width
	}
	if *height > 0 {
		cfg.Height = *height
	}
	if *frames < 1 || *quads < 0 {
		log.Fatalf("rlbench: need at least one frame and a non-negative quad count")
	}

	if err := run(cfg, *backend, *frames, *quads, *output); err != nil {
		log.Fatalf("rlbench: %v", err)
	}
}

func run(cfg rlgl.Config, backend string, frames, quads int, output string) (err error) {
	opts := []rlgl.Option{rlgl.WithConfig(cfg)}
	if backend != "" {
		opts = append(opts, rlgl.WithBackend(backend))
	}
	rc, err := rlgl.New(opts...)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, rc.Close())
	}()

	info := rc.Device().Info()
	log.Printf("rendering %d frames of %d quads at %dx%d on %s (%s)",
		frames, quads, rc.Width(), rc.Height(), info.Name, info.Backend)

	tex, err := rc.LoadTextureFromImage(checkerboard(64, 8), 4)
	if err != nil {
		return err
	}
	defer rc.UnloadTexture(tex)

	var bar *progressbar.ProgressBar
	if term.IsTerminal(int(os.Stdout.Fd())) {
		bar = progressbar.Default(int64(frames))
		defer bar.Close()
	}

	var total rlgl.FrameStats
	start := time.Now()
	for f := 0; f < frames; f++ {
		drawFrame(rc, tex, f, quads)
		if err := rc.Present(); err != nil {
			return fmt.Errorf("frame %d: %w", f, err)
		}
		st := rc.Stats()
		total.DrawCalls += st.DrawCalls
		total.Flushes += st.Flushes
		total.Vertices += st.Vertices
		total.Submits += st.Submits
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	elapsed := time.Since(start)

	n := float64(frames)
	log.Printf("%d frames in %v (%.1f fps)", frames, elapsed.Round(time.Millisecond), n/elapsed.Seconds())
	log.Printf("per frame: %.1f draw calls, %.1f flushes, %.0f vertices, %.2f submits",
		float64(total.DrawCalls)/n, float64(total.Flushes)/n, float64(total.Vertices)/n, float64(total.Submits)/n)

	if output != "" {
		drawFrame(rc, tex, frames, quads)
		return savePNG(rc, output)
	}
	return nil
}

// drawFrame lays the quads out on a grid, each spinning about its center,
// with every fourth one untextured so the batch alternates draw calls.
func drawFrame(rc *rlgl.RenderContext, tex rlgl.TextureID, frame, quads int) {
	if quads == 0 {
		return
	}
	w, h := float32(rc.Width()), float32(rc.Height())
	cols := int(math.Ceil(math.Sqrt(float64(quads) * float64(w/h))))
	size := w / float32(cols)
	angle := float32(frame) * 3

	for i := 0; i < quads; i++ {
		cx := (float32(i%cols) + 0.5) * size
		cy := (float32(i/cols) + 0.5) * size

		if i%4 == 3 {
			rc.SetTexture(0)
		} else {
			rc.SetTexture(tex)
		}
		rc.PushMatrix()
		rc.Translatef(cx, cy, 0)
		rc.Rotatef(angle+float32(i), 0, 0, 1)
		rc.Begin(rlgl.Quads)
		rc.Color4ub(uint8(i*7), uint8(i*13), uint8(255-i%256), 255)
		half := size * 0.4
		rc.TexCoord2f(0, 0)
		rc.Vertex2f(-half, -half)
		rc.TexCoord2f(0, 64)
		rc.Vertex2f(-half, half)
		rc.TexCoord2f(64, 64)
		rc.Vertex2f(half, half)
		rc.TexCoord2f(64, 0)
		rc.Vertex2f(half, -half)
		rc.End()
		rc.PopMatrix()
	}
}

func checkerboard(size, cell int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := uint8(80)
			if (x/cell+y/cell)%2 == 0 {
				v = 230
			}
			o := img.PixOffset(x, y)
			img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = v, v, v, 255
		}
	}
	return img
}

// savePNG reads back the frame in progress.
func savePNG(rc *rlgl.RenderContext, path string) error {
	pix, err := rc.ReadScreenPixels()
	if err != nil {
		return err
	}
	img := &image.NRGBA{
		Pix:    pix,
		Stride: rc.Width() * 4,
		Rect:   image.Rect(0, 0, rc.Width(), rc.Height()),
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Printf("wrote %s", path)
	return nil
}
