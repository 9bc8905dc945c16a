// Package rlgl provides an immediate-mode rendering layer over an explicit
// GPU API.
//
// # Overview
//
// rlgl accepts Begin/Vertex/End style drawing calls, accumulates vertices
// into batches on the CPU and turns them into a small number of GPU draw
// calls per frame. It manages textures, shader programs, a bounded matrix
// stack and the per-frame command list, fence and swap chain of the
// underlying device.
//
// # Quick Start
//
//	import "github.com/gogpu/rlgl"
//
//	rc, err := rlgl.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer rc.Close()
//
//	tex, _ := rc.LoadTexture(pixels, 64, 64, rlgl.PixelFormatR8G8B8A8, 1)
//
//	rc.SetTexture(tex)
//	rc.Begin(rlgl.Quads)
//	rc.TexCoord2f(0, 0)
//	rc.Vertex2f(10, 10)
//	rc.TexCoord2f(0, 64)
//	rc.Vertex2f(10, 74)
//	rc.TexCoord2f(64, 64)
//	rc.Vertex2f(74, 74)
//	rc.TexCoord2f(64, 0)
//	rc.Vertex2f(74, 10)
//	rc.End()
//	rc.SetTexture(0)
//
//	if err := rc.Present(); err != nil {
//		log.Print(err)
//	}
//
// # Backends
//
// Devices come from the gfx registry. Importing gfx/halgfx registers the
// gogpu/wgpu HAL backend and gfx/recording an in-memory backend that
// records commands for inspection. WithDevice injects a device directly.
//
// # Coordinate System
//
// The default projection maps framebuffer pixels with the origin at the
// top-left, X increasing right and Y increasing down. Successive 2D blocks
// are drawn at slightly increasing depth so later ones land in front.
//
// # Errors
//
// Operations that create resources return an id and an error; the id is
// 0 on failure. Misuse such as an unknown texture id or a matrix stack
// overflow is logged through the configured slog.Logger and otherwise
// ignored.
package rlgl

// Version is the current version of the library.
const Version = "0.1.0"
