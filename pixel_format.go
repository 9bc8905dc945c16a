package rlgl

import "fmt"

// PixelFormat describes the layout of pixel data passed to LoadTexture.
// Every format is expanded to 8-bit RGBA on upload.
type PixelFormat uint8

const (
	PixelFormatUnknown PixelFormat = iota
	// PixelFormatGrayscale is 8-bit luminance.
	PixelFormatGrayscale
	// PixelFormatGrayAlpha is 8-bit luminance followed by 8-bit alpha.
	PixelFormatGrayAlpha
	// PixelFormatR8G8B8 is 24-bit RGB.
	PixelFormatR8G8B8
	// PixelFormatR8G8B8A8 is 32-bit RGBA, uploaded as is.
	PixelFormatR8G8B8A8
)

var pixelFormatNames = [...]string{"Unknown", "Grayscale", "GrayAlpha", "R8G8B8", "R8G8B8A8"}

func (f PixelFormat) String() string {
	if int(f) < len(pixelFormatNames) {
		return pixelFormatNames[f]
	}
	return fmt.Sprintf("PixelFormat(%d)", f)
}

// BytesPerPixel returns the input size of one pixel, or 0 for unknown
// formats.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatGrayscale:
		return 1
	case PixelFormatGrayAlpha:
		return 2
	case PixelFormatR8G8B8:
		return 3
	case PixelFormatR8G8B8A8:
		return 4
	default:
		return 0
	}
}

// toRGBA expands data to tightly packed RGBA. RGBA input is returned
// without copying.
func toRGBA(data []byte, f PixelFormat) []byte {
	switch f {
	case PixelFormatR8G8B8A8:
		return data
	case PixelFormatR8G8B8:
		return rgbToRGBA(data)
	}
	bpp := f.BytesPerPixel()
	n := len(data) / bpp
	out := make([]byte, n*4)
	for i := 0; i < n; i++ {
		g := data[i*bpp]
		a := byte(255)
		if f == PixelFormatGrayAlpha {
			a = data[i*bpp+1]
		}
		out[i*4], out[i*4+1], out[i*4+2], out[i*4+3] = g, g, g, a
	}
	return out
}

// rgbToRGBA inserts an opaque alpha byte after every RGB triple.
func rgbToRGBA(rgb []byte) []byte {
	n := len(rgb) / 3
	out := make([]byte, n*4)
	for i := 0; i < n; i++ {
		copy(out[i*4:i*4+3], rgb[i*3:i*3+3])
		out[i*4+3] = 255
	}
	return out
}
