// Package graphics implements the server-side graphics update encoder: damage
// diffing against a retained framebuffer, per-rectangle codec dispatch, and
// fast-path fragmentation of the resulting update stream.
package graphics

// BytesPerPixel is the pixel format this encoder operates on: 32bpp BGRA,
// matching the uncompressed SurfaceBits and legacy Bitmap wire formats this
// package emits.
const BytesPerPixel = 4

// Framebuffer retains the last fully-known screen contents at the negotiated
// desktop size. Damage diffing and sub-rectangle encoding both read and
// write through it.
type Framebuffer struct {
	Width  int
	Height int
	Stride int
	Pixels []byte
}

// NewFramebuffer allocates a framebuffer sized exactly to width x height.
func NewFramebuffer(width, height int) *Framebuffer {
	stride := width * BytesPerPixel
	return &Framebuffer{
		Width:  width,
		Height: height,
		Stride: stride,
		Pixels: make([]byte, stride*height),
	}
}

// Resize invalidates the framebuffer for a new desktop size. Per spec, a
// resize discards the retained contents; the next update must be a
// full-screen one to repopulate it.
func (f *Framebuffer) Resize(width, height int) {
	stride := width * BytesPerPixel
	f.Width = width
	f.Height = height
	f.Stride = stride
	f.Pixels = make([]byte, stride*height)
}

// Rect returns the pixel bytes of the framebuffer at (x, y, w, h) in its own
// stride, as a flat, tightly-packed w*h*BytesPerPixel buffer.
func (f *Framebuffer) Rect(x, y, w, h int) []byte {
	out := make([]byte, w*h*BytesPerPixel)
	rowBytes := w * BytesPerPixel
	for row := 0; row < h; row++ {
		srcOff := (y+row)*f.Stride + x*BytesPerPixel
		copy(out[row*rowBytes:(row+1)*rowBytes], f.Pixels[srcOff:srcOff+rowBytes])
	}
	return out
}

// Blit writes data (stride-packed w*h*BytesPerPixel pixels) into the
// framebuffer at (x, y).
func (f *Framebuffer) Blit(x, y, w, h int, data []byte) {
	rowBytes := w * BytesPerPixel
	for row := 0; row < h; row++ {
		dstOff := (y+row)*f.Stride + x*BytesPerPixel
		copy(f.Pixels[dstOff:dstOff+rowBytes], data[row*rowBytes:(row+1)*rowBytes])
	}
}
