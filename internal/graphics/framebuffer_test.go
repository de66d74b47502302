package graphics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFramebuffer_BlitAndRectRoundTrip(t *testing.T) {
	fb := NewFramebuffer(16, 16)

	patch := make([]byte, 4*4*BytesPerPixel)
	for i := range patch {
		patch[i] = byte(i)
	}

	fb.Blit(2, 3, 4, 4, patch)

	assert.Equal(t, patch, fb.Rect(2, 3, 4, 4))
}

func TestFramebuffer_ResizeClearsContents(t *testing.T) {
	fb := NewFramebuffer(4, 4)
	fb.Blit(0, 0, 4, 4, make([]byte, 4*4*BytesPerPixel))

	fb.Resize(8, 8)

	assert.Equal(t, 8, fb.Width)
	assert.Equal(t, 8, fb.Height)
	assert.Equal(t, 8*BytesPerPixel, fb.Stride)
	assert.Equal(t, 8*8*BytesPerPixel, len(fb.Pixels))
}
