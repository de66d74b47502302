package graphics

import "github.com/rcarmo/go-rdp/internal/protocol/fastpath"

// Pointer updates bypass the framebuffer entirely: they carry their own
// bitmap/position state and never touch the retained screen contents.

// colorPointerBody builds a Color Pointer Update body for a cursor bitmap
// with an AND/XOR mask pair (MS-RDPBCGR 2.2.9.1.1.4.4).
func colorPointerBody(cacheIndex, x, y, width, height uint16, xorMask, andMask []byte) (fastpath.UpdateCode, []byte) {
	body := (&fastpath.ColorPointerUpdate{
		CacheIndex:  cacheIndex,
		X:           x,
		Y:           y,
		Width:       width,
		Height:      height,
		XorMaskData: xorMask,
		AndMaskData: andMask,
	}).Serialize()

	return fastpath.UpdateCodeColor, body
}

// pointerPositionBody builds a Pointer Position Update body (MS-RDPBCGR
// 2.2.9.1.1.4.2).
func pointerPositionBody(x, y uint16) (fastpath.UpdateCode, []byte) {
	return fastpath.UpdateCodePTRPosition, fastpath.SerializePointerPositionUpdate(x, y)
}
