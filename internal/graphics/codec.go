package graphics

import "github.com/rcarmo/go-rdp/internal/protocol/fastpath"

// Codec encodes one damage rectangle's pixels into a ready-to-send
// SurfaceCommand or legacy Bitmap Update body.
type Codec interface {
	// Name identifies the codec for logging and capability matching.
	Name() string

	// EncodeRect encodes the framebuffer's current contents at rect,
	// returning the Update's UpdateCode and serialized body.
	EncodeRect(fb *Framebuffer, rect DamageRect) (fastpath.UpdateCode, []byte)
}

// UncompressedSurfaceBits emits a SetSurfaceBits command carrying raw BGRA
// pixels, codec ID 0 (no codec, per the peer's codec table). Always
// available regardless of negotiated capabilities; NewUpdateEncoder uses it
// when given no codecs.
type UncompressedSurfaceBits struct{}

func (UncompressedSurfaceBits) Name() string { return "uncompressed-surface-bits" }

func (UncompressedSurfaceBits) EncodeRect(fb *Framebuffer, rect DamageRect) (fastpath.UpdateCode, []byte) {
	cmd := &fastpath.SetSurfaceBitsCommand{
		DestLeft:   uint16(rect.X), // #nosec G115
		DestTop:    uint16(rect.Y), // #nosec G115
		DestRight:  uint16(rect.X + rect.W), // #nosec G115
		DestBottom: uint16(rect.Y + rect.H), // #nosec G115
		BPP:        32,
		CodecID:    0,
		Width:      uint16(rect.W), // #nosec G115
		Height:     uint16(rect.H), // #nosec G115
		BitmapData: fb.Rect(rect.X, rect.Y, rect.W, rect.H),
	}

	return fastpath.UpdateCodeSurfCMDs, cmd.SerializeWithType(false)
}

// LegacyBitmapUpdate emits a classic Bitmap Update with its compression flag
// cleared, carrying raw BGRA pixels. Grounded on the legacy "Bitmap (RLE)"
// handler spec.md names; the RLE entropy stage itself is not implemented
// here (the retrieved codebase only ever needed RLE decompression, as a
// client), so this handler always emits the uncompressed form of the same
// wire PDU, which is valid per MS-RDPBCGR 2.2.9.1.1.3.1.2.2 when
// BITMAP_COMPRESSION is clear.
type LegacyBitmapUpdate struct{}

func (LegacyBitmapUpdate) Name() string { return "legacy-bitmap" }

func (LegacyBitmapUpdate) EncodeRect(fb *Framebuffer, rect DamageRect) (fastpath.UpdateCode, []byte) {
	data := &fastpath.BitmapData{
		DestLeft:         uint16(rect.X), // #nosec G115
		DestTop:          uint16(rect.Y), // #nosec G115
		DestRight:        uint16(rect.X + rect.W - 1), // #nosec G115
		DestBottom:       uint16(rect.Y + rect.H - 1), // #nosec G115
		Width:            uint16(rect.W), // #nosec G115
		Height:           uint16(rect.H), // #nosec G115
		BitsPerPixel:     32,
		Flags:            0,
		BitmapDataStream: fb.Rect(rect.X, rect.Y, rect.W, rect.H),
	}

	body := fastpath.SerializeBitmapUpdate([]fastpath.BitmapData{*data})
	return fastpath.UpdateCodeBitmap, body
}
