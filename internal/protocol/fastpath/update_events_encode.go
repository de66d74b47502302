package fastpath

import (
	"bytes"
	"encoding/binary"
)

// bitmapUpdateType is the updateType value prefixing a Bitmap Update
// (MS-RDPBCGR 2.2.9.1.1.3.1.2).
const bitmapUpdateType uint16 = 0x0001

// Serialize writes one BitmapData rectangle (MS-RDPBCGR 2.2.9.1.1.3.1.2.2),
// including its own BitmapLength field.
func (b *BitmapData) Serialize() []byte {
	buf := new(bytes.Buffer)

	fields := []uint16{
		b.DestLeft, b.DestTop, b.DestRight, b.DestBottom,
		b.Width, b.Height, b.BitsPerPixel, uint16(b.Flags),
	}
	for _, f := range fields {
		_ = binary.Write(buf, binary.LittleEndian, f)
	}
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(b.BitmapDataStream))) // #nosec G115
	buf.Write(b.BitmapDataStream)

	return buf.Bytes()
}

// SerializeBitmapUpdate writes the Bitmap Update wrapper (updateType plus
// rectangle count) around a set of already-built BitmapData rectangles,
// ready to hand to NewUpdate(UpdateCodeBitmap, ...).
func SerializeBitmapUpdate(rects []BitmapData) []byte {
	buf := new(bytes.Buffer)

	_ = binary.Write(buf, binary.LittleEndian, bitmapUpdateType)
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(rects))) // #nosec G115

	for i := range rects {
		buf.Write(rects[i].Serialize())
	}

	return buf.Bytes()
}

// Serialize writes one PaletteEntry's RGB triple.
func (e *PaletteEntry) Serialize() []byte {
	return []byte{e.Red, e.Green, e.Blue}
}

// SerializePaletteUpdate writes the Palette Update wrapper (MS-RDPBCGR
// 2.2.9.1.1.3.1.1) around a 256-entry palette.
func SerializePaletteUpdate(entries []PaletteEntry) []byte {
	const paletteUpdateType uint16 = 0x0002

	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, paletteUpdateType)
	_ = binary.Write(buf, binary.LittleEndian, uint16(0))                  // pad2Octets
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(entries))) // #nosec G115

	for i := range entries {
		buf.Write(entries[i].Serialize())
	}

	return buf.Bytes()
}

// SerializePointerPositionUpdate writes the Pointer Position Update
// (MS-RDPBCGR 2.2.9.1.1.4.2).
func SerializePointerPositionUpdate(x, y uint16) []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, x)
	_ = binary.Write(buf, binary.LittleEndian, y)
	return buf.Bytes()
}

// ColorPointerUpdate is the fields needed to build a Color Pointer Update
// (MS-RDPBCGR 2.2.9.1.1.4.4).
type ColorPointerUpdate struct {
	CacheIndex  uint16
	X, Y        uint16
	Width       uint16
	Height      uint16
	XorMaskData []byte
	AndMaskData []byte
}

// Serialize writes the Color Pointer Update body.
func (c *ColorPointerUpdate) Serialize() []byte {
	buf := new(bytes.Buffer)

	fields := []uint16{c.CacheIndex, c.X, c.Y, c.Width, c.Height}
	for _, f := range fields {
		_ = binary.Write(buf, binary.LittleEndian, f)
	}
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(c.AndMaskData))) // #nosec G115
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(c.XorMaskData))) // #nosec G115
	buf.Write(c.XorMaskData)
	buf.Write(c.AndMaskData)
	buf.WriteByte(0) // pad1Octet

	return buf.Bytes()
}
