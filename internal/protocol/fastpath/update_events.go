package fastpath

import (
	"encoding/binary"
	"io"
)

// PaletteEntry is one RGB triple of a Palette Update (MS-RDPBCGR
// 2.2.9.1.1.3.1.2.1).
type PaletteEntry struct {
	Red   uint8
	Green uint8
	Blue  uint8
}

func (e *PaletteEntry) Deserialize(wire io.Reader) error {
	b := make([]byte, 3)
	if _, err := io.ReadFull(wire, b); err != nil {
		return err
	}

	e.Red, e.Green, e.Blue = b[0], b[1], b[2]

	return nil
}

// paletteUpdateData is the Palette Update (MS-RDPBCGR 2.2.9.1.1.3.1.2).
type paletteUpdateData struct {
	PaletteEntries []PaletteEntry
}

func (p *paletteUpdateData) Deserialize(wire io.Reader) error {
	var updateType, padding, numberColors uint16

	if err := binary.Read(wire, binary.LittleEndian, &updateType); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &padding); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &numberColors); err != nil {
		return err
	}

	p.PaletteEntries = make([]PaletteEntry, numberColors)
	for i := range p.PaletteEntries {
		if err := p.PaletteEntries[i].Deserialize(wire); err != nil {
			return err
		}
	}

	return nil
}

// CompressedDataHeader precedes a compressed bitmapDataStream when
// BitmapDataFlagNoHDR is not set (MS-RDPBCGR 2.2.9.1.1.3.1.2.3).
type CompressedDataHeader struct {
	CbCompFirstRowSize uint16
	CbCompMainBodySize uint16
	CbScanWidth        uint16
	CbUncompressedSize uint16
}

func (h *CompressedDataHeader) Deserialize(wire io.Reader) error {
	for _, field := range []*uint16{&h.CbCompFirstRowSize, &h.CbCompMainBodySize, &h.CbScanWidth, &h.CbUncompressedSize} {
		if err := binary.Read(wire, binary.LittleEndian, field); err != nil {
			return err
		}
	}

	return nil
}

// BitmapDataFlag is the flags field of a BitmapData record.
type BitmapDataFlag uint16

const (
	BitmapDataFlagCompression BitmapDataFlag = 0x0001
	BitmapDataFlagNoHDR       BitmapDataFlag = 0x0400
)

// BitmapData is one rectangle of a Bitmap Update (MS-RDPBCGR
// 2.2.9.1.1.3.1.2.2).
type BitmapData struct {
	DestLeft     uint16
	DestTop      uint16
	DestRight    uint16
	DestBottom   uint16
	Width        uint16
	Height       uint16
	BitsPerPixel uint16
	Flags        BitmapDataFlag
	BitmapLength uint16

	BitmapDataStream []byte
}

func (b *BitmapData) Deserialize(wire io.Reader) error {
	var flags uint16

	fields := []*uint16{
		&b.DestLeft, &b.DestTop, &b.DestRight, &b.DestBottom,
		&b.Width, &b.Height, &b.BitsPerPixel, &flags, &b.BitmapLength,
	}
	for _, field := range fields {
		if err := binary.Read(wire, binary.LittleEndian, field); err != nil {
			return err
		}
	}
	b.Flags = BitmapDataFlag(flags)

	b.BitmapDataStream = make([]byte, b.BitmapLength)
	if _, err := io.ReadFull(wire, b.BitmapDataStream); err != nil {
		return err
	}

	return nil
}

// bitmapUpdateData is the Bitmap Update (MS-RDPBCGR 2.2.9.1.1.3.1.2).
type bitmapUpdateData struct {
	Rectangles []BitmapData
}

func (b *bitmapUpdateData) Deserialize(wire io.Reader) error {
	var updateType, numberRectangles uint16

	if err := binary.Read(wire, binary.LittleEndian, &updateType); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &numberRectangles); err != nil {
		return err
	}

	b.Rectangles = make([]BitmapData, numberRectangles)
	for i := range b.Rectangles {
		if err := b.Rectangles[i].Deserialize(wire); err != nil {
			return err
		}
	}

	return nil
}

// pointerPositionUpdateData is the Pointer Position Update (MS-RDPBCGR
// 2.2.9.1.1.4.2).
type pointerPositionUpdateData struct {
	xPos uint16
	yPos uint16
}

func (p *pointerPositionUpdateData) Deserialize(wire io.Reader) error {
	if err := binary.Read(wire, binary.LittleEndian, &p.xPos); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &p.yPos); err != nil {
		return err
	}

	return nil
}

// colorPointerUpdateData is the Color Pointer Update (MS-RDPBCGR
// 2.2.9.1.1.4.4).
type colorPointerUpdateData struct {
	cacheIndex    uint16
	xPos          uint16
	yPos          uint16
	width         uint16
	height        uint16
	lengthAndMask uint16
	lengthXorMask uint16
	xorMaskData   []byte
	andMaskData   []byte
}

func (c *colorPointerUpdateData) Deserialize(wire io.Reader) error {
	fields := []*uint16{
		&c.cacheIndex, &c.xPos, &c.yPos, &c.width, &c.height,
		&c.lengthAndMask, &c.lengthXorMask,
	}
	for _, field := range fields {
		if err := binary.Read(wire, binary.LittleEndian, field); err != nil {
			return err
		}
	}

	c.xorMaskData = make([]byte, c.lengthXorMask)
	if _, err := io.ReadFull(wire, c.xorMaskData); err != nil {
		return err
	}

	c.andMaskData = make([]byte, c.lengthAndMask)
	if _, err := io.ReadFull(wire, c.andMaskData); err != nil {
		return err
	}

	if _, err := readByte(wire); err != nil {
		return err
	}

	return nil
}
