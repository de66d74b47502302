package fastpath

import (
	"bytes"
	"encoding/binary"
)

// Serialize writes the SetSurfaceBits/StreamSurfaceBits command body
// (cmdType omitted; the caller prefixes it), mirroring the field order
// ParseSetSurfaceBits expects.
func (cmd *SetSurfaceBitsCommand) Serialize() []byte {
	buf := new(bytes.Buffer)

	for _, v := range []uint16{cmd.DestLeft, cmd.DestTop, cmd.DestRight, cmd.DestBottom} {
		_ = binary.Write(buf, binary.LittleEndian, v)
	}
	buf.WriteByte(cmd.BPP)
	buf.WriteByte(cmd.Flags)
	buf.WriteByte(cmd.Reserved)
	buf.WriteByte(cmd.CodecID)
	_ = binary.Write(buf, binary.LittleEndian, cmd.Width)
	_ = binary.Write(buf, binary.LittleEndian, cmd.Height)
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(cmd.BitmapData))) // #nosec G115
	buf.Write(cmd.BitmapData)

	return buf.Bytes()
}

// SerializeWithType writes cmdType followed by the command body, ready to
// append to a fast-path SurfCmds update stream.
func (cmd *SetSurfaceBitsCommand) SerializeWithType(streamed bool) []byte {
	cmdType := CmdTypeSurfaceBits
	if streamed {
		cmdType = CmdTypeStreamSurfaceBits
	}

	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, cmdType)
	buf.Write(cmd.Serialize())

	return buf.Bytes()
}

// Serialize writes the FrameMarker command body (cmdType omitted).
func (cmd *FrameMarkerCommand) Serialize() []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, cmd.FrameAction)
	_ = binary.Write(buf, binary.LittleEndian, cmd.FrameID)
	return buf.Bytes()
}

// SerializeWithType writes cmdType followed by the FrameMarker body.
func (cmd *FrameMarkerCommand) SerializeWithType() []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, CmdTypeFrameMarker)
	buf.Write(cmd.Serialize())
	return buf.Bytes()
}
