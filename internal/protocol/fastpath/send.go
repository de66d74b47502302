package fastpath

import (
	"bytes"
	"encoding/binary"
	"io"
)

// InputEventPDU is the Fast-Path Input Event PDU (MS-RDPBCGR 2.2.8.1.2)
// wrapping one or more already-serialized input events.
type InputEventPDU struct {
	action    uint8
	numEvents uint8
	flags     uint8

	eventData []byte
}

// NewInputEventPDU wraps a single pre-serialized input event.
func NewInputEventPDU(eventData []byte) *InputEventPDU {
	return &InputEventPDU{
		numEvents: 1,
		eventData: eventData,
	}
}

// Serialize writes the fast-path header byte (flags/numEvents/action),
// the PER-style length determinant, and the event data.
func (pdu *InputEventPDU) Serialize() []byte {
	header := pdu.flags<<6 | pdu.numEvents<<2 | pdu.action

	buf := new(bytes.Buffer)
	buf.WriteByte(header)

	_ = pdu.SerializeLength(1+len(pdu.eventData), buf)

	buf.Write(pdu.eventData)

	return buf.Bytes()
}

// SerializeLength writes the fast-path length determinant for value: a
// single byte (value+1) when value fits in 7 bits, otherwise a 2-byte
// big-endian value (value+2) with the top bit set.
func (pdu *InputEventPDU) SerializeLength(value int, w io.Writer) error {
	if value <= 0x7f {
		_, err := w.Write([]byte{byte(value + 1)})
		return err
	}

	return binary.Write(w, binary.BigEndian, uint16(0x8000|(value+2))) // #nosec G115
}

// Send serializes pdu and writes it to the transport.
func (p *Protocol) Send(pdu *InputEventPDU) error {
	_, err := p.conn.Write(pdu.Serialize())
	return err
}

// NewUpdatePDU wraps one already-serialized Update in an outbound Fast-Path
// Update PDU.
func NewUpdatePDU(data []byte) *UpdatePDU {
	return &UpdatePDU{
		Action: UpdatePDUActionFastPath,
		Data:   data,
	}
}

// Serialize writes the fast-path action/flags header byte followed by the
// length determinant (1 or 2 bytes, non-self-inclusive) and the PDU data
// (MS-RDPBCGR 2.2.9.1.2.1).
func (pdu *UpdatePDU) Serialize() []byte {
	header := uint8(pdu.Flags)<<6 | uint8(pdu.Action)

	buf := new(bytes.Buffer)
	buf.WriteByte(header)

	length := len(pdu.Data)
	if length <= 0x7f {
		buf.WriteByte(byte(length))
	} else {
		_ = binary.Write(buf, binary.BigEndian, uint16(0x8000|length)) // #nosec G115
	}

	buf.Write(pdu.Data)

	return buf.Bytes()
}

// SendUpdate serializes pdu and writes it to the transport.
func (p *Protocol) SendUpdate(pdu *UpdatePDU) error {
	_, err := p.conn.Write(pdu.Serialize())
	return err
}

// NewUpdate builds one graphics Update structure carrying already-encoded
// update-specific data (MS-RDPBCGR 2.2.9.1.1.3.1).
func NewUpdate(code UpdateCode, fragmentation Fragment, data []byte) *Update {
	return &Update{
		UpdateCode:    code,
		fragmentation: fragmentation,
		compression:   0,
		Data:          data,
	}
}

// Serialize writes the update's 1-byte code/fragmentation/compression
// header followed by its 2-byte length and data.
func (u *Update) Serialize() []byte {
	header := uint8(u.compression)<<6 | uint8(u.fragmentation)<<4 | uint8(u.UpdateCode)&0x0f

	buf := new(bytes.Buffer)
	buf.WriteByte(header)
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(u.Data))) // #nosec G115
	buf.Write(u.Data)

	return buf.Bytes()
}
