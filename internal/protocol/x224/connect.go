package x224

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	ErrSmallConnectionConfirmLength = errors.New("small connection confirm length")
	ErrWrongConnectionConfirmCode   = errors.New("wrong connection confirm code")
	ErrWrongDataLength              = errors.New("wrong data length")
)

// connectionConfirmLength is the fixed length indicator of a Connection
// Confirm TPDU: CCCDT, DSTREF, SRCREF, ClassOption plus the 8-byte RDP
// Negotiation Response that always follows it.
const connectionConfirmLength = 14

// dataLength is the fixed length indicator of a Data TPDU: it covers only
// DTROA and NREOT, never the variable user data that follows.
const dataLength = 2

// ConnectionRequest is the X.224 Connection Request TPDU (CR) the client
// sends to start the connection sequence, carrying the RDP Negotiation
// Request as UserData.
type ConnectionRequest struct {
	CRCDT        uint8
	DSTREF       uint16
	SRCREF       uint16
	ClassOption  uint8
	VariablePart []byte
	UserData     []byte
}

func (r *ConnectionRequest) Serialize() []byte {
	li := 6 + len(r.UserData)

	buf := make([]byte, 0, 1+li)
	buf = append(buf, byte(li))
	buf = append(buf, r.CRCDT)
	buf = binary.BigEndian.AppendUint16(buf, r.DSTREF)
	buf = binary.BigEndian.AppendUint16(buf, r.SRCREF)
	buf = append(buf, r.ClassOption)
	buf = append(buf, r.UserData...)

	return buf
}

// ConnectionConfirm is the X.224 Connection Confirm TPDU (CC) the server
// replies with, carrying the RDP Negotiation Response.
type ConnectionConfirm struct {
	LI          uint8
	CCCDT       uint8
	DSTREF      uint16
	SRCREF      uint16
	ClassOption uint8
}

func (c *ConnectionConfirm) Deserialize(wire io.Reader) error {
	li, err := readByte(wire)
	if err != nil {
		return err
	}
	c.LI = li

	if c.LI != connectionConfirmLength {
		return ErrSmallConnectionConfirmLength
	}

	cccdt, err := readByte(wire)
	if err != nil {
		return err
	}
	c.CCCDT = cccdt

	if c.CCCDT&0xF0 != 0xD0 {
		return ErrWrongConnectionConfirmCode
	}

	var dstref, srcref uint16
	if err := binary.Read(wire, binary.BigEndian, &dstref); err != nil {
		return err
	}
	c.DSTREF = dstref

	if err := binary.Read(wire, binary.BigEndian, &srcref); err != nil {
		return err
	}
	c.SRCREF = srcref

	classOption, err := readByte(wire)
	if err != nil {
		return err
	}
	c.ClassOption = classOption

	return nil
}

// Data is the X.224 Data TPDU (DT) wrapping every PDU after connection
// negotiation. Deserialize only validates and consumes the fixed header;
// the remaining wire bytes are the caller's payload to read separately.
type Data struct {
	LI       uint8
	DTROA    uint8
	NREOT    uint8
	UserData []byte
}

func (d *Data) Serialize() []byte {
	buf := make([]byte, 0, 3+len(d.UserData))
	buf = append(buf, d.LI, d.DTROA, d.NREOT)
	buf = append(buf, d.UserData...)

	return buf
}

func (d *Data) Deserialize(wire io.Reader) error {
	li, err := readByte(wire)
	if err != nil {
		return err
	}
	d.LI = li

	if d.LI != dataLength {
		return ErrWrongDataLength
	}

	dtroa, err := readByte(wire)
	if err != nil {
		return err
	}
	d.DTROA = dtroa

	nreot, err := readByte(wire)
	if err != nil {
		return err
	}
	d.NREOT = nreot

	return nil
}

func readByte(wire io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(wire, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// Connect sends the Connection Request TPDU carrying the RDP Negotiation
// Request and returns the reader for whatever follows the Connection
// Confirm TPDU's fixed header (the RDP Negotiation Response).
func (p *Protocol) Connect(userData []byte) (io.Reader, error) {
	req := ConnectionRequest{
		CRCDT:    0xE0,
		UserData: userData,
	}

	if err := p.tpktConn.Send(req.Serialize()); err != nil {
		return nil, fmt.Errorf("client connection request: %w", err)
	}

	wire, err := p.tpktConn.Receive()
	if err != nil {
		return nil, fmt.Errorf("recieve connection response: %w", err)
	}

	var cc ConnectionConfirm
	if err := cc.Deserialize(wire); err != nil {
		return nil, fmt.Errorf("server connection confirm: %w", err)
	}

	return wire, nil
}

// Send wraps userData in a Data TPDU and writes it to the transport.
func (p *Protocol) Send(userData []byte) error {
	pdu := Data{
		LI:       dataLength,
		DTROA:    0xF0,
		NREOT:    0x80,
		UserData: userData,
	}

	return p.tpktConn.Send(pdu.Serialize())
}

// Receive reads a Data TPDU, validates its fixed header, and returns the
// reader positioned at the payload that follows.
func (p *Protocol) Receive() (io.Reader, error) {
	wire, err := p.tpktConn.Receive()
	if err != nil {
		return nil, err
	}

	var d Data
	if err := d.Deserialize(wire); err != nil {
		return nil, err
	}

	return wire, nil
}
