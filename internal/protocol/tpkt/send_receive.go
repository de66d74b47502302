package tpkt

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Send wraps pduData in a TPKT header (RFC 1006 6: version 0x03, a
// reserved zero byte, and the big-endian total packet length) and writes
// it to the underlying connection.
func (p *Protocol) Send(pduData []byte) error {
	header := make([]byte, headerLen)
	header[0] = 0x03
	header[1] = 0x00
	binary.BigEndian.PutUint16(header[2:], uint16(headerLen+len(pduData))) // #nosec G115

	_, err := p.conn.Write(append(header, pduData...))
	return err
}

// Receive reads one TPKT header and its declared payload off the
// connection and returns a reader over the payload.
func (p *Protocol) Receive() (io.Reader, error) {
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(p.conn, header); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint16(header[2:])

	payload := make([]byte, int(length)-headerLen)
	if _, err := io.ReadFull(p.conn, payload); err != nil {
		return nil, err
	}

	return bytes.NewReader(payload), nil
}
