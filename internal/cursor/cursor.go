// Package cursor provides bounds-checked read/write cursors over a
// contiguous byte buffer. No other package in this module imports it.
package cursor

import (
	"encoding/binary"
	"fmt"
)

// ErrShortBuffer is wrapped into every bounds-check failure so callers can
// test for it with errors.Is regardless of which field ran out of room.
type ErrShortBuffer struct {
	Context   string
	Expected  int
	Remaining int
}

func (e *ErrShortBuffer) Error() string {
	return fmt.Sprintf("%s: need %d bytes, %d remaining", e.Context, e.Expected, e.Remaining)
}

func shortErr(context string, expected, remaining int) error {
	return &ErrShortBuffer{Context: context, Expected: expected, Remaining: remaining}
}

// Reader is a bounds-checked cursor over an immutable byte slice.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential bounds-checked reads.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len returns the number of unread bytes remaining.
func (r *Reader) Len() int {
	return len(r.buf) - r.pos
}

// Pos returns the current read offset.
func (r *Reader) Pos() int {
	return r.pos
}

// Ensure fails fast with a short-buffer error if fewer than n bytes remain.
// Codecs that need N bytes validate once at entry, mirroring the
// ensure_size! pattern.
func (r *Reader) Ensure(context string, n int) error {
	if r.Len() < n {
		return shortErr(context, n, r.Len())
	}
	return nil
}

// Advance skips n bytes without reading them.
func (r *Reader) Advance(n int) error {
	if err := r.Ensure("advance", n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

// PeekSlice returns the next n bytes without advancing the cursor.
func (r *Reader) PeekSlice(n int) ([]byte, error) {
	if err := r.Ensure("peek_slice", n); err != nil {
		return nil, err
	}
	return r.buf[r.pos : r.pos+n], nil
}

// ReadSlice returns the next n bytes and advances the cursor past them.
// The returned slice aliases the underlying buffer.
func (r *Reader) ReadSlice(n int) ([]byte, error) {
	s, err := r.PeekSlice(n)
	if err != nil {
		return nil, err
	}
	r.pos += n
	return s, nil
}

// Rest returns every remaining unread byte and advances the cursor to the end.
func (r *Reader) Rest() []byte {
	s := r.buf[r.pos:]
	r.pos = len(r.buf)
	return s
}

// ReadU8 reads a single byte.
func (r *Reader) ReadU8() (uint8, error) {
	if err := r.Ensure("read_u8", 1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

// ReadU16LE reads a little-endian uint16.
func (r *Reader) ReadU16LE() (uint16, error) {
	s, err := r.ReadSlice(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(s), nil
}

// ReadU16BE reads a big-endian uint16.
func (r *Reader) ReadU16BE() (uint16, error) {
	s, err := r.ReadSlice(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(s), nil
}

// ReadU32LE reads a little-endian uint32.
func (r *Reader) ReadU32LE() (uint32, error) {
	s, err := r.ReadSlice(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(s), nil
}

// ReadU32BE reads a big-endian uint32.
func (r *Reader) ReadU32BE() (uint32, error) {
	s, err := r.ReadSlice(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(s), nil
}

// Writer is a bounds-checked cursor over a mutable, pre-sized byte slice.
type Writer struct {
	buf []byte
	pos int
}

// NewWriter wraps a destination buffer of fixed capacity len(buf).
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Len returns the number of writable bytes remaining.
func (w *Writer) Len() int {
	return len(w.buf) - w.pos
}

// Pos returns the number of bytes written so far.
func (w *Writer) Pos() int {
	return w.pos
}

// Bytes returns the slice written so far.
func (w *Writer) Bytes() []byte {
	return w.buf[:w.pos]
}

// Ensure fails fast if fewer than n bytes of writable space remain.
func (w *Writer) Ensure(context string, n int) error {
	if w.Len() < n {
		return shortErr(context, n, w.Len())
	}
	return nil
}

// WriteSlice copies src into the buffer and advances the cursor.
func (w *Writer) WriteSlice(src []byte) error {
	if err := w.Ensure("write_slice", len(src)); err != nil {
		return err
	}
	n := copy(w.buf[w.pos:], src)
	w.pos += n
	return nil
}

// WriteU8 writes a single byte.
func (w *Writer) WriteU8(v uint8) error {
	if err := w.Ensure("write_u8", 1); err != nil {
		return err
	}
	w.buf[w.pos] = v
	w.pos++
	return nil
}

// WriteU16LE writes a little-endian uint16.
func (w *Writer) WriteU16LE(v uint16) error {
	if err := w.Ensure("write_u16_le", 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(w.buf[w.pos:], v)
	w.pos += 2
	return nil
}

// WriteU16BE writes a big-endian uint16.
func (w *Writer) WriteU16BE(v uint16) error {
	if err := w.Ensure("write_u16_be", 2); err != nil {
		return err
	}
	binary.BigEndian.PutUint16(w.buf[w.pos:], v)
	w.pos += 2
	return nil
}

// WriteU32LE writes a little-endian uint32.
func (w *Writer) WriteU32LE(v uint32) error {
	if err := w.Ensure("write_u32_le", 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(w.buf[w.pos:], v)
	w.pos += 4
	return nil
}

// WriteU32BE writes a big-endian uint32.
func (w *Writer) WriteU32BE(v uint32) error {
	if err := w.Ensure("write_u32_be", 4); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(w.buf[w.pos:], v)
	w.pos += 4
	return nil
}
