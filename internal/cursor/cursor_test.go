package cursor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderBoundsChecks(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03, 0x04})

	v, err := r.ReadU16LE()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0201), v)
	assert.Equal(t, 2, r.Len())

	_, err = r.ReadU32LE()
	require.Error(t, err)

	var shortBuf *ErrShortBuffer
	assert.True(t, errors.As(err, &shortBuf))
	assert.Equal(t, 4, shortBuf.Expected)
	assert.Equal(t, 2, shortBuf.Remaining)
}

func TestReaderEndianness(t *testing.T) {
	r := NewReader([]byte{0x00, 0x01, 0x02, 0x03})
	be, err := r.ReadU16BE()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0001), be)

	be32, err := r.ReadU16BE()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0203), be32)
}

func TestReaderSliceAndAdvance(t *testing.T) {
	r := NewReader([]byte("hello world"))

	peeked, err := r.PeekSlice(5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(peeked))
	assert.Equal(t, 11, r.Len(), "peek must not advance")

	require.NoError(t, r.Advance(6))
	assert.Equal(t, "world", string(r.Rest()))
	assert.Equal(t, 0, r.Len())
}

func TestWriterRoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	w := NewWriter(buf)

	require.NoError(t, w.WriteU32BE(0xCAFEBABE))
	require.NoError(t, w.WriteU16LE(0x1234))
	require.NoError(t, w.WriteU8(0xFF))

	assert.Equal(t, 7, w.Pos())

	r := NewReader(w.Bytes())
	v32, err := r.ReadU32BE()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xCAFEBABE), v32)

	v16, err := r.ReadU16LE()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v16)

	v8, err := r.ReadU8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xFF), v8)
}

func TestWriterOverflow(t *testing.T) {
	w := NewWriter(make([]byte, 1))
	err := w.WriteU16LE(1)
	require.Error(t, err)

	var shortBuf *ErrShortBuffer
	require.True(t, errors.As(err, &shortBuf))
	assert.Equal(t, 2, shortBuf.Expected)
	assert.Equal(t, 1, shortBuf.Remaining)
}

func TestWriteSliceFull(t *testing.T) {
	w := NewWriter(make([]byte, 5))
	require.NoError(t, w.WriteSlice([]byte("hello")))
	assert.Equal(t, "hello", string(w.Bytes()))

	err := w.WriteU8(1)
	require.Error(t, err)
}
