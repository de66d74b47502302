// Package xcrush implements the XCRUSH (RDP6.1) bulk compressor: a
// two-tier scheme where an outer chunk-hash matcher replaces long
// 8-byte-aligned repeats with compact (distance, length) descriptors, and
// the remaining literal bytes plus descriptors are forwarded to an inner
// MPPC compressor, per spec.md 4.3.3.
package xcrush

import (
	"encoding/binary"

	"github.com/rcarmo/go-rdp/internal/compression"
	"github.com/rcarmo/go-rdp/internal/compression/mppc"
)

const (
	chunkSize   = 8
	maxMatchLen = 1 << 20
	maxBucket   = 8
	historySize = 64 * 1024

	// escapeByte marks the start of a descriptor in the staged stream that
	// gets handed to the inner MPPC compressor. A literal byte equal to
	// escapeByte is written as escapeByte followed by the uvarint 0 (one
	// zero byte); distance 0 is otherwise invalid, so it is reserved to mean
	// "this was a literal escapeByte, not a descriptor".
	escapeByte = 0xFE
)

// Context is a one-directional XCRUSH compress-or-decompress session:
// an outer chunk matcher plus an inner MPPC (RDP5, 64 KiB) context.
type Context struct {
	outerStream []byte
	outer       *compression.HashMatcher
	inner       *mppc.Context
}

// New creates an XCRUSH context with fresh outer and inner history.
func New() *Context {
	return &Context{
		outer: compression.NewHashMatcher(chunkSize, maxBucket),
		inner: mppc.New(mppc.Level64K),
	}
}

// Reset discards both tiers' history, forcing AtFront on the next Compress.
func (c *Context) Reset() {
	c.outerStream = nil
	c.outer.Reset()
	c.inner.Reset()
}

// Compress stages src through the outer chunk matcher, then compresses the
// staged bytes with the inner MPPC context. Skip thresholds apply to the
// original (unstaged) input, per spec.md 4.3/8.
func (c *Context) Compress(src []byte) (compression.Flag, []byte) {
	if compression.ShouldSkip(src) {
		c.appendOuter(src)
		return 0, src
	}

	staged := c.stage(src)
	c.appendOuter(src)
	if compression.ShouldSkip(staged) {
		// The inner compressor would pass staged through uncompressed, and an
		// uncompressed packet carries no descriptors, so send src itself.
		return 0, src
	}

	innerFlags, innerOut := c.inner.Compress(staged)
	flags := compression.Pack(compression.TypeXCRUSH, innerFlags.Compressed(), innerFlags.AtFront(), innerFlags.Flushed())
	return flags, innerOut
}

// Decompress reverses Compress: inner MPPC decompress recovers the staged
// byte stream, then the outer descriptors are expanded using the outer
// tier's own history of previously reconstructed bytes.
func (c *Context) Decompress(src []byte, flags compression.Flag) ([]byte, error) {
	if !flags.Compressed() {
		c.appendOuter(src)
		return src, nil
	}

	innerFlags := compression.Pack(compression.TypeRDP5, true, flags.AtFront(), flags.Flushed())
	staged, err := c.inner.Decompress(src, innerFlags)
	if err != nil {
		return nil, err
	}

	out, err := c.unstage(staged)
	if err != nil {
		return nil, err
	}
	c.appendOuter(out)
	return out, nil
}

func (c *Context) appendOuter(b []byte) {
	base := len(c.outerStream)
	c.outerStream = append(c.outerStream, b...)
	c.outer.IndexRange(c.outerStream, base, len(b))
	if len(c.outerStream) > historySize*4 {
		drop := len(c.outerStream) - historySize
		c.outerStream = append([]byte(nil), c.outerStream[drop:]...)
		c.outer.Compact(drop)
	}
}

// stage replaces runs of at least chunkSize bytes that match earlier
// outer-tier history with a (distance, length) descriptor.
func (c *Context) stage(src []byte) []byte {
	base := len(c.outerStream)
	combined := append(append([]byte(nil), c.outerStream...), src...)

	staged := make([]byte, 0, len(src))
	i := 0
	for i < len(src) {
		pos := base + i
		length, dist := c.outer.FindMatch(combined, pos, maxMatchLen, historySize)
		if length >= chunkSize {
			staged = append(staged, escapeByte)
			staged = appendUvarint(staged, uint64(dist))
			staged = appendUvarint(staged, uint64(length))
			i += length
		} else if src[i] == escapeByte {
			staged = append(staged, escapeByte, 0x00)
			i++
		} else {
			staged = append(staged, src[i])
			i++
		}
	}
	return staged
}

// unstage expands descriptors in a staged stream back into literal bytes,
// using out (bytes already reconstructed this call, plus prior history via
// the caller's running context) as the copy source.
func (c *Context) unstage(staged []byte) ([]byte, error) {
	out := append([]byte(nil), c.outerStream...)
	start := len(out)

	i := 0
	for i < len(staged) {
		if staged[i] != escapeByte {
			out = append(out, staged[i])
			i++
			continue
		}
		i++
		if i >= len(staged) {
			return nil, ErrTruncatedDescriptor
		}
		dist, n := binary.Uvarint(staged[i:])
		if n <= 0 {
			return nil, ErrTruncatedDescriptor
		}
		i += n
		if dist == 0 {
			out = append(out, escapeByte)
			continue
		}
		length, n := binary.Uvarint(staged[i:])
		if n <= 0 {
			return nil, ErrTruncatedDescriptor
		}
		i += n

		srcIdx := len(out) - int(dist)
		if srcIdx < 0 {
			return nil, ErrBadDistance
		}
		for k := uint64(0); k < length; k++ {
			out = append(out, out[srcIdx+int(k)])
		}
	}
	return out[start:], nil
}

func appendUvarint(dst []byte, v uint64) []byte {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	return append(dst, buf[:n]...)
}
