// Package mppc implements the Microsoft Point-to-Point Compression
// algorithm used by RDP4 (8 KiB history) and RDP5 (64 KiB history), per
// spec.md 4.3.1. Each side owns one Context per direction; Context is not
// safe for concurrent use, matching the "compressors own their history
// buffers exclusively" resource policy in spec.md 5.
package mppc

import (
	"github.com/rcarmo/go-rdp/internal/compression"
	"github.com/rcarmo/go-rdp/internal/compression/bitio"
)

// Level selects the history size: RDP4 (8 KiB) or RDP5 (64 KiB).
type Level int

const (
	Level8K  Level = iota // RDP4
	Level64K              // RDP5
)

const (
	minMatchLen = 3
	maxBucket   = 8 // bounded candidate list per hash bucket

	// compactFactor bounds how large the live stream buffer is allowed to
	// grow (as a multiple of the history window) before old bytes are
	// dropped and the matcher's indices are shifted down to match, keeping
	// memory use finite per spec.md 9 regardless of connection lifetime.
	compactFactor = 4
)

// WindowSize returns the history size in bytes for this level.
func (l Level) WindowSize() int { return l.historySize() }

func (l Level) historySize() int {
	if l == Level64K {
		return 64 * 1024
	}
	return 8 * 1024
}

func (l Level) maxMatchLen() int {
	if l == Level64K {
		return 4096
	}
	return 64
}

func (l Level) flagType() compression.Type {
	if l == Level64K {
		return compression.TypeRDP5
	}
	return compression.TypeRDP4
}

// Context is a one-directional compress-or-decompress MPPC session; a
// connection uses one Context per direction (send, receive), never both on
// the same instance, mirroring spec.md's send/receive context split.
type Context struct {
	level   Level
	stream  []byte // history, followed by whatever this call is processing
	matcher *compression.HashMatcher
	flushed bool // true on construction and right after Reset
}

// New creates an MPPC context at the given history level, starting flushed
// (no history), matching a fresh connection's state.
func New(level Level) *Context {
	return &Context{level: level, matcher: compression.NewHashMatcher(minMatchLen, maxBucket), flushed: true}
}

// Reset discards all history and hash state, forcing the next Compress call
// to report AtFront/Flushed, per spec.md 4.3's "flush" operation.
func (c *Context) Reset() {
	c.stream = nil
	c.matcher.Reset()
	c.flushed = true
}

// Compress returns the flags byte and the encoded payload. Per spec.md
// 4.3/8, inputs at or below 50 bytes or at or above 16384 bytes skip
// compression: flags carries no COMPRESSED bit and out aliases src.
func (c *Context) Compress(src []byte) (compression.Flag, []byte) {
	if compression.ShouldSkip(src) {
		c.appendAndCompact(src)
		return 0, src
	}

	atFront := c.flushed
	if atFront {
		// Bytes recorded from skipped packets since the flush are dropped too,
		// so the receiver's reset on FLUSHED leaves both histories equal.
		c.stream = nil
		c.matcher.Reset()
	}
	base := len(c.stream)
	c.stream = append(c.stream, src...)

	w := bitio.NewWriter()
	w.WriteBits(uint32(len(src)), 32)

	maxMatch := c.level.maxMatchLen()
	windowSize := c.level.historySize()
	i := 0
	for i < len(src) {
		pos := base + i
		length, dist := c.matcher.FindMatch(c.stream, pos, maxMatch, windowSize)
		if length >= minMatchLen {
			w.WriteBit(1)
			compression.EncodeLength(w, length, minMatchLen)
			compression.EncodeLength(w, dist, 1)
			c.matcher.IndexRange(c.stream, pos, length)
			i += length
		} else {
			w.WriteBit(0)
			w.WriteBits(uint32(src[i]), 8)
			c.matcher.IndexRange(c.stream, pos, 1)
			i++
		}
	}

	c.compact()
	c.flushed = false
	return compression.Pack(c.level.flagType(), true, atFront, atFront), w.Bytes()
}

// Decompress reconstructs the original bytes from a Compress output. When
// flags reports FLUSHED, the receive-side history is discarded first, per
// spec.md's resolution of the dual-flush ambiguity (DESIGN.md).
func (c *Context) Decompress(src []byte, flags compression.Flag) ([]byte, error) {
	if flags.Flushed() {
		c.Reset()
	}
	if !flags.Compressed() {
		c.appendAndCompact(src)
		return src, nil
	}

	r := bitio.NewReader(src)
	declLenV, err := r.ReadBits(32)
	if err != nil {
		return nil, err
	}
	declLen := int(declLenV)

	start := len(c.stream)
	windowSize := c.level.historySize()

	for len(c.stream)-start < declLen {
		bit, err := r.ReadBit()
		if err != nil {
			return nil, err
		}
		if bit == 1 {
			length, err := compression.DecodeLength(r, minMatchLen)
			if err != nil {
				return nil, err
			}
			dist, err := compression.DecodeLength(r, 1)
			if err != nil {
				return nil, err
			}
			if dist > windowSize {
				return nil, ErrBadDistance
			}
			srcIdx := len(c.stream) - dist
			if srcIdx < 0 {
				return nil, ErrBadDistance
			}
			for k := 0; k < length; k++ {
				c.stream = append(c.stream, c.stream[srcIdx+k])
			}
		} else {
			b, err := r.ReadBits(8)
			if err != nil {
				return nil, err
			}
			c.stream = append(c.stream, byte(b))
		}
	}

	out := append([]byte(nil), c.stream[start:]...)
	c.compact()
	c.flushed = false
	return out, nil
}

// appendAndCompact records skipped (uncompressed) bytes into history so a
// later compressed packet can still reference them.
func (c *Context) appendAndCompact(b []byte) {
	c.stream = append(c.stream, b...)
	c.compact()
}

// compact trims the live stream buffer once it exceeds compactFactor times
// the window size, shifting the matcher's indices to match.
func (c *Context) compact() {
	size := c.level.historySize()
	if len(c.stream) <= size*compactFactor {
		return
	}
	drop := len(c.stream) - size
	c.stream = append([]byte(nil), c.stream[drop:]...)
	c.matcher.Compact(drop)
}
