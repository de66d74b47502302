// Package ncrush implements the NCRUSH (RDP6) bulk compressor: Huffman
// coding over a fixed canonical table instead of MPPC's raw literal/length
// encoding, per spec.md 4.3.2. History size and flush semantics match MPPC
// (64 KiB window, same flag schema).
package ncrush

import (
	"math/bits"

	"github.com/rcarmo/go-rdp/internal/compression"
	"github.com/rcarmo/go-rdp/internal/compression/bitio"
)

const (
	minMatchLen   = 3
	maxMatchLen   = 4096
	maxBucket     = 8
	historySize   = 64 * 1024
	compactFactor = 4
	distanceLevels = 16
	// maxDistance is one less than historySize so the 16-level distance
	// alphabet's top level (15 extra bits, 32768 values) exactly covers
	// [2^15, 2^16-1] without overflowing into a 16th bit.
	maxDistance = (1 << distanceLevels) - 1
)

// literalTable and distanceTable are built once at package init and never
// rebuilt per block, matching spec.md 4.3.2's "fixed canonical table (not
// rebuilt per block)". literalTable's frequency model favors lower byte
// values, which dominate RDP share-data payloads (structure bytes, small
// integers); distanceTable favors short distances, the common case for
// screen redraws. Match lengths are not Huffman-coded: they use
// compression.EncodeLength.
var (
	literalTable  = compression.NewHuffmanTable(literalFreqs())
	distanceTable = compression.NewHuffmanTable(distanceFreqs())
)

func literalFreqs() []int {
	f := make([]int, 256)
	for i := range f {
		f[i] = 512 - i
	}
	return f
}

func distanceFreqs() []int {
	f := make([]int, distanceLevels)
	for i := range f {
		f[i] = 1 << uint(distanceLevels-i)
	}
	return f
}

// Context is a one-directional NCRUSH compress-or-decompress session.
type Context struct {
	stream  []byte
	matcher *compression.HashMatcher
	flushed bool
}

// New creates an NCRUSH context, starting flushed (no history).
func New() *Context {
	return &Context{matcher: compression.NewHashMatcher(minMatchLen, maxBucket), flushed: true}
}

// Reset discards history and hash state; the next Compress reports
// AtFront/Flushed.
func (c *Context) Reset() {
	c.stream = nil
	c.matcher.Reset()
	c.flushed = true
}

// Compress returns the flags byte and encoded payload, skipping compression
// per the shared thresholds in spec.md 4.3/8.
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

	i := 0
	for i < len(src) {
		pos := base + i
		length, dist := c.matcher.FindMatch(c.stream, pos, maxMatchLen, maxDistance)
		if length >= minMatchLen {
			w.WriteBit(1)
			compression.EncodeLength(w, length, minMatchLen)
			encodeDistance(w, dist)
			c.matcher.IndexRange(c.stream, pos, length)
			i += length
		} else {
			w.WriteBit(0)
			literalTable.Encode(w, int(src[i]))
			c.matcher.IndexRange(c.stream, pos, 1)
			i++
		}
	}

	c.compact()
	c.flushed = false
	return compression.Pack(compression.TypeNCRUSH, true, atFront, atFront), w.Bytes()
}

// Decompress reconstructs the original bytes from a Compress output.
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
			dist, err := decodeDistance(r)
			if err != nil {
				return nil, err
			}
			srcIdx := len(c.stream) - dist
			if srcIdx < 0 {
				return nil, ErrBadDistance
			}
			for k := 0; k < length; k++ {
				c.stream = append(c.stream, c.stream[srcIdx+k])
			}
		} else {
			sym, err := literalTable.Decode(r)
			if err != nil {
				return nil, err
			}
			c.stream = append(c.stream, byte(sym))
		}
	}

	out := append([]byte(nil), c.stream[start:]...)
	c.compact()
	c.flushed = false
	return out, nil
}

func (c *Context) appendAndCompact(b []byte) {
	c.stream = append(c.stream, b...)
	c.compact()
}

func (c *Context) compact() {
	if len(c.stream) <= historySize*compactFactor {
		return
	}
	drop := len(c.stream) - historySize
	c.stream = append([]byte(nil), c.stream[drop:]...)
	c.matcher.Compact(drop)
}

// encodeDistance writes dist as a (level, extra-bits) pair: level is the
// Huffman-coded bit position of the highest set bit, extra bits give the
// exact value within that power-of-two bucket, the "~16-level match-distance
// alphabet" spec.md 4.3.2 names.
func encodeDistance(w *bitio.Writer, dist int) {
	level := bits.Len(uint(dist)) - 1
	if level >= distanceLevels {
		level = distanceLevels - 1
	}
	distanceTable.Encode(w, level)
	extra := dist - (1 << uint(level))
	if level > 0 {
		w.WriteBits(uint32(extra), level)
	}
}

func decodeDistance(r *bitio.Reader) (int, error) {
	level, err := distanceTable.Decode(r)
	if err != nil {
		return 0, err
	}
	extra := uint32(0)
	if level > 0 {
		extra, err = r.ReadBits(level)
		if err != nil {
			return 0, err
		}
	}
	return (1 << uint(level)) + int(extra), nil
}
