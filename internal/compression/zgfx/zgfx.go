// Package zgfx implements the RDP8 graphics-pipeline bulk compressor: an
// LZ77 variant with a 2.5 MiB sliding window, a 3-byte-prefix match table,
// and the fixed 40-entry token table of spec.md 4.3.4. Unlike MPPC/NCRUSH/
// XCRUSH, ZGFX has no send/receive flag byte of its own; the segment
// framing (single vs. multipart, the COMPRESSED bit) lives one layer up in
// the graphics pipeline's segmented-data PDU, per spec.md 4.3.4's first
// paragraph.
package zgfx

import (
	"github.com/rcarmo/go-rdp/internal/compression/bitio"
)

const (
	minMatchLen = 3
	maxMatchLen = 65535

	// historySize is the 2.5 MiB sliding window spec.md 4.3.4 and 5 name.
	historySize = 2_500_000

	// maxMatchDistance is the reach of the widest (last) match token:
	// distanceBase + 2^distanceBits - 1 for token 39.
	maxMatchDistance = 17094304 + (1 << 24) - 1

	maxCandidates        = 16
	maxPositionsPerPrefix = 32
	maxHashTableEntries   = 50000
)

// Context is a one-directional ZGFX compress-or-decompress session, owning
// its own history and match table (never shared between directions).
type Context struct {
	history    []byte
	matchTable map[[3]byte][]int
}

// New creates a ZGFX context with an empty history and match table.
func New() *Context {
	return &Context{matchTable: make(map[[3]byte][]int)}
}

// Reset discards history and match state.
func (c *Context) Reset() {
	c.history = nil
	c.matchTable = make(map[[3]byte][]int)
}

// Compress encodes src as a ZGFX token stream: a sequence of literal and
// match tokens from the 40-entry table, followed by one trailing byte
// giving the count of unused bits in the final data byte, per spec.md
// 4.3.4. The trailing byte is always present, even for empty input.
func (c *Context) Compress(src []byte) []byte {
	w := bitio.NewWriter()
	pos := 0

	for pos < len(src) {
		length, dist := c.findBestMatch(src, pos)
		if length >= minMatchLen {
			encodeMatch(w, dist, length)
			c.addToHistory(src[pos : pos+length])
			pos += length
			continue
		}

		encodeLiteral(w, src[pos])
		c.addToHistory(src[pos : pos+1])
		pos++
	}

	unused := w.UnusedBits()
	out := w.Bytes()
	return append(out, byte(unused))
}

// Decompress reverses Compress, tracing the token trie bit by bit and
// appending every produced byte to history so later segments can reference
// it, exactly as the encoder does.
func (c *Context) Decompress(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, ErrTruncatedSegment
	}
	unused := int(src[len(src)-1])
	data := src[:len(src)-1]
	validBits := len(data)*8 - unused
	if validBits < 0 {
		return nil, ErrTruncatedSegment
	}

	r := bitio.NewReader(data)
	totalBits := len(data) * 8
	remaining := func() int { return validBits - (totalBits - r.BitsRemaining()) }

	var out []byte
	for remaining() > 0 {
		tok, err := readToken(r)
		if err != nil {
			return nil, err
		}

		switch tok.kind {
		case kindNullLiteral:
			v, err := r.ReadBits(8)
			if err != nil {
				return nil, err
			}
			b := byte(v)
			c.addToHistory([]byte{b})
			out = append(out, b)

		case kindLiteral:
			c.addToHistory([]byte{tok.literalValue})
			out = append(out, tok.literalValue)

		case kindMatch:
			distValue, err := r.ReadBits(tok.distanceBits)
			if err != nil {
				return nil, err
			}
			dist := tok.distanceBase + distValue

			if dist == 0 {
				chunk, err := readUnencodedRun(r)
				if err != nil {
					return nil, err
				}
				c.addToHistory(chunk)
				out = append(out, chunk...)
				continue
			}

			length, err := decodeMatchLength(r)
			if err != nil {
				return nil, err
			}
			srcIdx := len(c.history) - int(dist)
			if srcIdx < 0 {
				return nil, ErrBadDistance
			}
			chunk := make([]byte, length)
			for k := 0; k < length; k++ {
				chunk[k] = c.history[srcIdx+k]
			}
			c.addToHistory(chunk)
			out = append(out, chunk...)
		}
	}

	return out, nil
}

func readToken(r *bitio.Reader) (token, error) {
	n := tokenTrie
	for n.tokenIdx < 0 {
		bit, err := r.ReadBit()
		if err != nil {
			return token{}, err
		}
		n = n.children[bit]
		if n == nil {
			return token{}, ErrInvalidToken
		}
	}
	return tokenTable[n.tokenIdx], nil
}

// readUnencodedRun reads the 15-bit byte count and the byte-aligned raw
// bytes that follow a zero-distance match token, per spec.md 4.3.4.
func readUnencodedRun(r *bitio.Reader) ([]byte, error) {
	lengthV, err := r.ReadBits(15)
	if err != nil {
		return nil, err
	}
	r.AlignByte()
	out := make([]byte, lengthV)
	for i := range out {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// encodeLiteral writes either a dedicated literal token (tokens 1-25) or
// the null-literal escape ("0" prefix + 8-bit raw value).
func encodeLiteral(w *bitio.Writer, b byte) {
	if idx, ok := findLiteralToken(b); ok {
		writeBits(w, tokenTable[idx].prefix)
		return
	}
	w.WriteBit(0)
	w.WriteBits(uint32(b), 8)
}

// encodeMatch writes a match token (26-39) selected by distance, the
// distance value relative to that token's base, and the match length code.
func encodeMatch(w *bitio.Writer, dist, length int) {
	idx := findMatchToken(uint32(dist))
	tok := tokenTable[idx]
	writeBits(w, tok.prefix)
	w.WriteBits(uint32(dist)-tok.distanceBase, tok.distanceBits)
	encodeMatchLength(w, length)
}

func writeBits(w *bitio.Writer, prefix []byte) {
	for _, b := range prefix {
		w.WriteBit(b)
	}
}

// encodeMatchLength implements spec.md 4.3.4's length code: length 3 is a
// single "0" bit; otherwise k one-bits, a zero bit, then k+1 value bits,
// where length = 2^(k+1) + value. k is chosen so 2^(k+1) <= length and is
// always >= 1 for length >= 4, keeping the "0" pattern exclusive to length 3.
func encodeMatchLength(w *bitio.Writer, length int) {
	if length == 3 {
		w.WriteBit(0)
		return
	}
	k := log2Floor(length) - 1
	base := 1 << uint(k+1)
	value := length - base
	for i := 0; i < k; i++ {
		w.WriteBit(1)
	}
	w.WriteBit(0)
	w.WriteBits(uint32(value), k+1)
}

func decodeMatchLength(r *bitio.Reader) (int, error) {
	k := 0
	for {
		bit, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		if bit == 0 {
			break
		}
		k++
	}
	if k == 0 {
		return 3, nil
	}
	value, err := r.ReadBits(k + 1)
	if err != nil {
		return 0, err
	}
	base := 1 << uint(k+1)
	return base + int(value), nil
}

func log2Floor(v int) int {
	n := 0
	for v > 1 {
		v >>= 1
		n++
	}
	return n
}

// findBestMatch searches the match table for the longest run at src[pos:],
// capped at maxCandidates lookbacks and an early exit once a long-enough
// match is found, per spec.md 4.3.4's bounded auxiliary structures.
func (c *Context) findBestMatch(src []byte, pos int) (length, dist int) {
	remaining := len(src) - pos
	if remaining < minMatchLen || len(c.history) == 0 {
		return 0, 0
	}

	var prefix [3]byte
	copy(prefix[:], src[pos:pos+3])
	candidates := c.matchTable[prefix]
	if len(candidates) == 0 {
		return 0, 0
	}

	maxLen := remaining
	if maxLen > maxMatchLen {
		maxLen = maxMatchLen
	}
	searchLimit := len(c.history)
	if searchLimit > maxMatchDistance {
		searchLimit = maxMatchDistance
	}

	best, bestDist := 0, 0
	checked := 0
	for i := len(candidates) - 1; i >= 0 && checked < maxCandidates; i-- {
		checked++
		histPos := candidates[i]
		d := len(c.history) - histPos

		if d > searchLimit {
			continue
		}

		n := minMatchLen
		for n < maxLen && histPos+n < len(c.history) && c.history[histPos+n] == src[pos+n] {
			n++
		}
		if n > best {
			best, bestDist = n, d
		}
		if n >= 32 {
			break
		}
	}
	return best, bestDist
}

// addToHistory extends the sliding window, evicting the oldest bytes once
// full and shifting stored match positions to match, then indexes the new
// bytes' 3-byte prefixes for future lookups.
func (c *Context) addToHistory(b []byte) {
	if len(c.history)+len(b) > historySize {
		overflow := (len(c.history) + len(b)) - historySize
		c.history = append([]byte(nil), c.history[overflow:]...)
		for prefix, positions := range c.matchTable {
			kept := positions[:0]
			for _, p := range positions {
				if p >= overflow {
					kept = append(kept, p-overflow)
				}
			}
			if len(kept) == 0 {
				delete(c.matchTable, prefix)
			} else {
				c.matchTable[prefix] = kept
			}
		}
	}

	base := len(c.history)
	c.history = append(c.history, b...)

	step := 1
	if len(b) > 256 {
		step = 4
	}
	// Index every position whose 3-byte prefix ends inside b, including the
	// up to two positions before base that only now have a full prefix.
	start := base - (minMatchLen - 1)
	if start < 0 {
		start = 0
	}
	for p := start; p+minMatchLen <= len(c.history); p += step {
		c.indexPosition(p)
	}

	if len(c.matchTable) > maxHashTableEntries {
		c.compactMatchTable()
	}
}

func (c *Context) indexPosition(pos int) {
	if pos+minMatchLen > len(c.history) {
		return
	}
	var prefix [3]byte
	copy(prefix[:], c.history[pos:pos+3])
	entry := c.matchTable[prefix]
	if len(entry) < maxPositionsPerPrefix {
		entry = append(entry, pos)
	} else {
		entry = append(entry[1:], pos)
	}
	c.matchTable[prefix] = entry
}

// compactMatchTable halves each prefix's stored positions, keeping the most
// recent half, bounding memory per spec.md 4.3.4.
func (c *Context) compactMatchTable() {
	for prefix, positions := range c.matchTable {
		if len(positions) > maxPositionsPerPrefix/2 {
			keepFrom := len(positions) - maxPositionsPerPrefix/2
			c.matchTable[prefix] = append([]int(nil), positions[keepFrom:]...)
		}
	}
}
