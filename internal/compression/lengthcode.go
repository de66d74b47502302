// Package compression defines the packet flag schema shared by the three
// legacy bulk compressors (MPPC, NCRUSH, XCRUSH) and a length-prefix coding
// helper they use for match lengths (and MPPC for distances). ZGFX has its
// own segment framing and match-length code in internal/compression/zgfx.
package compression

import "github.com/rcarmo/go-rdp/internal/compression/bitio"

// EncodeLength packs length (length >= minLength) as a unary-prefixed
// binary value: k one-bits, a zero bit, then k+1 value bits give
// length = minLength + (2^(k+1) - 2 - k) + value, where bucket k holds
// 2^(k+1) - 1 values (value < 2^(k+1) - 1). length == minLength is "0"
// followed by a single 0 value bit. This is a variant of the ZGFX
// match-length code, shared by MPPC, NCRUSH and XCRUSH.
func EncodeLength(w *bitio.Writer, length, minLength int) {
	v := uint32(length - minLength)
	k := 0
	for v >= (uint32(1)<<(k+1))-1 {
		v -= (uint32(1) << (k + 1)) - 1
		k++
	}
	for i := 0; i < k; i++ {
		w.WriteBit(1)
	}
	w.WriteBit(0)
	w.WriteBits(v, k+1)
}

// DecodeLength is the inverse of EncodeLength.
func DecodeLength(r *bitio.Reader, minLength int) (int, error) {
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
	v, err := r.ReadBits(k + 1)
	if err != nil {
		return 0, err
	}
	total := uint32(0)
	for i := 0; i < k; i++ {
		total += (uint32(1) << (i + 1)) - 1
	}
	return minLength + int(total) + int(v), nil
}
