package compression

import (
	"testing"

	"github.com/rcarmo/go-rdp/internal/compression/bitio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagPackRoundTrip(t *testing.T) {
	f := Pack(TypeRDP5, true, false, true)
	assert.Equal(t, TypeRDP5, f.Type())
	assert.True(t, f.Compressed())
	assert.False(t, f.AtFront())
	assert.True(t, f.Flushed())
}

func TestShouldSkipThresholds(t *testing.T) {
	assert.True(t, ShouldSkip(make([]byte, 50)), "exactly 50 bytes must be skipped")
	assert.False(t, ShouldSkip(make([]byte, 51)))
	assert.True(t, ShouldSkip(make([]byte, 16384)), "exactly 16384 bytes must be skipped")
	assert.False(t, ShouldSkip(make([]byte, 16383)))
}

func TestLengthCodeRoundTrip(t *testing.T) {
	for _, length := range []int{3, 4, 5, 6, 10, 64, 1000, 70000} {
		w := bitio.NewWriter()
		EncodeLength(w, length, 3)
		r := bitio.NewReader(w.Bytes())
		got, err := DecodeLength(r, 3)
		require.NoError(t, err)
		assert.Equal(t, length, got)
	}
}

func TestLengthCodeDistinctPrefixes(t *testing.T) {
	// Shorter lengths must not produce bit patterns that are prefixes of
	// longer ones when packed back-to-back, which is what lets the decoder
	// trace codes one bit at a time without a length delimiter.
	w := bitio.NewWriter()
	EncodeLength(w, 3, 3)
	EncodeLength(w, 1000, 3)
	EncodeLength(w, 4, 3)
	r := bitio.NewReader(w.Bytes())

	v1, err := DecodeLength(r, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, v1)

	v2, err := DecodeLength(r, 3)
	require.NoError(t, err)
	assert.Equal(t, 1000, v2)

	v3, err := DecodeLength(r, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, v3)
}

func TestHuffmanTableRoundTrip(t *testing.T) {
	freqs := make([]int, 256)
	for i := range freqs {
		freqs[i] = 256 - i // skewed distribution, low symbols far more frequent
	}
	table := NewHuffmanTable(freqs)

	w := bitio.NewWriter()
	msg := []int{0, 0, 1, 2, 255, 128, 0, 64}
	for _, sym := range msg {
		table.Encode(w, sym)
	}

	r := bitio.NewReader(w.Bytes())
	for _, want := range msg {
		got, err := table.Decode(r)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestHuffmanShorterCodesForFrequentSymbols(t *testing.T) {
	freqs := []int{1000, 1, 1, 1}
	table := NewHuffmanTable(freqs)
	assert.LessOrEqual(t, table.bySymbol[0].Length, table.bySymbol[1].Length)
}
