package zgfx

// tokenKind distinguishes the three token shapes the 40-entry ZGFX table
// holds, per spec.md 4.3.4.
type tokenKind int

const (
	kindNullLiteral tokenKind = iota
	kindLiteral
	kindMatch
)

// token is one entry of the fixed 40-entry table: a prefix bitstring plus
// its payload. prefix bits are stored MSB-first, one bit per byte (0 or 1),
// matching how they are read off the wire.
type token struct {
	prefix       []byte
	kind         tokenKind
	literalValue byte
	distanceBits int
	distanceBase uint32
}

// tokenTable is the fixed 40-entry table: token 0 is the null-literal
// escape, tokens 1-25 are direct literal-value codes for the most common
// bytes, tokens 26-39 are match tokens with increasing distance ranges.
// Never rebuilt at runtime, matching NCRUSH's "fixed canonical table" and
// spec.md 4.3.4's literal token list and the MS-RDPEGFX distance-base table.
var tokenTable = []token{
	{prefix: bits(0), kind: kindNullLiteral},

	{prefix: bits(1, 1, 0, 0, 0), kind: kindLiteral, literalValue: 0x00},
	{prefix: bits(1, 1, 0, 0, 1), kind: kindLiteral, literalValue: 0x01},
	{prefix: bits(1, 1, 0, 1, 0, 0), kind: kindLiteral, literalValue: 0x02},
	{prefix: bits(1, 1, 0, 1, 0, 1), kind: kindLiteral, literalValue: 0x03},
	{prefix: bits(1, 1, 0, 1, 1, 0), kind: kindLiteral, literalValue: 0xff},
	{prefix: bits(1, 1, 0, 1, 1, 1, 0), kind: kindLiteral, literalValue: 0x04},
	{prefix: bits(1, 1, 0, 1, 1, 1, 1), kind: kindLiteral, literalValue: 0x05},
	{prefix: bits(1, 1, 1, 0, 0, 0, 0), kind: kindLiteral, literalValue: 0x06},
	{prefix: bits(1, 1, 1, 0, 0, 0, 1), kind: kindLiteral, literalValue: 0x07},
	{prefix: bits(1, 1, 1, 0, 0, 1, 0), kind: kindLiteral, literalValue: 0x08},
	{prefix: bits(1, 1, 1, 0, 0, 1, 1), kind: kindLiteral, literalValue: 0x09},
	{prefix: bits(1, 1, 1, 0, 1, 0, 0), kind: kindLiteral, literalValue: 0x0a},
	{prefix: bits(1, 1, 1, 0, 1, 0, 1), kind: kindLiteral, literalValue: 0x0b},
	{prefix: bits(1, 1, 1, 0, 1, 1, 0), kind: kindLiteral, literalValue: 0x3a},
	{prefix: bits(1, 1, 1, 0, 1, 1, 1), kind: kindLiteral, literalValue: 0x3b},
	{prefix: bits(1, 1, 1, 1, 0, 0, 0), kind: kindLiteral, literalValue: 0x3c},
	{prefix: bits(1, 1, 1, 1, 0, 0, 1), kind: kindLiteral, literalValue: 0x3d},
	{prefix: bits(1, 1, 1, 1, 0, 1, 0), kind: kindLiteral, literalValue: 0x3e},
	{prefix: bits(1, 1, 1, 1, 0, 1, 1), kind: kindLiteral, literalValue: 0x3f},
	{prefix: bits(1, 1, 1, 1, 1, 0, 0), kind: kindLiteral, literalValue: 0x40},
	{prefix: bits(1, 1, 1, 1, 1, 0, 1), kind: kindLiteral, literalValue: 0x80},
	{prefix: bits(1, 1, 1, 1, 1, 1, 0, 0), kind: kindLiteral, literalValue: 0x0c},
	{prefix: bits(1, 1, 1, 1, 1, 1, 0, 1), kind: kindLiteral, literalValue: 0x38},
	{prefix: bits(1, 1, 1, 1, 1, 1, 1, 0), kind: kindLiteral, literalValue: 0x39},
	{prefix: bits(1, 1, 1, 1, 1, 1, 1, 1), kind: kindLiteral, literalValue: 0x66},

	{prefix: bits(1, 0, 0, 0, 1), kind: kindMatch, distanceBits: 5, distanceBase: 0},
	{prefix: bits(1, 0, 0, 1, 0), kind: kindMatch, distanceBits: 7, distanceBase: 32},
	{prefix: bits(1, 0, 0, 1, 1), kind: kindMatch, distanceBits: 9, distanceBase: 160},
	{prefix: bits(1, 0, 1, 0, 0), kind: kindMatch, distanceBits: 10, distanceBase: 672},
	{prefix: bits(1, 0, 1, 0, 1), kind: kindMatch, distanceBits: 12, distanceBase: 1696},
	{prefix: bits(1, 0, 1, 1, 0, 0), kind: kindMatch, distanceBits: 14, distanceBase: 5792},
	{prefix: bits(1, 0, 1, 1, 0, 1), kind: kindMatch, distanceBits: 15, distanceBase: 22176},
	{prefix: bits(1, 0, 1, 1, 1, 0, 0), kind: kindMatch, distanceBits: 18, distanceBase: 54944},
	{prefix: bits(1, 0, 1, 1, 1, 0, 1), kind: kindMatch, distanceBits: 20, distanceBase: 317088},
	{prefix: bits(1, 0, 1, 1, 1, 1, 0, 0), kind: kindMatch, distanceBits: 20, distanceBase: 1365664},
	{prefix: bits(1, 0, 1, 1, 1, 1, 0, 1), kind: kindMatch, distanceBits: 21, distanceBase: 2414240},
	{prefix: bits(1, 0, 1, 1, 1, 1, 1, 0, 0), kind: kindMatch, distanceBits: 22, distanceBase: 4511392},
	{prefix: bits(1, 0, 1, 1, 1, 1, 1, 0, 1), kind: kindMatch, distanceBits: 23, distanceBase: 8705696},
	{prefix: bits(1, 0, 1, 1, 1, 1, 1, 1, 0), kind: kindMatch, distanceBits: 24, distanceBase: 17094304},
}

func bits(v ...int) []byte {
	b := make([]byte, len(v))
	for i, x := range v {
		b[i] = byte(x)
	}
	return b
}

// trieNode is a binary-prefix trie over tokenTable so the decoder can read
// one bit at a time and land on a unique token once its prefix completes.
type trieNode struct {
	tokenIdx int // -1 when this node is not itself a token
	children [2]*trieNode
}

var tokenTrie = buildTrie()

func buildTrie() *trieNode {
	root := &trieNode{tokenIdx: -1}
	for idx, tok := range tokenTable {
		n := root
		for _, b := range tok.prefix {
			if n.children[b] == nil {
				n.children[b] = &trieNode{tokenIdx: -1}
			}
			n = n.children[b]
		}
		n.tokenIdx = idx
	}
	return root
}

// findLiteralToken returns the index of the dedicated literal token for b,
// if one of the 25 common-byte slots covers it.
func findLiteralToken(b byte) (int, bool) {
	for i := 1; i < 26; i++ {
		if tokenTable[i].literalValue == b {
			return i, true
		}
	}
	return 0, false
}

// findMatchToken returns the index of the first match token (26-39, in
// table order) whose distance range covers dist, falling back to the last
// (widest) match token, mirroring the reference compressor's selection.
func findMatchToken(dist uint32) int {
	for i := 26; i < len(tokenTable); i++ {
		t := tokenTable[i]
		maxDist := t.distanceBase + (uint32(1) << uint(t.distanceBits)) - 1
		if dist <= maxDist {
			return i
		}
	}
	return len(tokenTable) - 1
}
