package compression

import (
	"container/heap"
	"sort"

	"github.com/rcarmo/go-rdp/internal/compression/bitio"
)

// huffmanHeapNode is one node of the Huffman merge tree; leaves carry a
// symbol, internal nodes carry freq == left.freq+right.freq and sym == -1.
type huffmanHeapNode struct {
	freq        int
	sym         int
	left, right *huffmanHeapNode
}

type nodeHeap []*huffmanHeapNode

func (h nodeHeap) Len() int            { return len(h) }
func (h nodeHeap) Less(i, j int) bool  { return h[i].freq < h[j].freq }
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x interface{}) { *h = append(*h, x.(*huffmanHeapNode)) }
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// BuildCanonicalLengths runs the standard Huffman merge algorithm over freqs
// (indexed by symbol) and returns the resulting code length per symbol. A
// symbol with zero frequency still receives a length (every symbol in the
// alphabet must be representable, even unseen ones, because NCRUSH's table
// is fixed rather than rebuilt per block per spec.md 4.3.2).
func BuildCanonicalLengths(freqs []int) []int {
	n := len(freqs)
	lengths := make([]int, n)
	if n == 1 {
		lengths[0] = 1
		return lengths
	}

	h := make(nodeHeap, 0, n)
	for sym, f := range freqs {
		if f <= 0 {
			f = 1
		}
		h = append(h, &huffmanHeapNode{freq: f, sym: sym})
	}
	heap.Init(&h)

	for h.Len() > 1 {
		a := heap.Pop(&h).(*huffmanHeapNode)
		b := heap.Pop(&h).(*huffmanHeapNode)
		heap.Push(&h, &huffmanHeapNode{freq: a.freq + b.freq, sym: -1, left: a, right: b})
	}
	root := h[0]

	var walk func(n *huffmanHeapNode, depth int)
	walk = func(n *huffmanHeapNode, depth int) {
		if n.left == nil && n.right == nil {
			if depth == 0 {
				depth = 1
			}
			lengths[n.sym] = depth
			return
		}
		walk(n.left, depth+1)
		walk(n.right, depth+1)
	}
	walk(root, 0)
	return lengths
}

// CanonicalCode is one symbol's canonical Huffman codeword.
type CanonicalCode struct {
	Symbol int
	Length int
	Code   uint32
}

// AssignCanonicalCodes assigns codewords to each symbol given its code
// length, in canonical order (shortest length first, then ascending
// symbol), the standard construction that lets a decoder rebuild the same
// table from lengths alone.
func AssignCanonicalCodes(lengths []int) []CanonicalCode {
	codes := make([]CanonicalCode, len(lengths))
	for sym, l := range lengths {
		codes[sym] = CanonicalCode{Symbol: sym, Length: l}
	}
	sort.SliceStable(codes, func(i, j int) bool {
		if codes[i].Length != codes[j].Length {
			return codes[i].Length < codes[j].Length
		}
		return codes[i].Symbol < codes[j].Symbol
	})

	code := uint32(0)
	prevLen := 0
	for i := range codes {
		if codes[i].Length > prevLen {
			code <<= uint(codes[i].Length - prevLen)
			prevLen = codes[i].Length
		}
		codes[i].Code = code
		code++
	}

	bySymbol := make([]CanonicalCode, len(lengths))
	for _, c := range codes {
		bySymbol[c.Symbol] = c
	}
	return bySymbol
}

// HuffmanTable is a fixed encode/decode table built once from a frequency
// model, matching NCRUSH's "canonical table, not rebuilt per block".
type HuffmanTable struct {
	bySymbol []CanonicalCode
	decodeBy map[uint64]int // key = length<<32|code -> symbol
}

// NewHuffmanTable builds a table for an alphabet of len(freqs) symbols.
func NewHuffmanTable(freqs []int) *HuffmanTable {
	lengths := BuildCanonicalLengths(freqs)
	codes := AssignCanonicalCodes(lengths)
	decodeBy := make(map[uint64]int, len(codes))
	for _, c := range codes {
		decodeBy[key(c.Length, c.Code)] = c.Symbol
	}
	return &HuffmanTable{bySymbol: codes, decodeBy: decodeBy}
}

func key(length int, code uint32) uint64 {
	return uint64(length)<<32 | uint64(code)
}

// Encode writes the codeword for sym.
func (t *HuffmanTable) Encode(w *bitio.Writer, sym int) {
	c := t.bySymbol[sym]
	w.WriteBits(c.Code, c.Length)
}

// Decode traces the bitstream one bit at a time (MSB-first) until a valid
// codeword is recognized, the textbook Huffman-tree-walk decode.
func (t *HuffmanTable) Decode(r *bitio.Reader) (int, error) {
	var code uint32
	for length := 1; length <= 32; length++ {
		bit, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		code = (code << 1) | uint32(bit)
		if sym, ok := t.decodeBy[key(length, code)]; ok {
			return sym, nil
		}
	}
	return 0, ErrInvalidCode
}
