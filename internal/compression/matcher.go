package compression

// HashMatcher finds LZ77-style back-references using a 3-byte rolling-hash
// bucket index into a caller-supplied byte stream, the match-finding scheme
// spec.md 4.3.1 describes for MPPC and which NCRUSH's outer stage reuses
// (spec.md 4.3.2: "history eviction rules are identical to MPPC").
type HashMatcher struct {
	minMatch  int
	maxBucket int
	buckets   map[uint32][]int
}

// NewHashMatcher creates a matcher requiring at least minMatch bytes per
// match and keeping at most maxBucket candidate positions per hash bucket
// (oldest evicted first), bounding memory the way spec.md 9 requires
// ("all buffers are finite and sized at construction").
func NewHashMatcher(minMatch, maxBucket int) *HashMatcher {
	return &HashMatcher{minMatch: minMatch, maxBucket: maxBucket, buckets: make(map[uint32][]int)}
}

// Reset discards all indexed positions, used when the owning compressor
// flushes its history.
func (m *HashMatcher) Reset() {
	m.buckets = make(map[uint32][]int)
}

func hash3(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// FindMatch searches for the longest match at stream[pos:] against
// previously indexed positions, capped at maxMatch bytes and maxDistance
// back (the compressor's history-window bound — matches further back than
// the window cannot be reproduced by a receiver with the same-size
// history).
func (m *HashMatcher) FindMatch(stream []byte, pos, maxMatch, maxDistance int) (length, dist int) {
	if pos+m.minMatch > len(stream) {
		return 0, 0
	}
	h := hash3(stream[pos:])
	candidates := m.buckets[h]
	best, bestPos := 0, -1
	limit := pos + maxMatch
	if limit > len(stream) {
		limit = len(stream)
	}
	for i := len(candidates) - 1; i >= 0; i-- {
		cand := candidates[i]
		if cand >= pos || pos-cand > maxDistance {
			continue
		}
		n := 0
		for pos+n < limit && stream[cand+n] == stream[pos+n] {
			n++
		}
		if n > best {
			best, bestPos = n, cand
		}
	}
	if best < m.minMatch {
		return 0, 0
	}
	return best, pos - bestPos
}

// IndexRange registers every hashable position in [pos, pos+length) so
// future matches can reference bytes just encoded.
func (m *HashMatcher) IndexRange(stream []byte, pos, length int) {
	end := pos + length
	if end > len(stream)-m.minMatch+1 {
		end = len(stream) - m.minMatch + 1
	}
	for p := pos; p < end; p++ {
		h := hash3(stream[p:])
		b := m.buckets[h]
		b = append(b, p)
		if len(b) > m.maxBucket {
			b = b[len(b)-m.maxBucket:]
		}
		m.buckets[h] = b
	}
}

// Compact shifts every indexed position down by drop, discarding any that
// fall before the new start. Called after the owning compressor trims the
// front of its history buffer so stored positions stay valid indices into
// the trimmed buffer.
func (m *HashMatcher) Compact(drop int) {
	for h, positions := range m.buckets {
		kept := positions[:0]
		for _, p := range positions {
			if p >= drop {
				kept = append(kept, p-drop)
			}
		}
		if len(kept) == 0 {
			delete(m.buckets, h)
		} else {
			m.buckets[h] = kept
		}
	}
}
