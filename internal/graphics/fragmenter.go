package graphics

import "github.com/rcarmo/go-rdp/internal/protocol/fastpath"

// defaultMaxRequestSize matches the 8 MiB the client advertises via
// MultiFragmentUpdate when the server has not already negotiated a smaller
// value (spec.md 4.2 point 8).
const defaultMaxRequestSize = 8 * 1024 * 1024

// Fragmenter splits one logical update's serialized body into fast-path
// Update fragments no larger than the peer's negotiated max_request_size,
// each carrying the correct FIRST/MIDDLE/LAST flag.
type Fragmenter struct {
	maxRequestSize int
}

// NewFragmenter builds a Fragmenter bounding fragments to maxRequestSize
// bytes; a non-positive value falls back to the 8 MiB client default.
func NewFragmenter(maxRequestSize int) *Fragmenter {
	if maxRequestSize <= 0 {
		maxRequestSize = defaultMaxRequestSize
	}
	return &Fragmenter{maxRequestSize: maxRequestSize}
}

// Fragment splits code/body into one or more *fastpath.Update instances. A
// body fitting in a single fragment is marked FragmentSingle; otherwise the
// first fragment is FragmentFirst, the last is FragmentLast, and any
// in-between fragments are FragmentNext (middle).
func (f *Fragmenter) Fragment(code fastpath.UpdateCode, body []byte) []*fastpath.Update {
	if len(body) <= f.maxRequestSize {
		return []*fastpath.Update{fastpath.NewUpdate(code, fastpath.FragmentSingle, body)}
	}

	var out []*fastpath.Update
	for offset := 0; offset < len(body); offset += f.maxRequestSize {
		end := offset + f.maxRequestSize
		if end > len(body) {
			end = len(body)
		}

		fragmentation := fastpath.FragmentNext
		switch {
		case offset == 0:
			fragmentation = fastpath.FragmentFirst
		case end == len(body):
			fragmentation = fastpath.FragmentLast
		}

		out = append(out, fastpath.NewUpdate(code, fragmentation, body[offset:end]))
	}

	return out
}

// Send fragments code/body and writes each fragment to the transport as its
// own Fast-Path Update PDU.
func (f *Fragmenter) Send(p *fastpath.Protocol, code fastpath.UpdateCode, body []byte) error {
	for _, frag := range f.Fragment(code, body) {
		if err := p.SendUpdate(fastpath.NewUpdatePDU(frag.Serialize())); err != nil {
			return err
		}
	}
	return nil
}
