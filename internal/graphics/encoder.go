package graphics

import "github.com/rcarmo/go-rdp/internal/protocol/fastpath"

// BitmapUpdate is one incoming screen-contents change: a w*h region of
// tightly-packed BGRA pixels at (x, y). FullScreen skips damage diffing and
// always emits a single rectangle covering the whole bitmap, matching the
// initial-update case spec.md 4.4 point 1 carves out.
type BitmapUpdate struct {
	X, Y, W, H int
	Data       []byte
	FullScreen bool
}

// PointerKind selects which pointer PDU a PointerUpdate encodes to.
type PointerKind int

const (
	PointerColor PointerKind = iota
	PointerPosition
	PointerDefault
	PointerHidden
)

// PointerUpdate is one cursor change. Pointer updates bypass the
// framebuffer entirely.
type PointerUpdate struct {
	Kind                     PointerKind
	CacheIndex               uint16
	X, Y                     uint16
	Width, Height            uint16
	XorMaskData, AndMaskData []byte
}

// UpdateEncoder drives the damage-diff -> codec -> fragment pipeline for one
// connection's graphics pipeline (spec.md 3.5/4.4).
type UpdateEncoder struct {
	fb         *Framebuffer
	codecs     []Codec
	fragmenter *Fragmenter
}

// NewUpdateEncoder builds an encoder for a desktop of the given size. Every
// damage rectangle is encoded with codecs[0]; later entries are kept but not
// consulted. A nil or empty list is replaced by UncompressedSurfaceBits.
func NewUpdateEncoder(width, height int, codecs []Codec, maxRequestSize int) *UpdateEncoder {
	if len(codecs) == 0 {
		codecs = []Codec{UncompressedSurfaceBits{}}
	}

	return &UpdateEncoder{
		fb:         NewFramebuffer(width, height),
		codecs:     codecs,
		fragmenter: NewFragmenter(maxRequestSize),
	}
}

// SetMaxRequestSize reconfigures the fragmenter once capability exchange
// resolves the peer's MultiFragmentUpdate max_request_size.
func (e *UpdateEncoder) SetMaxRequestSize(maxRequestSize int) {
	e.fragmenter = NewFragmenter(maxRequestSize)
}

// Resize discards the framebuffer for a new desktop size; the next bitmap
// update must be full-screen to repopulate it.
func (e *UpdateEncoder) Resize(width, height int) {
	e.fb.Resize(width, height)
}

// EncodeBitmap runs the damage-diff -> codec -> framebuffer-integration
// pipeline for one incoming bitmap update and returns the fast-path Update
// fragments ready to send.
func (e *UpdateEncoder) EncodeBitmap(update BitmapUpdate) []*fastpath.Update {
	var rects []DamageRect

	if update.FullScreen {
		rects = []DamageRect{{X: update.X, Y: update.Y, W: update.W, H: update.H}}
	} else {
		old := e.fb.Rect(update.X, update.Y, update.W, update.H)
		rects = FindDifferentRects(old, update.Data, update.X, update.Y, update.W, update.H)
	}

	e.fb.Blit(update.X, update.Y, update.W, update.H, update.Data)

	var fragments []*fastpath.Update
	for _, rect := range rects {
		code, body := e.encodeRect(rect)
		fragments = append(fragments, e.fragmenter.Fragment(code, body)...)
	}

	return fragments
}

// encodeRect encodes rect with the first configured codec, codecs[0]. The
// Codec interface has no way to decline a rectangle, so there is no
// fall-through to later codecs in the list.
func (e *UpdateEncoder) encodeRect(rect DamageRect) (fastpath.UpdateCode, []byte) {
	return e.codecs[0].EncodeRect(e.fb, rect)
}

// EncodePointer builds the fast-path Update fragments for one pointer
// change.
func (e *UpdateEncoder) EncodePointer(update PointerUpdate) []*fastpath.Update {
	var code fastpath.UpdateCode
	var body []byte

	switch update.Kind {
	case PointerColor:
		code, body = colorPointerBody(update.CacheIndex, update.X, update.Y, update.Width, update.Height, update.XorMaskData, update.AndMaskData)
	case PointerPosition:
		code, body = pointerPositionBody(update.X, update.Y)
	case PointerDefault:
		code, body = fastpath.UpdateCodePTRDefault, nil
	case PointerHidden:
		code, body = fastpath.UpdateCodePTRNull, nil
	}

	return e.fragmenter.Fragment(code, body)
}

// Send writes the already-encoded fragments to the transport as consecutive
// Fast-Path Update PDUs.
func Send(p *fastpath.Protocol, fragments []*fastpath.Update) error {
	for _, frag := range fragments {
		if err := p.SendUpdate(fastpath.NewUpdatePDU(frag.Serialize())); err != nil {
			return err
		}
	}
	return nil
}
