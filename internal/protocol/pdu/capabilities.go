package pdu

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// CapabilitySetType identifies which capability set a CapabilitySet wraps
// (MS-RDPBCGR 2.2.1.13.1.1.1).
type CapabilitySetType uint16

const (
	CapabilitySetTypeGeneral                CapabilitySetType = 0x0001
	CapabilitySetTypeBitmap                 CapabilitySetType = 0x0002
	CapabilitySetTypeOrder                  CapabilitySetType = 0x0003
	CapabilitySetTypeBitmapCache            CapabilitySetType = 0x0004
	CapabilitySetTypeControl                CapabilitySetType = 0x0005
	CapabilitySetTypeActivation              CapabilitySetType = 0x0007
	CapabilitySetTypePointer                CapabilitySetType = 0x0008
	CapabilitySetTypeShare                  CapabilitySetType = 0x0009
	CapabilitySetTypeColorCache             CapabilitySetType = 0x000a
	CapabilitySetTypeSound                  CapabilitySetType = 0x000c
	CapabilitySetTypeInput                  CapabilitySetType = 0x000d
	CapabilitySetTypeFont                   CapabilitySetType = 0x000e
	CapabilitySetTypeBrush                  CapabilitySetType = 0x000f
	CapabilitySetTypeGlyphCache             CapabilitySetType = 0x0010
	CapabilitySetTypeOffscreenBitmapCache    CapabilitySetType = 0x0011
	CapabilitySetTypeBitmapCacheHostSupport  CapabilitySetType = 0x0012
	CapabilitySetTypeBitmapCacheRev2         CapabilitySetType = 0x0013
	CapabilitySetTypeVirtualChannel          CapabilitySetType = 0x0014
	CapabilitySetTypeDrawNineGridCache       CapabilitySetType = 0x0015
	CapabilitySetTypeDrawGDIPlus             CapabilitySetType = 0x0016
	CapabilitySetTypeRail                    CapabilitySetType = 0x0017
	CapabilitySetTypeWindow                  CapabilitySetType = 0x0018
	CapabilitySetTypeCompDesk                CapabilitySetType = 0x0019
	CapabilitySetTypeMultifragmentUpdate     CapabilitySetType = 0x001a
	CapabilitySetTypeLargePointer            CapabilitySetType = 0x001b
	CapabilitySetTypeSurfaceCommands         CapabilitySetType = 0x001c
	CapabilitySetTypeBitmapCodecs            CapabilitySetType = 0x001d
	CapabilitySetTypeFrameAcknowledge        CapabilitySetType = 0x001e
)

// FrameAcknowledgeCapabilitySet represents the Frame Acknowledge Capability
// Set (MS-RDPBCGR 2.2.7.2.7), used to negotiate the client's frame
// acknowledgement window for the fast-path graphics pipeline.
type FrameAcknowledgeCapabilitySet struct {
	MaxUnacknowledgedFrames uint32
}

// NewFrameAcknowledgeCapabilitySet creates a Frame Acknowledge Capability
// Set advertising a 2-frame unacknowledged window.
func NewFrameAcknowledgeCapabilitySet() CapabilitySet {
	return CapabilitySet{
		CapabilitySetType: CapabilitySetTypeFrameAcknowledge,
		FrameAcknowledgeCapabilitySet: &FrameAcknowledgeCapabilitySet{
			MaxUnacknowledgedFrames: 2,
		},
	}
}

// Serialize encodes the capability set to wire format.
func (s *FrameAcknowledgeCapabilitySet) Serialize() []byte {
	buf := new(bytes.Buffer)

	_ = binary.Write(buf, binary.LittleEndian, s.MaxUnacknowledgedFrames)

	return buf.Bytes()
}

// Deserialize decodes the capability set from wire format.
func (s *FrameAcknowledgeCapabilitySet) Deserialize(wire io.Reader) error {
	return binary.Read(wire, binary.LittleEndian, &s.MaxUnacknowledgedFrames)
}

// RemoteFXCodecGUID is the GUID for the RemoteFX codec
// (76772F12-BD72-4463-AFB3-B73C9C6F7886), stored little-endian per
// MS-RDPBCGR.
var RemoteFXCodecGUID = [16]byte{
	0x12, 0x2F, 0x77, 0x76, 0x72, 0xBD, 0x63, 0x44,
	0xAF, 0xB3, 0xB7, 0x3C, 0x9C, 0x6F, 0x78, 0x86,
}

// NewBitmapCodecsWithRFXCapabilitySet creates a Bitmap Codecs Capability Set
// advertising both NSCodec and RemoteFX support.
func NewBitmapCodecsWithRFXCapabilitySet() CapabilitySet {
	set := NewBitmapCodecsCapabilitySet()

	set.BitmapCodecsCapabilitySet.BitmapCodecArray = append(
		set.BitmapCodecsCapabilitySet.BitmapCodecArray,
		BitmapCodec{
			CodecGUID:       RemoteFXCodecGUID,
			CodecID:         2,
			CodecProperties: []byte{},
		},
	)

	return set
}

// CapabilitySet is a tagged union over every MS-RDPBCGR 2.2.7 capability set
// type. Exactly one of the pointer fields matching CapabilitySetType should
// be non-nil.
type CapabilitySet struct {
	CapabilitySetType CapabilitySetType

	GeneralCapabilitySet                *GeneralCapabilitySet
	BitmapCapabilitySet                 *BitmapCapabilitySet
	OrderCapabilitySet                  *OrderCapabilitySet
	BitmapCacheCapabilitySetRev1        *BitmapCacheCapabilitySetRev1
	ControlCapabilitySet                *ControlCapabilitySet
	WindowActivationCapabilitySet       *WindowActivationCapabilitySet
	PointerCapabilitySet                *PointerCapabilitySet
	ShareCapabilitySet                  *ShareCapabilitySet
	ColorCacheCapabilitySet             *ColorCacheCapabilitySet
	SoundCapabilitySet                  *SoundCapabilitySet
	InputCapabilitySet                  *InputCapabilitySet
	FontCapabilitySet                   *FontCapabilitySet
	BrushCapabilitySet                  *BrushCapabilitySet
	GlyphCacheCapabilitySet             *GlyphCacheCapabilitySet
	OffscreenBitmapCacheCapabilitySet   *OffscreenBitmapCacheCapabilitySet
	BitmapCacheHostSupportCapabilitySet *BitmapCacheHostSupportCapabilitySet
	BitmapCacheCapabilitySetRev2        *BitmapCacheCapabilitySetRev2
	VirtualChannelCapabilitySet         *VirtualChannelCapabilitySet
	DrawNineGridCacheCapabilitySet      *DrawNineGridCacheCapabilitySet
	DrawGDIPlusCapabilitySet            *DrawGDIPlusCapabilitySet
	RailCapabilitySet                   *RailCapabilitySet
	WindowListCapabilitySet             *WindowListCapabilitySet
	DesktopCompositionCapabilitySet     *DesktopCompositionCapabilitySet
	MultifragmentUpdateCapabilitySet    *MultifragmentUpdateCapabilitySet
	LargePointerCapabilitySet           *LargePointerCapabilitySet
	SurfaceCommandsCapabilitySet        *SurfaceCommandsCapabilitySet
	BitmapCodecsCapabilitySet           *BitmapCodecsCapabilitySet
	FrameAcknowledgeCapabilitySet       *FrameAcknowledgeCapabilitySet
}

// body returns the bytes of whichever type-specific capability set is set.
func (c *CapabilitySet) body() []byte {
	switch {
	case c.GeneralCapabilitySet != nil:
		return c.GeneralCapabilitySet.Serialize()
	case c.BitmapCapabilitySet != nil:
		return c.BitmapCapabilitySet.Serialize()
	case c.OrderCapabilitySet != nil:
		return c.OrderCapabilitySet.Serialize()
	case c.BitmapCacheCapabilitySetRev1 != nil:
		return c.BitmapCacheCapabilitySetRev1.Serialize()
	case c.ControlCapabilitySet != nil:
		return c.ControlCapabilitySet.Serialize()
	case c.WindowActivationCapabilitySet != nil:
		return c.WindowActivationCapabilitySet.Serialize()
	case c.PointerCapabilitySet != nil:
		return c.PointerCapabilitySet.Serialize()
	case c.ShareCapabilitySet != nil:
		return c.ShareCapabilitySet.Serialize()
	case c.ColorCacheCapabilitySet != nil:
		return c.ColorCacheCapabilitySet.Serialize()
	case c.SoundCapabilitySet != nil:
		return c.SoundCapabilitySet.Serialize()
	case c.InputCapabilitySet != nil:
		return c.InputCapabilitySet.Serialize()
	case c.FontCapabilitySet != nil:
		return c.FontCapabilitySet.Serialize()
	case c.BrushCapabilitySet != nil:
		return c.BrushCapabilitySet.Serialize()
	case c.GlyphCacheCapabilitySet != nil:
		return c.GlyphCacheCapabilitySet.Serialize()
	case c.OffscreenBitmapCacheCapabilitySet != nil:
		return c.OffscreenBitmapCacheCapabilitySet.Serialize()
	case c.BitmapCacheHostSupportCapabilitySet != nil:
		return []byte{0, 0, 0, 0}
	case c.BitmapCacheCapabilitySetRev2 != nil:
		return c.BitmapCacheCapabilitySetRev2.Serialize()
	case c.VirtualChannelCapabilitySet != nil:
		return c.VirtualChannelCapabilitySet.Serialize()
	case c.DrawNineGridCacheCapabilitySet != nil:
		return c.DrawNineGridCacheCapabilitySet.Serialize()
	case c.DrawGDIPlusCapabilitySet != nil:
		return c.DrawGDIPlusCapabilitySet.Serialize()
	case c.RailCapabilitySet != nil:
		return c.RailCapabilitySet.Serialize()
	case c.WindowListCapabilitySet != nil:
		return c.WindowListCapabilitySet.Serialize()
	case c.DesktopCompositionCapabilitySet != nil:
		return []byte{0, 0}
	case c.MultifragmentUpdateCapabilitySet != nil:
		return c.MultifragmentUpdateCapabilitySet.Serialize()
	case c.LargePointerCapabilitySet != nil:
		return []byte{0, 0}
	case c.SurfaceCommandsCapabilitySet != nil:
		return c.SurfaceCommandsCapabilitySet.Serialize()
	case c.BitmapCodecsCapabilitySet != nil:
		return c.BitmapCodecsCapabilitySet.Serialize()
	case c.FrameAcknowledgeCapabilitySet != nil:
		return c.FrameAcknowledgeCapabilitySet.Serialize()
	}

	return nil
}

// Serialize encodes the capability set as a 2-byte type, 2-byte length
// (including the 4-byte header itself), and type-specific body
// (MS-RDPBCGR 2.2.1.13.1.1.1).
func (c *CapabilitySet) Serialize() []byte {
	body := c.body()

	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, uint16(c.CapabilitySetType))
	_ = binary.Write(buf, binary.LittleEndian, uint16(4+len(body))) // #nosec G115
	buf.Write(body)

	return buf.Bytes()
}

// Deserialize reads one capability set's type+length header and dispatches
// to the matching type-specific Deserialize. An unrecognized type is
// tolerated: its declared bytes are consumed and CapabilitySetType is set,
// but no type-specific field is populated.
func (c *CapabilitySet) Deserialize(wire io.Reader) error {
	var capType, length uint16

	if err := binary.Read(wire, binary.LittleEndian, &capType); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &length); err != nil {
		return err
	}

	if length < 4 {
		return fmt.Errorf("pdu: capability set length too small: %d", length)
	}

	c.CapabilitySetType = CapabilitySetType(capType)

	body := make([]byte, length-4)
	if _, err := io.ReadFull(wire, body); err != nil {
		return err
	}

	r := bytes.NewReader(body)

	switch c.CapabilitySetType {
	case CapabilitySetTypeGeneral:
		c.GeneralCapabilitySet = &GeneralCapabilitySet{}
		return c.GeneralCapabilitySet.Deserialize(r)
	case CapabilitySetTypeBitmap:
		c.BitmapCapabilitySet = &BitmapCapabilitySet{}
		return c.BitmapCapabilitySet.Deserialize(r)
	case CapabilitySetTypeOrder:
		c.OrderCapabilitySet = &OrderCapabilitySet{}
		return c.OrderCapabilitySet.Deserialize(r)
	case CapabilitySetTypeBitmapCache:
		c.BitmapCacheCapabilitySetRev1 = &BitmapCacheCapabilitySetRev1{}
		return c.BitmapCacheCapabilitySetRev1.Deserialize(r)
	case CapabilitySetTypeControl:
		c.ControlCapabilitySet = &ControlCapabilitySet{}
		return c.ControlCapabilitySet.Deserialize(r)
	case CapabilitySetTypeActivation:
		c.WindowActivationCapabilitySet = &WindowActivationCapabilitySet{}
		return c.WindowActivationCapabilitySet.Deserialize(r)
	case CapabilitySetTypePointer:
		pointer := &PointerCapabilitySet{lengthCapability: length - 4}
		c.PointerCapabilitySet = pointer
		return pointer.Deserialize(r)
	case CapabilitySetTypeShare:
		c.ShareCapabilitySet = &ShareCapabilitySet{}
		return c.ShareCapabilitySet.Deserialize(r)
	case CapabilitySetTypeColorCache:
		c.ColorCacheCapabilitySet = &ColorCacheCapabilitySet{}
		return c.ColorCacheCapabilitySet.Deserialize(r)
	case CapabilitySetTypeSound:
		c.SoundCapabilitySet = &SoundCapabilitySet{}
		return c.SoundCapabilitySet.Deserialize(r)
	case CapabilitySetTypeInput:
		c.InputCapabilitySet = &InputCapabilitySet{}
		return c.InputCapabilitySet.Deserialize(r)
	case CapabilitySetTypeFont:
		c.FontCapabilitySet = &FontCapabilitySet{}
		return c.FontCapabilitySet.Deserialize(r)
	case CapabilitySetTypeBrush:
		c.BrushCapabilitySet = &BrushCapabilitySet{}
		return c.BrushCapabilitySet.Deserialize(r)
	case CapabilitySetTypeGlyphCache:
		c.GlyphCacheCapabilitySet = &GlyphCacheCapabilitySet{}
		return c.GlyphCacheCapabilitySet.Deserialize(r)
	case CapabilitySetTypeOffscreenBitmapCache:
		c.OffscreenBitmapCacheCapabilitySet = &OffscreenBitmapCacheCapabilitySet{}
		return c.OffscreenBitmapCacheCapabilitySet.Deserialize(r)
	case CapabilitySetTypeBitmapCacheHostSupport:
		c.BitmapCacheHostSupportCapabilitySet = &BitmapCacheHostSupportCapabilitySet{}
		return c.BitmapCacheHostSupportCapabilitySet.Deserialize(r)
	case CapabilitySetTypeBitmapCacheRev2:
		c.BitmapCacheCapabilitySetRev2 = &BitmapCacheCapabilitySetRev2{}
		return c.BitmapCacheCapabilitySetRev2.Deserialize(r)
	case CapabilitySetTypeVirtualChannel:
		c.VirtualChannelCapabilitySet = &VirtualChannelCapabilitySet{}
		return c.VirtualChannelCapabilitySet.Deserialize(r)
	case CapabilitySetTypeDrawNineGridCache:
		c.DrawNineGridCacheCapabilitySet = &DrawNineGridCacheCapabilitySet{}
		return c.DrawNineGridCacheCapabilitySet.Deserialize(r)
	case CapabilitySetTypeDrawGDIPlus:
		c.DrawGDIPlusCapabilitySet = &DrawGDIPlusCapabilitySet{}
		return c.DrawGDIPlusCapabilitySet.Deserialize(r)
	case CapabilitySetTypeRail:
		c.RailCapabilitySet = &RailCapabilitySet{}
		return binary.Read(r, binary.LittleEndian, &c.RailCapabilitySet.RailSupportLevel)
	case CapabilitySetTypeWindow:
		c.WindowListCapabilitySet = &WindowListCapabilitySet{}
		return c.deserializeWindowList(r)
	case CapabilitySetTypeCompDesk:
		c.DesktopCompositionCapabilitySet = &DesktopCompositionCapabilitySet{}
		return c.DesktopCompositionCapabilitySet.Deserialize(r)
	case CapabilitySetTypeMultifragmentUpdate:
		c.MultifragmentUpdateCapabilitySet = &MultifragmentUpdateCapabilitySet{}
		return c.MultifragmentUpdateCapabilitySet.Deserialize(r)
	case CapabilitySetTypeLargePointer:
		c.LargePointerCapabilitySet = &LargePointerCapabilitySet{}
		return c.LargePointerCapabilitySet.Deserialize(r)
	case CapabilitySetTypeSurfaceCommands:
		c.SurfaceCommandsCapabilitySet = &SurfaceCommandsCapabilitySet{}
		return c.SurfaceCommandsCapabilitySet.Deserialize(r)
	case CapabilitySetTypeBitmapCodecs:
		c.BitmapCodecsCapabilitySet = &BitmapCodecsCapabilitySet{}
		return c.BitmapCodecsCapabilitySet.Deserialize(r)
	case CapabilitySetTypeFrameAcknowledge:
		c.FrameAcknowledgeCapabilitySet = &FrameAcknowledgeCapabilitySet{}
		return c.FrameAcknowledgeCapabilitySet.Deserialize(r)
	default:
		return nil
	}
}

func (c *CapabilitySet) deserializeWindowList(wire io.Reader) error {
	s := c.WindowListCapabilitySet

	if err := binary.Read(wire, binary.LittleEndian, &s.WndSupportLevel); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &s.NumIconCaches); err != nil {
		return err
	}

	return binary.Read(wire, binary.LittleEndian, &s.NumIconCacheEntries)
}

// DeserializeQuick reads only the type+length header and the minimum needed
// to identify the capability set, skipping the type-specific body without
// allocating or decoding it. Used when a caller only needs to enumerate the
// capability sets present in a PDU (e.g. to size a buffer) without acting
// on their contents.
func (c *CapabilitySet) DeserializeQuick(wire io.Reader) error {
	var capType, length uint16

	if err := binary.Read(wire, binary.LittleEndian, &capType); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &length); err != nil {
		return err
	}

	if length < 4 {
		return fmt.Errorf("pdu: capability set length too small: %d", length)
	}

	c.CapabilitySetType = CapabilitySetType(capType)

	if _, err := io.CopyN(io.Discard, wire, int64(length-4)); err != nil {
		return err
	}

	return nil
}

// ServerDemandActive is the Demand Active PDU sent by the server to begin
// capability negotiation (MS-RDPBCGR 2.2.1.13.1).
type ServerDemandActive struct {
	ShareControlHeader ShareControlHeader
	ShareID            uint32
	SourceDescriptor   []byte
	CapabilitySets     []CapabilitySet
	SessionID          uint32
}

// Deserialize decodes the PDU, including its leading share control header,
// from wire format.
func (pdu *ServerDemandActive) Deserialize(wire io.Reader) error {
	var (
		lengthSourceDescriptor     uint16
		lengthCombinedCapabilities uint16
		numberCapabilities         uint16
		pad2Octets                 uint16
	)

	if err := pdu.ShareControlHeader.Deserialize(wire); err != nil {
		return err
	}

	if err := binary.Read(wire, binary.LittleEndian, &pdu.ShareID); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &lengthSourceDescriptor); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &lengthCombinedCapabilities); err != nil {
		return err
	}

	pdu.SourceDescriptor = make([]byte, lengthSourceDescriptor)
	if _, err := io.ReadFull(wire, pdu.SourceDescriptor); err != nil {
		return err
	}

	if err := binary.Read(wire, binary.LittleEndian, &numberCapabilities); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &pad2Octets); err != nil {
		return err
	}

	pdu.CapabilitySets = make([]CapabilitySet, numberCapabilities)
	for i := range pdu.CapabilitySets {
		if err := pdu.CapabilitySets[i].Deserialize(wire); err != nil {
			return err
		}
	}

	return binary.Read(wire, binary.LittleEndian, &pdu.SessionID)
}

// ClientConfirmActive is the Confirm Active PDU sent by the client in
// response to a Demand Active PDU, echoing back the capability sets it
// supports (MS-RDPBCGR 2.2.1.13.2).
type ClientConfirmActive struct {
	ShareID          uint32
	OriginatorID     uint16
	SourceDescriptor []byte
	CapabilitySets   []CapabilitySet
}

// NewClientConfirmActive builds a Confirm Active PDU advertising the
// baseline capability sets a client needs for the connection sequence and
// graphics pipeline. When remoteApp is true, Rail and WindowList capability
// sets are appended to advertise RemoteApp support.
func NewClientConfirmActive(shareID uint32, userID uint16, desktopWidth, desktopHeight uint16, remoteApp bool) *ClientConfirmActive {
	capabilitySets := []CapabilitySet{
		NewGeneralCapabilitySet(),
		NewBitmapCapabilitySet(desktopWidth, desktopHeight),
		NewOrderCapabilitySet(),
		NewBitmapCacheCapabilitySetRev1(),
		NewPointerCapabilitySet(),
		NewInputCapabilitySet(),
		NewBrushCapabilitySet(),
		NewGlyphCacheCapabilitySet(),
		NewOffscreenBitmapCacheCapabilitySet(),
		NewVirtualChannelCapabilitySet(),
		NewSoundCapabilitySet(),
		NewMultifragmentUpdateCapabilitySet(),
		NewFrameAcknowledgeCapabilitySet(),
	}

	if remoteApp {
		capabilitySets = append(capabilitySets, NewRailCapabilitySet(), NewWindowListCapabilitySet())
	}

	return &ClientConfirmActive{
		ShareID:          shareID,
		OriginatorID:     userID,
		SourceDescriptor: []byte("MSTSC\x00"),
		CapabilitySets:   capabilitySets,
	}
}

// Serialize encodes the PDU, including its leading share control header, to
// wire format ready to hand to the MCS layer.
func (pdu *ClientConfirmActive) Serialize() []byte {
	var capabilities bytes.Buffer
	for i := range pdu.CapabilitySets {
		capabilities.Write(pdu.CapabilitySets[i].Serialize())
	}

	body := new(bytes.Buffer)
	_ = binary.Write(body, binary.LittleEndian, pdu.ShareID)
	_ = binary.Write(body, binary.LittleEndian, pdu.OriginatorID)
	_ = binary.Write(body, binary.LittleEndian, uint16(len(pdu.SourceDescriptor)))
	_ = binary.Write(body, binary.LittleEndian, uint16(4+capabilities.Len())) // #nosec G115
	body.Write(pdu.SourceDescriptor)
	_ = binary.Write(body, binary.LittleEndian, uint16(len(pdu.CapabilitySets))) // #nosec G115
	_ = binary.Write(body, binary.LittleEndian, uint16(0))                      // pad2Octets
	body.Write(capabilities.Bytes())

	header := newShareControlHeader(TypeConfirmActive, pdu.OriginatorID)
	header.TotalLength = uint16(6 + body.Len()) // #nosec G115

	buf := new(bytes.Buffer)
	buf.Write(header.Serialize())
	buf.Write(body.Bytes())

	return buf.Bytes()
}

// Deserialize decodes the PDU, including its leading share control header,
// from wire format.
func (pdu *ClientConfirmActive) Deserialize(wire io.Reader) error {
	var (
		header                     ShareControlHeader
		lengthSourceDescriptor     uint16
		lengthCombinedCapabilities uint16
		numberCapabilities         uint16
		pad2Octets                 uint16
	)

	if err := header.Deserialize(wire); err != nil {
		return err
	}

	if err := binary.Read(wire, binary.LittleEndian, &pdu.ShareID); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &pdu.OriginatorID); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &lengthSourceDescriptor); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &lengthCombinedCapabilities); err != nil {
		return err
	}

	pdu.SourceDescriptor = make([]byte, lengthSourceDescriptor)
	if _, err := io.ReadFull(wire, pdu.SourceDescriptor); err != nil {
		return err
	}

	if err := binary.Read(wire, binary.LittleEndian, &numberCapabilities); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &pad2Octets); err != nil {
		return err
	}

	pdu.CapabilitySets = make([]CapabilitySet, numberCapabilities)
	for i := range pdu.CapabilitySets {
		if err := pdu.CapabilitySets[i].Deserialize(wire); err != nil {
			return err
		}
	}

	return nil
}
