package pdu

import (
	"bytes"
	"encoding/binary"

	"github.com/rcarmo/go-rdp/internal/codec"
)

// Client Info flags (MS-RDPBCGR 2.2.1.11.1.1 TS_INFO_PACKET.flags).
const (
	InfoMouse             uint32 = 0x00000001
	InfoDisableCtrlAltDel uint32 = 0x00000002
	InfoAutologon         uint32 = 0x00000008
	InfoUnicode           uint32 = 0x00000010
	InfoMaximizeShell     uint32 = 0x00000020
	InfoLogonNotify       uint32 = 0x00000040
	InfoCompression       uint32 = 0x00000080
	InfoEnableWindowsKey  uint32 = 0x00000100
	InfoLogonErrors       uint32 = 0x00000400
	InfoMouseHasWheel     uint32 = 0x00020000
	InfoPasswordIsScPin   uint32 = 0x00040000
	InfoNoAudioPlayback   uint32 = 0x00080000
	InfoUsingSavedCreds   uint32 = 0x00100000
	// InfoFlagRail marks the session as a RemoteApp (RAIL) session.
	InfoFlagRail uint32 = 0x00008000
)

// secInfoPkt is the SEC_INFO_PKT security header flag (MS-RDPBCGR 2.2.8.1.1.2.1).
const secInfoPkt uint16 = 0x0040

// InfoPacket represents the TS_INFO_PACKET structure (MS-RDPBCGR 2.2.1.11.1.1)
// carrying the logon credentials and client behavior flags.
type InfoPacket struct {
	CodePage       uint32
	Flags          uint32
	Domain         string
	UserName       string
	Password       string
	AlternateShell string
	WorkingDir     string
}

// ExtendedInfoPacket represents the TS_EXTENDED_INFO_PACKET structure
// (MS-RDPBCGR 2.2.1.11.1.1.1) appended after TS_INFO_PACKET.
type ExtendedInfoPacket struct {
	ClientAddressFamily uint16
	ClientAddress       string
	ClientDir           string
	ClientSessionID     uint32
	PerformanceFlags    uint32
}

// ClientInfoPDU is the Client Info PDU (MS-RDPBCGR 2.2.1.11) sent during
// Secure Settings Exchange, carrying the logon credentials.
type ClientInfoPDU struct {
	InfoPacket   InfoPacket
	ExtendedInfo ExtendedInfoPacket
}

// clientAddressFamilyINet is AF_INET as used by TS_EXTENDED_INFO_PACKET.clientAddressFamily.
const clientAddressFamilyINet uint16 = 0x0002

// NewClientInfo builds a Client Info PDU for the given credentials with the
// default flag set clients use for a Unicode, non-RemoteApp session.
func NewClientInfo(domain, username, password string) *ClientInfoPDU {
	return &ClientInfoPDU{
		InfoPacket: InfoPacket{
			CodePage: 0,
			Flags:    InfoMouse | InfoUnicode | InfoDisableCtrlAltDel | InfoEnableWindowsKey | InfoLogonNotify | InfoMaximizeShell,
			Domain:   domain,
			UserName: username,
			Password: password,
		},
		ExtendedInfo: ExtendedInfoPacket{
			ClientAddressFamily: clientAddressFamilyINet,
		},
	}
}

// writeUnicodeString writes a UTF-16LE string followed by its null
// terminator and returns the byte length of the string without it, the
// value TS_INFO_PACKET's cbXxx fields expect.
func writeUnicodeString(buf *bytes.Buffer, s string) uint16 {
	encoded := codec.Encode(s)
	buf.Write(encoded)
	buf.Write([]byte{0x00, 0x00})
	return uint16(len(encoded)) // #nosec G115
}

// Serialize encodes the Client Info PDU to wire format. When
// useEnhancedSecurity is true (Enhanced RDP Security / TLS is in effect),
// the MS-RDPBCGR 2.2.8.1.1.2.1 security header is omitted, since the TLS
// record already protects the channel.
func (pdu *ClientInfoPDU) Serialize(useEnhancedSecurity bool) []byte {
	buf := new(bytes.Buffer)

	if !useEnhancedSecurity {
		_ = binary.Write(buf, binary.LittleEndian, secInfoPkt) // flags
		_ = binary.Write(buf, binary.LittleEndian, uint16(0))  // flagsHi
	}

	info := pdu.InfoPacket

	domainBytes := codec.Encode(info.Domain)
	userNameBytes := codec.Encode(info.UserName)
	passwordBytes := codec.Encode(info.Password)
	shellBytes := codec.Encode(info.AlternateShell)
	workingDirBytes := codec.Encode(info.WorkingDir)

	_ = binary.Write(buf, binary.LittleEndian, info.CodePage)
	_ = binary.Write(buf, binary.LittleEndian, info.Flags)
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(domainBytes)))     // #nosec G115
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(userNameBytes)))   // #nosec G115
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(passwordBytes)))   // #nosec G115
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(shellBytes)))      // #nosec G115
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(workingDirBytes))) // #nosec G115

	writeUnicodeString(buf, info.Domain)
	writeUnicodeString(buf, info.UserName)
	writeUnicodeString(buf, info.Password)
	writeUnicodeString(buf, info.AlternateShell)
	writeUnicodeString(buf, info.WorkingDir)

	pdu.serializeExtendedInfo(buf)

	return buf.Bytes()
}

// serializeExtendedInfo writes the TS_EXTENDED_INFO_PACKET tail. A zeroed
// TS_TIME_ZONE_INFORMATION (172 bytes) and no auto-reconnect cookie are
// sent, which real clients also do when no prior session exists to resume.
func (pdu *ClientInfoPDU) serializeExtendedInfo(buf *bytes.Buffer) {
	ext := pdu.ExtendedInfo

	clientAddressBytes := codec.Encode(ext.ClientAddress)
	clientDirBytes := codec.Encode(ext.ClientDir)

	_ = binary.Write(buf, binary.LittleEndian, ext.ClientAddressFamily)
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(clientAddressBytes)+2)) // #nosec G115
	writeUnicodeString(buf, ext.ClientAddress)

	_ = binary.Write(buf, binary.LittleEndian, uint16(len(clientDirBytes)+2)) // #nosec G115
	writeUnicodeString(buf, ext.ClientDir)

	// TS_TIME_ZONE_INFORMATION (MS-RDPBCGR 2.2.1.11.1.1.1), zeroed: UTC with
	// no daylight-saving adjustment.
	buf.Write(make([]byte, 172))

	_ = binary.Write(buf, binary.LittleEndian, ext.ClientSessionID)
	_ = binary.Write(buf, binary.LittleEndian, ext.PerformanceFlags)

	// cbAutoReconnectLen: no auto-reconnect cookie offered.
	_ = binary.Write(buf, binary.LittleEndian, uint16(0))
}
