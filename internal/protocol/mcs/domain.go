package mcs

import (
	"bytes"
	"io"

	"github.com/rcarmo/go-rdp/internal/protocol/encoding"
)

// DomainPDUApplication is the T.125 DomainMCSPDU choice tag, carried in the
// top bits of a domain PDU's leading byte (tag << 2).
type DomainPDUApplication uint8

const (
	plumbDomainIndication DomainPDUApplication = iota
	erectDomainRequest
	mergeChannelsRequest
	mergeChannelsConfirm
	purgeChannelsIndication
	mergeTokensRequest
	mergeTokensConfirm
	purgeTokensIndication
	disconnectProviderUltimatum
	rejectMCSPDUUltimatum
	attachUserRequest
	attachUserConfirm
	detachUserRequest
	detachUserIndication
	channelJoinRequest
	channelJoinConfirm
	channelLeaveRequest
	channelConveneRequest
	channelConveneConfirm
	channelDisbandRequest
	channelDisbandIndication
	channelAdmitRequest
	channelAdmitIndication
	channelExpelRequest
	channelExpelIndication
	SendDataRequest
	SendDataIndication
	uniformSendDataRequest
	uniformSendDataIndication
)

// DomainPDU wraps one of the T.125 DomainMCSPDU alternatives this client
// sends or receives. Only one of the pointer fields is ever populated.
type DomainPDU struct {
	Application DomainPDUApplication

	ClientErectDomainRequest *ClientErectDomainRequest
	ClientAttachUserRequest  *ClientAttachUserRequest
	ServerAttachUserConfirm  *ServerAttachUserConfirm
	ClientChannelJoinRequest *ClientChannelJoinRequest
	ServerChannelJoinConfirm *ServerChannelJoinConfirm
	ClientSendDataRequest    *ClientSendDataRequest
	ServerSendDataIndication *ServerSendDataIndication
}

func (pdu *DomainPDU) Serialize() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(byte(pdu.Application) << 2)

	switch {
	case pdu.ClientErectDomainRequest != nil:
		buf.Write(pdu.ClientErectDomainRequest.Serialize())
	case pdu.ClientAttachUserRequest != nil:
		buf.Write(pdu.ClientAttachUserRequest.Serialize())
	case pdu.ClientChannelJoinRequest != nil:
		buf.Write(pdu.ClientChannelJoinRequest.Serialize())
	case pdu.ClientSendDataRequest != nil:
		buf.Write(pdu.ClientSendDataRequest.Serialize())
	}

	return buf.Bytes()
}

func (pdu *DomainPDU) Deserialize(wire io.Reader) error {
	tagByte, err := encoding.PerReadChoice(wire)
	if err != nil {
		return err
	}

	pdu.Application = DomainPDUApplication(tagByte >> 2)

	switch pdu.Application {
	case disconnectProviderUltimatum:
		return ErrDisconnectUltimatum

	case attachUserConfirm:
		pdu.ServerAttachUserConfirm = &ServerAttachUserConfirm{}
		return pdu.ServerAttachUserConfirm.Deserialize(wire)

	case channelJoinConfirm:
		pdu.ServerChannelJoinConfirm = &ServerChannelJoinConfirm{}
		return pdu.ServerChannelJoinConfirm.Deserialize(wire)

	case SendDataIndication:
		pdu.ServerSendDataIndication = &ServerSendDataIndication{}
		return pdu.ServerSendDataIndication.Deserialize(wire)

	case SendDataRequest:
		pdu.ClientSendDataRequest = &ClientSendDataRequest{}
		return pdu.ClientSendDataRequest.Deserialize(wire)

	default:
		return ErrUnknownDomainApplication
	}
}

// ClientAttachUserRequest carries no body; the user is identified later by
// the initiator the server hands back in ServerAttachUserConfirm.
type ClientAttachUserRequest struct{}

func (pdu *ClientAttachUserRequest) Serialize() []byte {
	return nil
}

type ServerAttachUserConfirm struct {
	Result    uint8
	Initiator uint16
}

func (pdu *ServerAttachUserConfirm) Deserialize(wire io.Reader) error {
	result, err := encoding.PerReadEnumerates(wire)
	if err != nil {
		return err
	}
	pdu.Result = result

	initiator, err := encoding.PerReadInteger16(1001, wire)
	if err != nil {
		return err
	}
	pdu.Initiator = initiator

	return nil
}

type ClientChannelJoinRequest struct {
	Initiator uint16
	ChannelId uint16
}

func (pdu *ClientChannelJoinRequest) Serialize() []byte {
	buf := new(bytes.Buffer)

	encoding.PerWriteInteger16(pdu.Initiator, 1001, buf)
	encoding.PerWriteInteger16(pdu.ChannelId, 0, buf)

	return buf.Bytes()
}

type ServerChannelJoinConfirm struct {
	Result    uint8
	Initiator uint16
	Requested uint16
	ChannelId uint16
}

func (pdu *ServerChannelJoinConfirm) Deserialize(wire io.Reader) error {
	result, err := encoding.PerReadEnumerates(wire)
	if err != nil {
		return err
	}
	pdu.Result = result

	initiator, err := encoding.PerReadInteger16(1001, wire)
	if err != nil {
		return err
	}
	pdu.Initiator = initiator

	requested, err := encoding.PerReadInteger16(0, wire)
	if err != nil {
		return err
	}
	pdu.Requested = requested

	// channelId is only present when it differs from the requested id;
	// absence (EOF) is not an error.
	channelId, err := encoding.PerReadInteger16(0, wire)
	if err == nil {
		pdu.ChannelId = channelId
	} else if err != io.EOF {
		return err
	}

	return nil
}
