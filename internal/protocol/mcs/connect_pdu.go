package mcs

import (
	"bytes"
	"io"

	"github.com/rcarmo/go-rdp/internal/protocol/encoding"
)

// ConnectPDUApplication is the BER application tag of a T.125 Connect-*
// PDU (MCS basic settings exchange, carrying the GCC conference blob).
type ConnectPDUApplication uint8

const (
	connectInitial    ConnectPDUApplication = 101
	connectResponse   ConnectPDUApplication = 102
	connectAdditional ConnectPDUApplication = 103
	connectResult     ConnectPDUApplication = 104
)

// ConnectPDU wraps the client- or server-originated half of the MCS basic
// settings exchange. Only one of ClientConnectInitial/ServerConnectResponse
// is ever populated, matching which side produced it.
type ConnectPDU struct {
	Application ConnectPDUApplication

	ClientConnectInitial  *ClientMCSConnectInitial
	ServerConnectResponse *ServerConnectResponse
}

func (pdu *ConnectPDU) Serialize() []byte {
	var body []byte
	if pdu.ClientConnectInitial != nil {
		body = pdu.ClientConnectInitial.Serialize()
	}

	buf := new(bytes.Buffer)
	encoding.BerWriteApplicationTag(uint8(pdu.Application), len(body), buf)
	buf.Write(body)

	return buf.Bytes()
}

func (pdu *ConnectPDU) Deserialize(wire io.Reader) error {
	tag, err := encoding.BerReadApplicationTag(wire)
	if err != nil {
		return err
	}
	pdu.Application = ConnectPDUApplication(tag)

	if _, err := encoding.BerReadLength(wire); err != nil {
		return err
	}

	switch pdu.Application {
	case connectResponse:
		pdu.ServerConnectResponse = &ServerConnectResponse{}
		return pdu.ServerConnectResponse.Deserialize(wire)
	default:
		return ErrUnknownConnectApplication
	}
}

// ClientMCSConnectInitial is the Connect-Initial PDU body (T.125 8.2): the
// calling/called domain selectors, the three DomainParameters alternatives
// the server may pick from, and the opaque GCC Conference Create Request
// as userData.
type ClientMCSConnectInitial struct {
	callingDomainSelector []byte
	calledDomainSelector  []byte
	upwardFlag            bool

	targetParameters  domainParameters
	minimumParameters domainParameters
	maximumParameters domainParameters

	userData []byte
}

// NewClientMCSConnectInitial builds the standard RDP client parameter triple
// (target/minimum/maximum DomainParameters), wrapping the GCC conference
// create request userData.
func NewClientMCSConnectInitial(userData []byte) *ClientMCSConnectInitial {
	return &ClientMCSConnectInitial{
		callingDomainSelector: []byte{0x01},
		calledDomainSelector:  []byte{0x01},
		upwardFlag:            true,

		targetParameters: domainParameters{
			maxChannelIds:   34,
			maxUserIds:      2,
			maxTokenIds:     0,
			numPriorities:   1,
			minThroughput:   0,
			maxHeight:       1,
			maxMCSPDUsize:   65535,
			protocolVersion: 2,
		},
		minimumParameters: domainParameters{
			maxChannelIds:   1,
			maxUserIds:      1,
			maxTokenIds:     1,
			numPriorities:   1,
			minThroughput:   0,
			maxHeight:       1,
			maxMCSPDUsize:   1056,
			protocolVersion: 2,
		},
		maximumParameters: domainParameters{
			maxChannelIds:   65535,
			maxUserIds:      65535,
			maxTokenIds:     65535,
			numPriorities:   1,
			minThroughput:   0,
			maxHeight:       1,
			maxMCSPDUsize:   65535,
			protocolVersion: 2,
		},

		userData: userData,
	}
}

func (pdu *ClientMCSConnectInitial) Serialize() []byte {
	buf := new(bytes.Buffer)

	encoding.BerWriteOctetString(pdu.callingDomainSelector, buf)
	encoding.BerWriteOctetString(pdu.calledDomainSelector, buf)
	encoding.BerWriteBoolean(pdu.upwardFlag, buf)
	encoding.BerWriteSequence(pdu.targetParameters.Serialize(), buf)
	encoding.BerWriteSequence(pdu.minimumParameters.Serialize(), buf)
	encoding.BerWriteSequence(pdu.maximumParameters.Serialize(), buf)
	encoding.BerWriteOctetString(pdu.userData, buf)

	return buf.Bytes()
}

// ServerConnectResponse is the Connect-Response PDU body (T.125 8.3): the
// negotiated result, the connect id the server assigned, the domain
// parameters it settled on, and the opaque GCC Conference Create Response.
type ServerConnectResponse struct {
	Result          uint8
	CalledConnectId int
	DomainParams    domainParameters
	UserData        []byte
}

func (pdu *ServerConnectResponse) Deserialize(wire io.Reader) error {
	result, err := encoding.BerReadEnumerated(wire)
	if err != nil {
		return err
	}
	pdu.Result = result

	calledConnectId, err := encoding.BerReadInteger(wire)
	if err != nil {
		return err
	}
	pdu.CalledConnectId = calledConnectId

	const tagSequence = 0x10
	isSequence, err := encoding.BerReadUniversalTag(tagSequence, true, wire)
	if err != nil {
		return err
	}
	if !isSequence {
		return ErrUnknownConnectApplication
	}

	if _, err := encoding.BerReadLength(wire); err != nil {
		return err
	}

	if err := pdu.DomainParams.Deserialize(wire); err != nil {
		return err
	}

	userData, err := io.ReadAll(wire)
	if err != nil {
		return err
	}
	pdu.UserData = userData

	return nil
}
