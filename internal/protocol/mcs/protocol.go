// Package mcs implements the Multipoint Communication Service (T.125) protocol
// layer for RDP connections as specified in MS-RDPBCGR.
package mcs

import (
	"bytes"
	"fmt"
	"io"

	"github.com/rcarmo/go-rdp/internal/protocol/x224"
)

type Protocol struct {
	x224Conn x224Conn
}

func New(x224Conn *x224.Protocol) *Protocol {
	return &Protocol{
		x224Conn: x224Conn,
	}
}

// newWithConn creates a Protocol with a custom x224Conn (for testing)
func newWithConn(conn x224Conn) *Protocol {
	return &Protocol{
		x224Conn: conn,
	}
}

// Connect performs the MCS basic settings exchange: it sends a
// Connect-Initial PDU wrapping the GCC Conference Create Request in
// userData, and returns the server's GCC Conference Create Response
// (the Connect-Response PDU's own userData) for the caller to parse.
func (p *Protocol) Connect(userData []byte) (io.Reader, error) {
	req := ConnectPDU{
		Application:           connectInitial,
		ClientConnectInitial: NewClientMCSConnectInitial(userData),
	}

	if err := p.x224Conn.Send(req.Serialize()); err != nil {
		return nil, fmt.Errorf("client MCS connect initial: %w", err)
	}

	wire, err := p.x224Conn.Receive()
	if err != nil {
		return nil, fmt.Errorf("client MCS connect response: %w", err)
	}

	var resp ConnectPDU
	if err := resp.Deserialize(wire); err != nil {
		return nil, fmt.Errorf("client MCS connect response: %w", err)
	}

	if resp.ServerConnectResponse.Result != RTSuccessful {
		return nil, fmt.Errorf("client MCS connect response: result %d", resp.ServerConnectResponse.Result)
	}

	return bytes.NewReader(resp.ServerConnectResponse.UserData), nil
}

// AttachUser requests a user id from the domain, returning the initiator
// id the server assigns for subsequent channel joins and send/receive.
func (p *Protocol) AttachUser() (uint16, error) {
	req := DomainPDU{
		Application:             attachUserRequest,
		ClientAttachUserRequest: &ClientAttachUserRequest{},
	}

	if err := p.x224Conn.Send(req.Serialize()); err != nil {
		return 0, fmt.Errorf("client MCS attach user request: %w", err)
	}

	wire, err := p.x224Conn.Receive()
	if err != nil {
		return 0, fmt.Errorf("client MCS attach user confirm: %w", err)
	}

	var resp DomainPDU
	if err := resp.Deserialize(wire); err != nil {
		return 0, fmt.Errorf("client MCS attach user confirm: %w", err)
	}

	if resp.Application != attachUserConfirm || resp.ServerAttachUserConfirm == nil {
		return 0, ErrUnknownDomainApplication
	}

	if resp.ServerAttachUserConfirm.Result != RTSuccessful {
		return 0, fmt.Errorf("client MCS attach user confirm: result %d", resp.ServerAttachUserConfirm.Result)
	}

	return resp.ServerAttachUserConfirm.Initiator, nil
}

// JoinChannels joins userID to every channel id in channelIDMap, one
// Channel-Join-Request/Confirm round trip per channel.
func (p *Protocol) JoinChannels(userID uint16, channelIDMap map[string]uint16) error {
	for _, channelID := range channelIDMap {
		req := DomainPDU{
			Application: channelJoinRequest,
			ClientChannelJoinRequest: &ClientChannelJoinRequest{
				Initiator: userID,
				ChannelId: channelID,
			},
		}

		if err := p.x224Conn.Send(req.Serialize()); err != nil {
			return fmt.Errorf("client MCS channel join request: %w", err)
		}

		wire, err := p.x224Conn.Receive()
		if err != nil {
			return fmt.Errorf("client MCS channel join confirm: %w", err)
		}

		var resp DomainPDU
		if err := resp.Deserialize(wire); err != nil {
			return fmt.Errorf("client MCS channel join confirm: %w", err)
		}

		if resp.Application != channelJoinConfirm || resp.ServerChannelJoinConfirm == nil {
			return ErrUnknownDomainApplication
		}

		if resp.ServerChannelJoinConfirm.Result != RTSuccessful {
			return fmt.Errorf("client MCS channel join confirm: result %d", resp.ServerChannelJoinConfirm.Result)
		}
	}

	return nil
}

// Disconnect sends a Disconnect-Provider-Ultimatum with reason
// provider-initiated, the client-side teardown signal for the domain.
func (p *Protocol) Disconnect() error {
	if err := p.x224Conn.Send([]byte{0x21, 0x80}); err != nil {
		return fmt.Errorf("client MCS disconnect provider ultimatum: %w", err)
	}

	return nil
}
