package rdp

import (
	"fmt"

	"github.com/rcarmo/go-rdp/internal/protocol/pdu"
)

// connectionFinalization runs the four-PDU handshake that ends the RDP
// connection sequence (MS-RDPBCGR 1.3.1.1, Connection Finalization):
// Synchronize, Control-Cooperate and Control-RequestControl, then
// FontList, each echoed back by the server before the session is ready
// for input and graphics updates.
func (c *Client) connectionFinalization() error {
	channelID := c.channelIDMap["global"]

	if err := c.mcsLayer.Send(c.userID, channelID, pdu.NewSynchronize(c.shareID, c.userID).Serialize()); err != nil {
		return fmt.Errorf("client synchronize: %w", err)
	}

	if err := c.receiveFinalizationPDU(func(data *pdu.Data) error {
		if data.SynchronizePDUData == nil {
			return fmt.Errorf("expected synchronize pdu, got pdu type2 %d", data.ShareDataHeader.PDUType2)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("server synchronize: %w", err)
	}

	if err := c.mcsLayer.Send(c.userID, channelID, pdu.NewControl(c.shareID, c.userID, pdu.ControlActionCooperate).Serialize()); err != nil {
		return fmt.Errorf("client control cooperate: %w", err)
	}

	if err := c.receiveFinalizationPDU(func(data *pdu.Data) error {
		if data.ControlPDUData == nil || data.ControlPDUData.Action != pdu.ControlActionCooperate {
			return fmt.Errorf("expected control cooperate pdu, got pdu type2 %d", data.ShareDataHeader.PDUType2)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("server control cooperate: %w", err)
	}

	if err := c.mcsLayer.Send(c.userID, channelID, pdu.NewControl(c.shareID, c.userID, pdu.ControlActionRequestControl).Serialize()); err != nil {
		return fmt.Errorf("client control request: %w", err)
	}

	if err := c.receiveFinalizationPDU(func(data *pdu.Data) error {
		if data.ControlPDUData == nil || data.ControlPDUData.Action != pdu.ControlActionGrantedControl {
			return fmt.Errorf("expected control granted pdu, got pdu type2 %d", data.ShareDataHeader.PDUType2)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("server control granted: %w", err)
	}

	if err := c.mcsLayer.Send(c.userID, channelID, pdu.NewFontList(c.shareID, c.userID).Serialize()); err != nil {
		return fmt.Errorf("client font list: %w", err)
	}

	if err := c.receiveFinalizationPDU(func(data *pdu.Data) error {
		if data.FontMapPDUData == nil {
			return fmt.Errorf("expected font map pdu, got pdu type2 %d", data.ShareDataHeader.PDUType2)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("server font map: %w", err)
	}

	return nil
}

// receiveFinalizationPDU receives one share data PDU and hands it to check
// once deserialized, so each finalization step can assert its own shape.
func (c *Client) receiveFinalizationPDU(check func(*pdu.Data) error) error {
	_, wire, err := c.mcsLayer.Receive()
	if err != nil {
		return err
	}

	var data pdu.Data
	if err := data.Deserialize(wire); err != nil {
		return err
	}

	return check(&data)
}
