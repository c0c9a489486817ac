package hub

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

var errMissingValue = errors.New("missing value")

// Controller is the session and threshold surface clients may drive.
// An empty name applies a threshold registry-wide. Implementations announce
// session changes themselves.
type Controller interface {
	Start() error
	Stop() error
	Running() bool
	SetNoiseThreshold(name string, v float64) error
	SetInputDelta(name string, v float64) error
}

// Client represents a connected WebSocket client.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewClient creates a new Client attached to the hub.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
}

// WritePump sends messages from the send channel to the WebSocket connection.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}

// ReadPump reads client commands until the connection drops, answering each
// with an ack or error message.
func (c *Client) ReadPump(ctl Controller) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.hub.logger.Warn("Invalid client message", "error", err)
			c.reply(NewErrorMessage("", fmt.Errorf("invalid message: %w", err)))
			continue
		}

		c.reply(Execute(ctl, msg))
	}
}

func (c *Client) reply(msg *WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("Error marshaling reply", "error", err)
		return
	}
	c.hub.Send(c, data)
}

// Execute runs one client command against ctl and returns the reply.
func Execute(ctl Controller, msg ClientMessage) *WSMessage {
	var err error
	switch msg.Type {
	case CmdStart:
		err = ctl.Start()
	case CmdStop:
		err = ctl.Stop()
	case CmdSetNoiseThreshold:
		if msg.Value == nil {
			err = errMissingValue
		} else {
			err = ctl.SetNoiseThreshold(msg.Name, *msg.Value)
		}
	case CmdSetInputDelta:
		if msg.Value == nil {
			err = errMissingValue
		} else {
			err = ctl.SetInputDelta(msg.Name, *msg.Value)
		}
	default:
		err = fmt.Errorf("unknown command %q", msg.Type)
	}

	if err != nil {
		return NewErrorMessage(msg.Type, err)
	}
	return NewAckMessage(msg.Type)
}
