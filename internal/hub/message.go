package hub

import (
	"time"

	"github.com/soar/padcontrol/internal/input"
)

// Server → client message types.
const (
	TypeFull    = "full"
	TypeDelta   = "delta"
	TypeSession = "session"
	TypeAck     = "ack"
	TypeError   = "error"
)

// Client → server commands.
const (
	CmdStart             = "start"
	CmdStop              = "stop"
	CmdSetNoiseThreshold = "set_noise_threshold"
	CmdSetInputDelta     = "set_input_delta"
)

// WSMessage represents a WebSocket message sent from server to client.
type WSMessage struct {
	Type      string       `json:"type"`
	Seq       int64        `json:"seq"`
	Timestamp int64        `json:"timestamp"`         // Unix milliseconds
	Data      input.Status `json:"data,omitempty"`    // "full"
	Changes   input.Status `json:"changes,omitempty"` // "delta"
	Running   *bool        `json:"running,omitempty"` // "session"
	Command   string       `json:"command,omitempty"` // "ack", "error"
	Error     string       `json:"error,omitempty"`
}

func NewFullMessage(seq int64, status input.Status) *WSMessage {
	return &WSMessage{
		Type:      TypeFull,
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Data:      status,
	}
}

func NewDeltaMessage(seq int64, changes input.Status) *WSMessage {
	return &WSMessage{
		Type:      TypeDelta,
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Changes:   changes,
	}
}

// NewSessionMessage announces that polling started or stopped.
func NewSessionMessage(seq int64, running bool) *WSMessage {
	return &WSMessage{
		Type:      TypeSession,
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Running:   &running,
	}
}

func NewAckMessage(command string) *WSMessage {
	return &WSMessage{
		Type:      TypeAck,
		Timestamp: time.Now().UnixMilli(),
		Command:   command,
	}
}

func NewErrorMessage(command string, err error) *WSMessage {
	return &WSMessage{
		Type:      TypeError,
		Timestamp: time.Now().UnixMilli(),
		Command:   command,
		Error:     err.Error(),
	}
}

// ClientMessage represents a command sent from the client to the server.
// An empty Name targets the registry-wide default.
type ClientMessage struct {
	Type  string   `json:"type"`
	Name  string   `json:"name,omitempty"`
	Value *float64 `json:"value,omitempty"`
}
