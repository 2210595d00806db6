package ws

import (
	"sburbterm/internal/game/commands"
	"sburbterm/internal/game/events"
)

// ProtocolVersion is sent in the welcome frame.
const ProtocolVersion = "1"

// Frame types.
const (
	TypeWelcome  = "welcome"
	TypeCommand  = "command"
	TypeResponse = "response"
	TypeEvent    = "event"
	TypeError    = "error"
)

// Inbound is the only frame a client sends.
type Inbound struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

// Outbound carries exactly one of Response, Event or Error.
type Outbound struct {
	Type            string             `json:"type"`
	ProtocolVersion string             `json:"protocol_version,omitempty"`
	SessionID       string             `json:"session_id,omitempty"`
	Response        *commands.Response `json:"response,omitempty"`
	Event           *events.Event      `json:"event,omitempty"`
	Error           string             `json:"error,omitempty"`
}
