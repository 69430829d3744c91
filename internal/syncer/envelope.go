// Package syncer implements the client side of the sync channel: one
// websocket connection per trip carrying document updates plus the ephemeral
// presence layer.
package syncer

import "encoding/json"

// Envelope is the wire unit exchanged over the channel.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Envelope types.
const (
	TypeSnapshot      = "snapshot"
	TypeUpdate        = "update"
	TypePresence      = "presence"
	TypePresenceLeave = "presence_leave"
)

// PresenceLeave announces that a connection's presence entry vanished.
type PresenceLeave struct {
	ID string `json:"id"`
}

// NewEnvelope marshals a payload into an envelope. Payloads are plain
// serializable structs; a marshal failure yields an empty payload.
func NewEnvelope(msgType string, payload any) Envelope {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{Type: msgType}
	}
	return Envelope{Type: msgType, Payload: raw}
}
