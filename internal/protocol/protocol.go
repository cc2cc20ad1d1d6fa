// Package protocol defines the JSON messages exchanged with remote
// visualization clients. Scene mutations stream as the same three calls the
// engine contract uses: add, update, remove.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Version is the protocol version string validated during the subscribe
// handshake.
const Version = "0.1"

// Message type tags.
const (
	TypeSubscribe = "subscribe"
	TypeWelcome   = "welcome"
	TypeAdd       = "add"
	TypeUpdate    = "update"
	TypeRemove    = "remove"
	TypeTick      = "tick"
	TypeError     = "error"
)

// BaseMessage carries the fields common to every message. Decode it first
// to dispatch on Type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

// DecodeBase extracts the message envelope without consuming the payload.
func DecodeBase(data []byte) (BaseMessage, error) {
	var m BaseMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return BaseMessage{}, fmt.Errorf("decode message: %w", err)
	}
	if m.Type == "" {
		return BaseMessage{}, fmt.Errorf("decode message: missing type")
	}
	return m, nil
}
