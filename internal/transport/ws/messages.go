package ws

import "encoding/json"

// Message is the wire frame for both directions. Server-to-client types
// are the event names defined in the service package.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Client-to-server message types.
const (
	TypeSubscribe      = "subscribe"
	TypeUnsubscribe    = "unsubscribe"
	TypeGetOnlineUsers = "get-online-users"
	TypeNotify         = "notify"
)

// inbound is a client frame before its payload is decoded.
type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type subscribePayload struct {
	RoomID string `json:"roomId"`
}

type notifyPayload struct {
	TargetUserID string `json:"targetUserId"`
	Notification any    `json:"notification"`
}
