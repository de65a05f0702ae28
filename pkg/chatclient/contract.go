package chatclient

import (
	"encoding/json"
	"time"
)

// Wire event types. These mirror the server's websocket contract.
const (
	eventConnect      = "connect"
	eventConnected    = "connected"
	eventConnectError = "connect_error"
	eventJoinRoom     = "join_room"
	eventChatMessage  = "chat_message"

	eventNewMessage          = "new_message"
	eventMessageConfirmation = "message_confirmation"
	eventMessageError        = "message_error"
)

type envelope struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type inboundFrame struct {
	Type   string          `json:"type"`
	RoomID string          `json:"roomId,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type connectPayload struct {
	Auth struct {
		Token string `json:"token"`
	} `json:"auth"`
}

type chatMessagePayload struct {
	Content string `json:"content"`
	UserID  string `json:"user_id"`
	EventID int64  `json:"event_id"`
}

// Message is a chat message as delivered by the server.
type Message struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"event_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Confirmation acknowledges a successfully delivered message back to its sender.
type Confirmation struct {
	Status string `json:"status"`
	ID     int64  `json:"id"`
}

// SendError reports a rejected message back to its sender.
type SendError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type connectErrorPayload struct {
	Message string `json:"message"`
}
