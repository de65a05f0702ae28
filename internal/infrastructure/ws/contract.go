package ws

import (
	"encoding/json"

	"github.com/gatherly/gatherly/internal/domain"
)

// Envelope is the wire frame in both directions: a type tag, an
// optional room, and a type-specific payload.
type Envelope struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// inboundFrame defers payload decoding until the type is known.
type inboundFrame struct {
	Type   string          `json:"type"`
	RoomID string          `json:"roomId,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Payload structs
type ConnectPayload struct {
	Auth struct {
		Token string `json:"token"`
	} `json:"auth"`
}

type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
}

type ChatMessagePayload struct {
	Content string `json:"content" validate:"required"`
	UserID  string `json:"user_id" validate:"required,uuid"`
	EventID int64  `json:"event_id" validate:"required,gt=0"`
}

type ConnectedPayload struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
}

type ConfirmationPayload struct {
	Status string `json:"status"`
	ID     int64  `json:"id"`
}

type ErrorPayload struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func NewConnected(identity domain.Identity) *Envelope {
	return &Envelope{
		Type: EventConnected,
		Data: ConnectedPayload{
			UserID: identity.ID,
			Email:  identity.Email,
		},
	}
}

func NewConnectError(reason string) *Envelope {
	return &Envelope{
		Type: EventConnectError,
		Data: ErrorPayload{
			Status:  "error",
			Message: reason,
		},
	}
}

func NewNewMessage(msg *domain.ChatMessage, roomID string) *Envelope {
	return &Envelope{
		Type:   EventNewMessage,
		RoomID: roomID,
		Data:   *msg,
	}
}

func NewMessageConfirmation(id int64) *Envelope {
	return &Envelope{
		Type: EventMessageConfirmation,
		Data: ConfirmationPayload{
			Status: "ok",
			ID:     id,
		},
	}
}

func NewMessageError(message, details string) *Envelope {
	return &Envelope{
		Type: EventMessageError,
		Data: ErrorPayload{
			Status:  "error",
			Message: message,
			Details: details,
		},
	}
}
