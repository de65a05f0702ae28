package domain

import (
	"context"
	"time"
)

// ChatMessage is a single persisted chat message. Messages are immutable
// once stored; the store assigns ID and CreatedAt at insert time.
type ChatMessage struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	EventID   int64     `json:"event_id" gorm:"column:event_id;not null;index:idx_chat_messages_event"`
	UserID    string    `json:"user_id" gorm:"column:user_id;not null"`
	Content   string    `json:"content" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;not null"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

type MessageStore interface {
	// Create inserts the message and fills in ID and CreatedAt.
	Create(ctx context.Context, message *ChatMessage) error
	// ListByEvent returns all messages for an event in ascending
	// created_at order.
	ListByEvent(ctx context.Context, eventID int64) ([]ChatMessage, error)
}
