package repository

import (
	"context"
	"sync"
	"time"

	"github.com/gatherly/gatherly/internal/domain"
)

// Oldest messages are evicted when capacity is exceeded.
type memoryMessageStore struct {
	messages map[int64][]domain.ChatMessage // eventID -> []ChatMessage
	capacity uint
	nextID   int64
	mu       sync.RWMutex
}

// NewMemoryMessageStore is the store used when no database DSN is
// configured, and by the tests. Same contract as the Postgres store.
func NewMemoryMessageStore(capacity uint) domain.MessageStore {
	if capacity == 0 {
		capacity = 100 // sane default
	}
	return &memoryMessageStore{
		capacity: capacity,
		messages: make(map[int64][]domain.ChatMessage),
		nextID:   1,
	}
}

func (s *memoryMessageStore) Create(ctx context.Context, message *domain.ChatMessage) error {
	if message == nil || message.EventID <= 0 {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	message.ID = s.nextID
	s.nextID++
	message.CreatedAt = time.Now().UTC()

	eventMsgs, exists := s.messages[message.EventID]
	if !exists {
		eventMsgs = make([]domain.ChatMessage, 0, s.capacity)
	}

	eventMsgs = append(eventMsgs, *message)

	// Evict oldest if over capacity
	if len(eventMsgs) > int(s.capacity) {
		excess := len(eventMsgs) - int(s.capacity)
		eventMsgs = eventMsgs[excess:]
	}

	s.messages[message.EventID] = eventMsgs

	return nil
}

func (s *memoryMessageStore) ListByEvent(ctx context.Context, eventID int64) ([]domain.ChatMessage, error) {
	if eventID <= 0 {
		return nil, domain.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	eventMsgs, exists := s.messages[eventID]
	if !exists || len(eventMsgs) == 0 {
		return []domain.ChatMessage{}, nil
	}

	// Return a copy to prevent external mutation. Insertion order is
	// creation order, so the slice is already ascending by created_at.
	cpy := make([]domain.ChatMessage, len(eventMsgs))
	copy(cpy, eventMsgs)

	return cpy, nil
}
