package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/gatherly/gatherly/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCreateAssignsIDAndTimestamp(t *testing.T) {
	store := NewMemoryMessageStore(10)

	msg := &domain.ChatMessage{EventID: 42, UserID: "u1", Content: "hi"}
	require.NoError(t, store.Create(context.Background(), msg))

	assert.NotZero(t, msg.ID)
	assert.False(t, msg.CreatedAt.IsZero())
}

func TestMemoryStoreRejectsInvalidEvent(t *testing.T) {
	store := NewMemoryMessageStore(10)

	err := store.Create(context.Background(), &domain.ChatMessage{EventID: 0, UserID: "u1", Content: "hi"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMemoryStoreListAscending(t *testing.T) {
	store := NewMemoryMessageStore(10)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		msg := &domain.ChatMessage{EventID: 7, UserID: "u1", Content: fmt.Sprintf("msg %d", i)}
		require.NoError(t, store.Create(ctx, msg))
	}

	messages, err := store.ListByEvent(ctx, 7)
	require.NoError(t, err)
	require.Len(t, messages, 5)

	for i := 1; i < len(messages); i++ {
		assert.Greater(t, messages[i].ID, messages[i-1].ID)
		assert.False(t, messages[i].CreatedAt.Before(messages[i-1].CreatedAt))
	}
}

func TestMemoryStoreIsolatesEvents(t *testing.T) {
	store := NewMemoryMessageStore(10)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &domain.ChatMessage{EventID: 1, UserID: "u1", Content: "a"}))
	require.NoError(t, store.Create(ctx, &domain.ChatMessage{EventID: 2, UserID: "u1", Content: "b"}))

	messages, err := store.ListByEvent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "a", messages[0].Content)
}

func TestMemoryStoreEvictsOldest(t *testing.T) {
	store := NewMemoryMessageStore(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		msg := &domain.ChatMessage{EventID: 9, UserID: "u1", Content: fmt.Sprintf("msg %d", i)}
		require.NoError(t, store.Create(ctx, msg))
	}

	messages, err := store.ListByEvent(ctx, 9)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "msg 2", messages[0].Content)
	assert.Equal(t, "msg 4", messages[2].Content)
}

func TestMemoryStoreListUnknownEvent(t *testing.T) {
	store := NewMemoryMessageStore(10)

	messages, err := store.ListByEvent(context.Background(), 999)
	require.NoError(t, err)
	assert.Empty(t, messages)
}
