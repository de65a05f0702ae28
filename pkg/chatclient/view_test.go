package chatclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage(id, eventID int64, content string) Message {
	return Message{
		ID:        id,
		EventID:   eventID,
		UserID:    "b2c7f1a0-4f0e-4d1a-9b7e-1d2c3e4f5a6b",
		Content:   content,
		CreatedAt: time.Now(),
	}
}

func TestViewAppendsBroadcasts(t *testing.T) {
	view := NewView(nil, 42, nil)

	view.HandleMessage(testMessage(1, 42, "first"))
	view.HandleMessage(testMessage(2, 42, "second"))

	msgs := view.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
}

func TestViewDropsDuplicates(t *testing.T) {
	view := NewView(nil, 42, nil)

	view.HandleMessage(testMessage(7, 42, "hello"))
	view.HandleMessage(testMessage(7, 42, "hello"))
	view.HandleMessage(testMessage(7, 42, "hello replayed after reconnect"))

	msgs := view.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Content)
}

func TestViewIgnoresOtherEvents(t *testing.T) {
	view := NewView(nil, 42, nil)

	view.HandleMessage(testMessage(1, 99, "wrong room"))
	view.HandleMessage(testMessage(2, 42, "right room"))

	msgs := view.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "right room", msgs[0].Content)
}

func TestViewSendingClearedByConfirmation(t *testing.T) {
	view := NewView(nil, 42, nil)
	view.sending = true

	view.HandleConfirmation(Confirmation{Status: "ok", ID: 5})

	assert.False(t, view.Sending())
}

func TestViewSendingClearedByError(t *testing.T) {
	view := NewView(nil, 42, nil)
	view.sending = true

	view.HandleSendError(SendError{Status: "error", Message: "Message validation failed"})

	assert.False(t, view.Sending())
	assert.Empty(t, view.Messages())
}

func TestViewNotifiesOnChange(t *testing.T) {
	var changes int
	view := NewView(nil, 42, func() { changes++ })

	view.HandleMessage(testMessage(1, 42, "a"))
	view.HandleMessage(testMessage(1, 42, "a")) // duplicate, no change
	view.HandleConfirmation(Confirmation{Status: "ok", ID: 1})

	assert.Equal(t, 2, changes)
}
