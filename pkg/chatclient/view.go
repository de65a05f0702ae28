package chatclient

import (
	"context"
	"strconv"
	"sync"
)

// View maintains the message list for a single event's chat: it
// bootstraps from stored history, appends live broadcasts, and drops
// duplicates so a reconnect never shows a message twice.
type View struct {
	client  *Client
	eventID int64

	mu       sync.Mutex
	messages []Message
	seen     map[int64]struct{}
	sending  bool

	onChange func()
}

// NewView creates a view over one event's chat. onChange, if non-nil,
// fires after every state change; it runs under the view's lock and
// must not call back into the view.
func NewView(client *Client, eventID int64, onChange func()) *View {
	return &View{
		client:   client,
		eventID:  eventID,
		seen:     make(map[int64]struct{}),
		onChange: onChange,
	}
}

// Open loads the stored history and subscribes to the event's room.
// Call after the client has connected and its handlers route frames
// here via HandleMessage/HandleConfirmation/HandleSendError.
func (v *View) Open(ctx context.Context) error {
	history, err := v.client.FetchMessages(ctx, v.eventID)
	if err != nil {
		return err
	}

	v.mu.Lock()
	for _, msg := range history {
		v.appendLocked(msg)
	}
	v.notifyLocked()
	v.mu.Unlock()

	return v.client.JoinRoom(strconv.FormatInt(v.eventID, 10))
}

// Send submits a message and marks the view as sending until the
// server confirms or rejects it. The message itself is rendered when
// its broadcast arrives.
func (v *View) Send(userID, content string) error {
	v.mu.Lock()
	v.sending = true
	v.notifyLocked()
	v.mu.Unlock()

	if err := v.client.Send(v.eventID, userID, content); err != nil {
		v.mu.Lock()
		v.sending = false
		v.notifyLocked()
		v.mu.Unlock()
		return err
	}

	return nil
}

// HandleMessage folds a broadcast into the view. Messages for other
// events and duplicates are ignored.
func (v *View) HandleMessage(msg Message) {
	if msg.EventID != v.eventID {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.appendLocked(msg) {
		v.notifyLocked()
	}
}

// HandleConfirmation clears the sending state once the server has
// acknowledged the last submission.
func (v *View) HandleConfirmation(Confirmation) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.sending = false
	v.notifyLocked()
}

// HandleSendError clears the sending state after a rejection. The
// rejected content is not resubmitted.
func (v *View) HandleSendError(SendError) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.sending = false
	v.notifyLocked()
}

// Messages returns a snapshot of the rendered messages, oldest first.
func (v *View) Messages() []Message {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]Message, len(v.messages))
	copy(out, v.messages)
	return out
}

// Sending reports whether a submission is awaiting its server verdict.
func (v *View) Sending() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sending
}

func (v *View) appendLocked(msg Message) bool {
	if _, dup := v.seen[msg.ID]; dup {
		return false
	}
	v.seen[msg.ID] = struct{}{}
	v.messages = append(v.messages, msg)
	return true
}

func (v *View) notifyLocked() {
	if v.onChange != nil {
		v.onChange()
	}
}
