package chatclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer accepts websocket connections, answers the connect
// handshake, and echoes every chat message back as a broadcast plus a
// confirmation. Tokens other than validToken are refused. Joined rooms
// surface on the joins channel, and live connections can be dropped to
// exercise reconnection.
type fakeServer struct {
	validToken string
	upgrader   websocket.Upgrader
	joins      chan string

	mu    sync.Mutex
	conns []*websocket.Conn

	http *httptest.Server
}

const validToken = "token-for-tests"

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()

	fake := &fakeServer{
		validToken: validToken,
		joins:      make(chan string, 8),
	}
	fake.http = httptest.NewServer(http.HandlerFunc(fake.handle))
	t.Cleanup(fake.http.Close)

	return fake
}

// dropConnections force-closes every live connection server-side.
func (s *fakeServer) dropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.conns {
		_ = c.Close()
	}
	s.conns = nil
}

func (s *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var frame inboundFrame
	if err := conn.ReadJSON(&frame); err != nil || frame.Type != eventConnect {
		return
	}

	var payload connectPayload
	_ = json.Unmarshal(frame.Data, &payload)

	if payload.Auth.Token != s.validToken {
		_ = conn.WriteJSON(envelope{
			Type: eventConnectError,
			Data: map[string]string{"status": "error", "message": "invalid token"},
		})
		return
	}

	_ = conn.WriteJSON(envelope{Type: eventConnected, Data: map[string]string{"userId": "u1"}})

	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	for {
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}

		switch frame.Type {
		case eventJoinRoom:
			var roomID string
			if err := json.Unmarshal(frame.Data, &roomID); err == nil {
				select {
				case s.joins <- roomID:
				default:
				}
			}

		case eventChatMessage:
			var msg chatMessagePayload
			_ = json.Unmarshal(frame.Data, &msg)

			_ = conn.WriteJSON(envelope{
				Type: eventNewMessage,
				Data: Message{
					ID:        1,
					EventID:   msg.EventID,
					UserID:    msg.UserID,
					Content:   msg.Content,
					CreatedAt: time.Now().UTC(),
				},
			})
			_ = conn.WriteJSON(envelope{
				Type: eventMessageConfirmation,
				Data: Confirmation{Status: "ok", ID: 1},
			})
		}
	}
}

func (s *fakeServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.http.URL, "http")
}

func newTestClient(fake *fakeServer, token string, handlers Handlers) *Client {
	cfg := DefaultConfig()
	cfg.URL = fake.wsURL()
	cfg.Token = token
	cfg.HandshakeTimeout = 2 * time.Second
	cfg.MaxReconnectTries = 0

	return New(cfg, handlers, nil)
}

func waitForJoin(t *testing.T, fake *fakeServer, room string) {
	t.Helper()

	select {
	case got := <-fake.joins:
		require.Equal(t, room, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for join of room %s", room)
	}
}

func TestConnectHandshake(t *testing.T) {
	fake := newFakeServer(t)

	client := newTestClient(fake, validToken, Handlers{})
	defer client.Close()

	require.NoError(t, client.Connect(context.Background()))
}

func TestConnectRejectsBadToken(t *testing.T) {
	fake := newFakeServer(t)

	client := newTestClient(fake, "wrong", Handlers{})

	err := client.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.Contains(t, err.Error(), "invalid token")
}

func TestSendReceivesBroadcastAndConfirmation(t *testing.T) {
	fake := newFakeServer(t)

	messages := make(chan Message, 1)
	confirms := make(chan Confirmation, 1)

	client := newTestClient(fake, validToken, Handlers{
		OnMessage:      func(m Message) { messages <- m },
		OnConfirmation: func(c Confirmation) { confirms <- c },
	})
	defer client.Close()

	require.NoError(t, client.Connect(context.Background()))
	require.NoError(t, client.Send(42, "b2c7f1a0-4f0e-4d1a-9b7e-1d2c3e4f5a6b", "hello"))

	select {
	case msg := <-messages:
		assert.Equal(t, int64(42), msg.EventID)
		assert.Equal(t, "hello", msg.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
	}

	select {
	case conf := <-confirms:
		assert.Equal(t, "ok", conf.Status)
		assert.Equal(t, int64(1), conf.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for confirmation")
	}
}

func TestOperationsRequireConnection(t *testing.T) {
	client := New(DefaultConfig(), Handlers{}, nil)

	assert.ErrorIs(t, client.JoinRoom("42"), ErrNotConnected)
	assert.ErrorIs(t, client.Send(42, "u", "hi"), ErrNotConnected)
}

func TestReconnectRejoinsRooms(t *testing.T) {
	fake := newFakeServer(t)

	disconnects := make(chan error, 1)

	client := newTestClient(fake, validToken, Handlers{
		OnDisconnect: func(err error) { disconnects <- err },
	})
	client.cfg.MaxReconnectTries = 5
	client.cfg.ReconnectDelay = 10 * time.Millisecond
	client.cfg.MaxReconnectDelay = 50 * time.Millisecond
	defer client.Close()

	require.NoError(t, client.Connect(context.Background()))
	require.NoError(t, client.JoinRoom("42"))
	waitForJoin(t, fake, "42")

	fake.dropConnections()

	select {
	case <-disconnects:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for disconnect callback")
	}

	// The reconnected session joins room 42 again on its own.
	waitForJoin(t, fake, "42")

	require.NoError(t, client.Send(42, "b2c7f1a0-4f0e-4d1a-9b7e-1d2c3e4f5a6b", "still here"))
}

func TestReconnectGivesUpAfterBudget(t *testing.T) {
	fake := newFakeServer(t)

	disconnects := make(chan error, 1)

	client := newTestClient(fake, validToken, Handlers{
		OnDisconnect: func(err error) { disconnects <- err },
	})
	client.cfg.MaxReconnectTries = 2
	client.cfg.ReconnectDelay = 5 * time.Millisecond
	client.cfg.MaxReconnectDelay = 10 * time.Millisecond

	require.NoError(t, client.Connect(context.Background()))
	require.NoError(t, client.JoinRoom("42"))
	waitForJoin(t, fake, "42")

	// Take the whole server down so every reconnect attempt fails.
	fake.http.Close()
	fake.dropConnections()

	select {
	case <-disconnects:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for disconnect callback")
	}

	// Both attempts fail within ~15ms; leave plenty of margin.
	time.Sleep(300 * time.Millisecond)

	assert.ErrorIs(t, client.Send(42, "u", "hi"), ErrNotConnected)
	assert.Empty(t, fake.joins)
}
