package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrAuthFailed is returned by Connect when the server refuses the
// credential during the handshake.
var ErrAuthFailed = errors.New("chatclient: authentication failed")

// ErrNotConnected is returned by operations that require a live connection.
var ErrNotConnected = errors.New("chatclient: not connected")

// Handlers receive server-pushed events. Nil handlers are ignored.
// Handlers are invoked from the client's read goroutine and must not block.
type Handlers struct {
	OnMessage      func(Message)
	OnConfirmation func(Confirmation)
	OnSendError    func(SendError)
	OnDisconnect   func(error)
}

// Client is a websocket chat client with automatic, bounded reconnection.
type Client struct {
	cfg      Config
	handlers Handlers
	logger   *zap.SugaredLogger

	mu     sync.Mutex
	conn   *websocket.Conn
	rooms  map[string]struct{}
	closed bool
}

// New creates a client. The logger may be nil.
func New(cfg Config, handlers Handlers, logger *zap.SugaredLogger) *Client {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultConfig().HandshakeTimeout
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultConfig().ReconnectDelay
	}
	if cfg.MaxReconnectDelay <= 0 {
		cfg.MaxReconnectDelay = DefaultConfig().MaxReconnectDelay
	}

	return &Client{
		cfg:      cfg,
		handlers: handlers,
		logger:   logger,
		rooms:    make(map[string]struct{}),
	}
}

// Connect dials the server and completes the credential handshake. On
// success a background read loop dispatches events to the handlers.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.closed = false
	c.mu.Unlock()

	go c.readLoop(conn)

	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	if err := c.handshake(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}

// handshake sends the connect frame and waits for the server's verdict.
func (c *Client) handshake(conn *websocket.Conn) error {
	payload := connectPayload{}
	payload.Auth.Token = c.cfg.Token

	deadline := time.Now().Add(c.cfg.HandshakeTimeout)

	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteJSON(envelope{Type: eventConnect, Data: payload}); err != nil {
		return fmt.Errorf("send connect: %w", err)
	}

	_ = conn.SetReadDeadline(deadline)

	var frame inboundFrame
	if err := conn.ReadJSON(&frame); err != nil {
		return fmt.Errorf("read handshake reply: %w", err)
	}

	_ = conn.SetReadDeadline(time.Time{})

	switch frame.Type {
	case eventConnected:
		return nil
	case eventConnectError:
		var reply connectErrorPayload
		_ = json.Unmarshal(frame.Data, &reply)
		if reply.Message == "" {
			reply.Message = "connection refused"
		}
		return fmt.Errorf("%w: %s", ErrAuthFailed, reply.Message)
	default:
		return fmt.Errorf("unexpected handshake reply %q", frame.Type)
	}
}

// JoinRoom subscribes the connection to a room's broadcasts. Joined
// rooms are re-joined automatically after a reconnect.
func (c *Client) JoinRoom(roomID string) error {
	c.mu.Lock()
	conn := c.conn
	if conn != nil {
		c.rooms[roomID] = struct{}{}
	}
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	return c.write(conn, envelope{Type: eventJoinRoom, Data: roomID})
}

// Send submits a chat message. Delivery is asynchronous: the outcome
// arrives later as a confirmation or send-error event.
func (c *Client) Send(eventID int64, userID, content string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	return c.write(conn, envelope{
		Type: eventChatMessage,
		Data: chatMessagePayload{
			Content: content,
			UserID:  userID,
			EventID: eventID,
		},
	})
}

// write serializes frame writes; gorilla permits one concurrent writer.
func (c *Client) write(conn *websocket.Conn, frame envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(frame)
}

// Close shuts the connection down and disables reconnection.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			c.onReadError(conn, err)
			return
		}

		c.dispatch(frame)
	}
}

func (c *Client) dispatch(frame inboundFrame) {
	switch frame.Type {
	case eventNewMessage:
		var msg Message
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			c.logger.Warnw("malformed new_message frame", "error", err)
			return
		}
		if c.handlers.OnMessage != nil {
			c.handlers.OnMessage(msg)
		}
	case eventMessageConfirmation:
		var conf Confirmation
		if err := json.Unmarshal(frame.Data, &conf); err != nil {
			c.logger.Warnw("malformed confirmation frame", "error", err)
			return
		}
		if c.handlers.OnConfirmation != nil {
			c.handlers.OnConfirmation(conf)
		}
	case eventMessageError:
		var sendErr SendError
		if err := json.Unmarshal(frame.Data, &sendErr); err != nil {
			c.logger.Warnw("malformed error frame", "error", err)
			return
		}
		if c.handlers.OnSendError != nil {
			c.handlers.OnSendError(sendErr)
		}
	default:
		c.logger.Debugw("ignoring unknown frame", "type", frame.Type)
	}
}

func (c *Client) onReadError(conn *websocket.Conn, err error) {
	conn.Close()

	c.mu.Lock()
	stale := c.conn != conn
	closed := c.closed
	if !stale {
		c.conn = nil
	}
	c.mu.Unlock()

	if stale || closed {
		return
	}

	if c.handlers.OnDisconnect != nil {
		c.handlers.OnDisconnect(err)
	}

	if c.cfg.MaxReconnectTries > 0 {
		go c.reconnect()
	}
}

// reconnect retries with growing delays until it succeeds or the
// attempt budget runs out. Rooms joined before the drop are re-joined.
func (c *Client) reconnect() {
	delay := c.cfg.ReconnectDelay

	for attempt := 1; attempt <= c.cfg.MaxReconnectTries; attempt++ {
		time.Sleep(delay)

		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.HandshakeTimeout)
		conn, err := c.dial(ctx)
		cancel()

		if err != nil {
			c.logger.Warnw("reconnect attempt failed", "attempt", attempt, "error", err)
			delay *= 2
			if delay > c.cfg.MaxReconnectDelay {
				delay = c.cfg.MaxReconnectDelay
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		rooms := make([]string, 0, len(c.rooms))
		for room := range c.rooms {
			rooms = append(rooms, room)
		}
		c.mu.Unlock()

		for _, room := range rooms {
			if err := c.write(conn, envelope{Type: eventJoinRoom, Data: room}); err != nil {
				c.logger.Warnw("rejoin failed", "room", room, "error", err)
			}
		}

		go c.readLoop(conn)

		c.logger.Infow("reconnected", "attempt", attempt)
		return
	}

	c.logger.Errorw("giving up after exhausting reconnect attempts",
		"attempts", c.cfg.MaxReconnectTries)
}
