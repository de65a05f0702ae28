package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/gatherly/gatherly/internal/domain"
	"github.com/gatherly/gatherly/internal/infrastructure/tracing"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const connectDeadline = 10 * time.Second

// Options tunes the per-connection behavior of the Core.
type Options struct {
	PingInterval     time.Duration
	MaxContentLength int
	SendBuffer       int
}

// Core is the room broadcast engine. Each chat message moves through
// validate -> persist -> broadcast -> acknowledge; a failure at
// validate or persist short-circuits to an error frame for the sender
// alone.
type Core struct {
	registry *Registry
	store    domain.MessageStore
	validate *validator.Validate
	logger   *zap.SugaredLogger
	tracer   trace.Tracer
	opts     Options
}

func NewCore(registry *Registry, store domain.MessageStore, logger *zap.SugaredLogger, opts Options) *Core {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 25 * time.Second
	}
	if opts.MaxContentLength <= 0 {
		opts.MaxContentLength = 1000
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}

	return &Core{
		registry: registry,
		store:    store,
		validate: validator.New(),
		logger:   logger,
		tracer:   tracing.GetTracer("ws"),
		opts:     opts,
	}
}

// HandleConnection runs the whole lifetime of one websocket: the
// connect handshake, then the event loop until the peer goes away.
// Blocks until the connection ends.
func (c *Core) HandleConnection(wsConn *websocket.Conn) {
	conn := NewConn(wsConn, c.opts.SendBuffer)

	if err := c.handshake(wsConn, conn); err != nil {
		// The rejection frame is written directly; the write pump
		// never starts for refused connections.
		_ = conn.wrapper.WriteJSON(NewConnectError(refusalReason(err)))
		conn.close()
		c.logger.Infow("connection refused", "reason", err)
		return
	}

	conn.enqueue(NewConnected(conn.Identity()))

	go conn.writePump(c.opts.PingInterval)
	c.readLoop(wsConn, conn)
}

// handshake requires the very first frame to be a connect event
// carrying a verifiable credential. No application event is processed
// before it succeeds.
func (c *Core) handshake(wsConn *websocket.Conn, conn *Conn) error {
	_ = wsConn.SetReadDeadline(time.Now().Add(connectDeadline))

	var frame inboundFrame
	if err := wsConn.ReadJSON(&frame); err != nil {
		return domain.ErrMissingCredential
	}
	if frame.Type != EventConnect {
		return domain.ErrMissingCredential
	}

	var payload ConnectPayload
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		return domain.ErrInvalidCredential
	}

	return c.registry.Authenticate(conn, payload.Auth.Token)
}

func (c *Core) readLoop(wsConn *websocket.Conn, conn *Conn) {
	defer c.registry.Disconnect(conn, "read loop exit")

	_ = wsConn.SetReadDeadline(time.Now().Add(c.registry.staleTimeout))
	wsConn.SetPongHandler(func(string) error {
		c.registry.Touch(conn)
		return wsConn.SetReadDeadline(time.Now().Add(c.registry.staleTimeout))
	})

	for {
		var frame inboundFrame
		if err := wsConn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debugw("ws read error", "connection_id", conn.ID, "error", err)
			}
			return
		}

		switch frame.Type {
		case EventJoinRoom:
			c.handleJoinRoom(conn, frame.Data)
		case EventChatMessage:
			c.SubmitMessage(context.Background(), conn, frame.Data)
		default:
			conn.enqueue(NewMessageError("unknown event type", frame.Type))
		}
	}
}

func (c *Core) handleJoinRoom(conn *Conn, data json.RawMessage) {
	// The payload is either a bare string or {"roomId": ...}.
	var roomID string
	if err := json.Unmarshal(data, &roomID); err != nil {
		var payload JoinRoomPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			conn.enqueue(NewMessageError("malformed join_room payload", ""))
			return
		}
		roomID = payload.RoomID
	}

	if err := c.registry.JoinRoom(conn, roomID); err != nil {
		conn.enqueue(NewMessageError("failed to join room", err.Error()))
	}
}

// SubmitMessage validates, persists, and fans out one chat message,
// then acknowledges the sender. Contract violations and store failures
// reach the sender alone; nothing is retried.
func (c *Core) SubmitMessage(ctx context.Context, conn *Conn, data json.RawMessage) {
	if !conn.authenticated() {
		conn.enqueue(NewMessageError("not authenticated", ""))
		return
	}

	ctx, span := c.tracer.Start(ctx, "core.SubmitMessage")
	defer span.End()

	var payload ChatMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		conn.enqueue(NewMessageError("malformed chat_message payload", err.Error()))
		return
	}

	if verr := c.validatePayload(&payload); verr != nil {
		span.SetStatus(codes.Error, "validation failed")
		conn.enqueue(NewMessageError(verr.Reason, ""))
		return
	}

	message := &domain.ChatMessage{
		EventID: payload.EventID,
		UserID:  payload.UserID,
		Content: payload.Content,
	}

	if err := c.store.Create(ctx, message); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		c.logger.Errorw("failed to persist message", "event_id", payload.EventID, "error", err)
		conn.enqueue(NewMessageError("failed to persist message", err.Error()))
		return
	}

	span.SetAttributes(attribute.Int64("chat.message_id", message.ID))

	// Broadcast to the room (sender included), then acknowledge the
	// sender separately. No transactionality across the two emits.
	room := strconv.FormatInt(message.EventID, 10)
	c.registry.Broadcast(room, NewNewMessage(message, room))

	conn.enqueue(NewMessageConfirmation(message.ID))
}

// validatePayload checks the message contract. Content length is
// bounded in characters, not bytes, so multibyte text is not penalized.
func (c *Core) validatePayload(payload *ChatMessagePayload) *domain.ValidationError {
	if err := c.validate.Struct(payload); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			switch verrs[0].Field() {
			case "Content":
				return &domain.ValidationError{Reason: "content must be a non-empty string"}
			case "UserID":
				return &domain.ValidationError{Reason: "user_id must be a well-formed identifier"}
			case "EventID":
				return &domain.ValidationError{Reason: "event_id must be a positive integer"}
			}
		}
		return &domain.ValidationError{Reason: "invalid chat_message payload"}
	}

	if utf8.RuneCountInString(payload.Content) > c.opts.MaxContentLength {
		return &domain.ValidationError{
			Reason: fmt.Sprintf("content must be at most %d characters", c.opts.MaxContentLength),
		}
	}

	return nil
}

func refusalReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingCredential):
		return "missing credential"
	case errors.Is(err, domain.ErrExpiredCredential):
		return "expired token"
	default:
		return "invalid token"
	}
}
