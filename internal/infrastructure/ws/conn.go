package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gatherly/gatherly/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Conn is one live client connection. It is ephemeral: created on
// socket connect, destroyed on disconnect, owned by the Registry.
type Conn struct {
	ID string

	wrapper *connWrapper
	send    chan *Envelope

	identity domain.Identity
	lastSeen atomic.Int64 // unix nanos of the last pong (or connect)

	closeOnce sync.Once
	closed    chan struct{}
}

func NewConn(conn *websocket.Conn, sendBuffer int) *Conn {
	c := &Conn{
		ID:      uuid.NewString(),
		wrapper: newConnWrapper(conn),
		send:    make(chan *Envelope, sendBuffer),
		closed:  make(chan struct{}),
	}
	c.touch()
	return c
}

// Identity returns the authenticated user, zero until authentication
// completes.
func (c *Conn) Identity() domain.Identity {
	return c.identity
}

func (c *Conn) authenticated() bool {
	return c.identity.ID != ""
}

func (c *Conn) touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}

func (c *Conn) lastSeenAt() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

// enqueue hands an envelope to the write pump without blocking. Slow
// clients whose buffer is full lose the frame.
func (c *Conn) enqueue(env *Envelope) bool {
	select {
	case <-c.closed:
		return false
	default:
	}

	select {
	case c.send <- env:
		return true
	default:
		return false
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.wrapper != nil {
			_ = c.wrapper.Close()
		}
	})
}

func (c *Conn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// writePump drains the send channel to the socket and emits a liveness
// ping on a fixed interval. Exits on write failure or close.
func (c *Conn) writePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.close()

	for {
		select {
		case env := <-c.send:
			if err := c.wrapper.WriteJSON(env); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.wrapper.WriteControl(websocket.PingMessage); err != nil {
				return
			}

		case <-c.closed:
			_ = c.wrapper.WriteControl(websocket.CloseMessage)
			return
		}
	}
}
