package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gatherly/gatherly/internal/domain"
	"go.uber.org/zap"
)

var ErrNotAuthenticated = errors.New("connection not authenticated")

// TokenVerifier checks a bearer credential and returns the identity it
// carries.
type TokenVerifier interface {
	Verify(token string) (domain.Identity, error)
}

// Registry owns every live connection and its room membership. Rooms
// are implicit: a room exists exactly while it has members. An owned
// instance is injected wherever needed; there is no package-level
// state, so tests construct a fresh registry each.
type Registry struct {
	verifier TokenVerifier
	logger   *zap.SugaredLogger

	mu    sync.RWMutex
	conns map[string]*Conn            // connection id -> conn
	rooms map[string]map[string]*Conn // room id -> connection id -> conn

	staleTimeout time.Duration
	done         chan struct{}
	stopOnce     sync.Once
}

func NewRegistry(verifier TokenVerifier, staleTimeout time.Duration, logger *zap.SugaredLogger) *Registry {
	return &Registry{
		verifier:     verifier,
		logger:       logger,
		conns:        make(map[string]*Conn),
		rooms:        make(map[string]map[string]*Conn),
		staleTimeout: staleTimeout,
		done:         make(chan struct{}),
	}
}

// Authenticate verifies the credential and attaches the identity to
// the connection. Nothing else may happen on a connection until this
// succeeds; the returned error keeps the distinguished failure reason.
func (r *Registry) Authenticate(c *Conn, token string) error {
	identity, err := r.verifier.Verify(token)
	if err != nil {
		return err
	}

	c.identity = identity
	c.touch()

	r.mu.Lock()
	r.conns[c.ID] = c
	r.mu.Unlock()

	return nil
}

// JoinRoom subscribes the connection to a room. Idempotent; any string
// is a valid room, no existence check.
func (r *Registry) JoinRoom(c *Conn, roomID string) error {
	if !c.authenticated() {
		return ErrNotAuthenticated
	}
	if roomID == "" {
		return domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		room = make(map[string]*Conn)
		r.rooms[roomID] = room
	}
	room[c.ID] = c

	return nil
}

// Members returns a snapshot of the connections currently in the room.
func (r *Registry) Members(roomID string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}

	members := make([]*Conn, 0, len(room))
	for _, c := range room {
		members = append(members, c)
	}
	return members
}

// Broadcast fans an envelope out to every member of the room. Delivery
// is best effort: slow clients drop frames.
func (r *Registry) Broadcast(roomID string, env *Envelope) {
	for _, member := range r.Members(roomID) {
		if !member.enqueue(env) {
			r.logger.Warnw("dropping frame for slow or closed connection",
				"connection_id", member.ID, "room", roomID, "type", env.Type)
		}
	}
}

// Disconnect removes the connection from the registry and every room
// it joined, then closes it. No persisted side effects.
func (r *Registry) Disconnect(c *Conn, reason string) {
	r.mu.Lock()
	delete(r.conns, c.ID)
	for roomID, room := range r.rooms {
		if _, ok := room[c.ID]; ok {
			delete(room, c.ID)
			if len(room) == 0 {
				delete(r.rooms, roomID)
			}
		}
	}
	r.mu.Unlock()

	c.close()

	r.logger.Debugw("connection closed", "connection_id", c.ID, "reason", reason)
}

// Touch records liveness for a connection, fed by pong replies.
func (r *Registry) Touch(c *Conn) {
	c.touch()
}

// ConnectionCount reports the number of live registered connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// StartSweeper periodically force-disconnects connections that have
// been silent past the stale timeout. Stops when Stop is called.
func (r *Registry) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.sweep()
			case <-r.done:
				return
			}
		}
	}()
}

func (r *Registry) sweep() {
	cutoff := time.Now().Add(-r.staleTimeout)

	r.mu.RLock()
	stale := make([]*Conn, 0)
	for _, c := range r.conns {
		if c.lastSeenAt().Before(cutoff) {
			stale = append(stale, c)
		}
	}
	r.mu.RUnlock()

	for _, c := range stale {
		r.logger.Infow("sweeping stale connection", "connection_id", c.ID, "last_seen", c.lastSeenAt())
		r.Disconnect(c, "stale")
	}
}

func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
}
