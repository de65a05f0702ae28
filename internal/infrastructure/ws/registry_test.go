package ws

import (
	"errors"
	"testing"
	"time"

	"github.com/gatherly/gatherly/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAuthenticateAttachesIdentity(t *testing.T) {
	registry := newTestRegistry(t)
	conn := newTestConn()

	require.NoError(t, registry.Authenticate(conn, "user-1"))
	assert.Equal(t, "user-1", conn.Identity().ID)
	assert.Equal(t, 1, registry.ConnectionCount())
}

func TestAuthenticateRejectsBadCredential(t *testing.T) {
	tests := []struct {
		name        string
		verifierErr error
		want        error
	}{
		{"missing", nil, domain.ErrMissingCredential}, // empty token path
		{"expired", domain.ErrExpiredCredential, domain.ErrExpiredCredential},
		{"invalid", domain.ErrInvalidCredential, domain.ErrInvalidCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry(stubVerifier{err: tt.verifierErr}, time.Minute, zap.NewNop().Sugar())
			conn := newTestConn()

			err := registry.Authenticate(conn, "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want))
			assert.Empty(t, conn.Identity().ID)
			assert.Zero(t, registry.ConnectionCount())
		})
	}
}

func TestJoinRoomRequiresAuthentication(t *testing.T) {
	registry := newTestRegistry(t)
	conn := newTestConn()

	err := registry.JoinRoom(conn, "42")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Empty(t, registry.Members("42"))
}

func TestDisconnectClearsMembership(t *testing.T) {
	registry := newTestRegistry(t)

	connA := authConn(t, registry, uuid.NewString())
	connB := authConn(t, registry, uuid.NewString())
	require.NoError(t, registry.JoinRoom(connA, "42"))
	require.NoError(t, registry.JoinRoom(connA, "43"))
	require.NoError(t, registry.JoinRoom(connB, "42"))

	registry.Disconnect(connA, "test")

	assert.True(t, connA.isClosed())
	assert.Len(t, registry.Members("42"), 1)
	assert.Empty(t, registry.Members("43")) // empty room is dropped
	assert.Equal(t, 1, registry.ConnectionCount())

	// A disconnected connection no longer receives broadcasts.
	registry.Broadcast("42", NewMessageConfirmation(1))
	assert.Empty(t, drain(connA))
	assert.Len(t, drain(connB), 1)
}

func TestBroadcastToUnknownRoomIsNoop(t *testing.T) {
	registry := newTestRegistry(t)
	registry.Broadcast("nope", NewMessageConfirmation(1))
}

func TestSweepDisconnectsStaleConnections(t *testing.T) {
	registry := NewRegistry(stubVerifier{}, 10*time.Millisecond, zap.NewNop().Sugar())

	stale := authConn(t, registry, uuid.NewString())
	fresh := authConn(t, registry, uuid.NewString())
	require.NoError(t, registry.JoinRoom(stale, "42"))

	time.Sleep(20 * time.Millisecond)
	registry.Touch(fresh)

	registry.sweep()

	assert.True(t, stale.isClosed())
	assert.False(t, fresh.isClosed())
	assert.Equal(t, 1, registry.ConnectionCount())
	assert.Empty(t, registry.Members("42"))
}

func TestEnqueueDropsWhenBufferFull(t *testing.T) {
	conn := &Conn{
		ID:     uuid.NewString(),
		send:   make(chan *Envelope, 1),
		closed: make(chan struct{}),
	}

	assert.True(t, conn.enqueue(NewMessageConfirmation(1)))
	assert.False(t, conn.enqueue(NewMessageConfirmation(2)))

	conn.close()
	assert.False(t, conn.enqueue(NewMessageConfirmation(3)))
}
