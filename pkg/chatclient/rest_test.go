package chatclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat/42/messages", r.URL.Path)
		require.Equal(t, "Bearer "+validToken, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(messagesResponse{
			Message: "Messages fetched successfully",
			Messages: []Message{
				{ID: 1, EventID: 42, Content: "first", CreatedAt: time.Now().UTC()},
				{ID: 2, EventID: 42, Content: "second", CreatedAt: time.Now().UTC()},
			},
		})
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.APIBaseURL = server.URL + "/api"
	cfg.Token = validToken

	client := New(cfg, Handlers{}, nil)

	msgs, err := client.FetchMessages(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
}

func TestFetchMessagesUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.APIBaseURL = server.URL + "/api"
	cfg.Token = "stale"

	client := New(cfg, Handlers{}, nil)

	_, err := client.FetchMessages(context.Background(), 42)
	assert.ErrorIs(t, err, ErrAuthFailed)
}
