package chatclient

import "time"

// Config controls how the chat client connects.
type Config struct {
	// URL is the websocket endpoint, e.g. "ws://localhost:8080/api/chat/ws".
	URL string
	// APIBaseURL is the HTTP API root, e.g. "http://localhost:8080/api".
	APIBaseURL string
	// Token is the bearer credential presented at connect time.
	Token string

	HandshakeTimeout time.Duration

	// Reconnection is bounded: after MaxReconnectTries failed attempts
	// no further automatic reconnection occurs. Zero disables
	// reconnection entirely.
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	MaxReconnectTries int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:  10 * time.Second,
		ReconnectDelay:    2 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		MaxReconnectTries: 5,
	}
}
