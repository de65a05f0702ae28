package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type messagesResponse struct {
	Message  string    `json:"message"`
	Messages []Message `json:"messages"`
}

// FetchMessages retrieves the stored history for an event, oldest first.
func (c *Client) FetchMessages(ctx context.Context, eventID int64) ([]Message, error) {
	url := fmt.Sprintf("%s/chat/%d/messages", c.cfg.APIBaseURL, eventID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	httpClient := &http.Client{Timeout: 30 * time.Second}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrAuthFailed
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch messages: unexpected status %d", resp.StatusCode)
	}

	var body messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	return body.Messages, nil
}
