package chat

import "github.com/gatherly/gatherly/internal/domain"

type getMessagesResponse struct {
	Message  string               `json:"message"`
	Messages []domain.ChatMessage `json:"messages"`
}
