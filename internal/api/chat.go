package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/metcalfc/bookpilot/internal/domain"
)

// ChatService covers /chat.
type ChatService struct{ c *Client }

func chatPath(bookID string) string {
	return "/chat/" + url.PathEscape(bookID) + "/messages"
}

// Messages returns the conversation about a book, oldest first.
func (s *ChatService) Messages(ctx context.Context, bookID string) ([]domain.ChatMessage, error) {
	var msgs []domain.ChatMessage
	if err := s.c.doJSON(ctx, http.MethodGet, chatPath(bookID), nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Send posts a user message and returns the assistant's reply.
func (s *ChatService) Send(ctx context.Context, bookID, content string) (domain.ChatMessage, error) {
	in := struct {
		Role    domain.Role `json:"role"`
		Content string      `json:"content"`
	}{domain.RoleUser, content}

	var reply domain.ChatMessage
	if err := s.c.doJSON(ctx, http.MethodPost, chatPath(bookID), in, &reply); err != nil {
		return domain.ChatMessage{}, err
	}
	return reply, nil
}
