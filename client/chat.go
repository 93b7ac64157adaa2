package client

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// ChatEntry is one exchange with the hosted assistant.
type ChatEntry struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user"`
	BusinessID  int64     `json:"business"`
	UserMessage string    `json:"user_message"`
	AIResponse  string    `json:"ai_response"`
	Timestamp   time.Time `json:"timestamp"`
}

type ChatPage struct {
	Count    int         `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  []ChatEntry `json:"results"`
}

// ChatHistory lists the caller's transcript, newest first.
func (c *Client) ChatHistory(ctx context.Context, page int) (*ChatPage, error) {
	if _, err := c.CurrentUser(ctx); err != nil {
		return nil, err
	}

	path := "/v1/chat/history"
	if page > 1 {
		path += "?page=" + strconv.Itoa(page)
	}

	var out ChatPage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendChatMessage relays a message to the assistant and returns the stored
// exchange. An assistant outage surfaces as ErrUpstreamUnavailable so the
// caller can offer a retry.
func (c *Client) SendChatMessage(ctx context.Context, message string) (*ChatEntry, error) {
	if _, err := c.CurrentUser(ctx); err != nil {
		return nil, err
	}

	var entry ChatEntry
	body := map[string]string{"user_message": message}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/chat/history", body, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
