// Package client is a typed HTTP client for the Aura chat API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zhouzirui/aura/backend/internal/model/chat"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("aura api: status %d", e.Status)
	}
	return fmt.Sprintf("aura api: status %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client calls the /api endpoints with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for baseURL, e.g. "http://localhost:5001/api".
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListChats returns the caller's chats, most recently updated first. Servers
// without /chats/userchats are asked for GET /chats instead.
func (c *Client) ListChats(ctx context.Context) ([]chat.Chat, error) {
	var chats []chat.Chat
	err := c.do(ctx, http.MethodGet, "/chats/userchats", nil, &chats)
	if err == nil {
		return chats, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	chats = nil
	if err := c.do(ctx, http.MethodGet, "/chats", nil, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// CreateChat creates a chat. An empty title lets the server pick the default.
func (c *Client) CreateChat(ctx context.Context, title string) (chat.Chat, error) {
	var created chat.Chat
	err := c.do(ctx, http.MethodPost, "/chats", map[string]string{"title": title}, &created)
	return created, err
}

// GetChat returns the chat and its messages.
func (c *Client) GetChat(ctx context.Context, chatID string) (chat.Chat, []chat.Message, error) {
	var detail struct {
		Chat     chat.Chat      `json:"chat"`
		Messages []chat.Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/chats/"+url.PathEscape(chatID), nil, &detail); err != nil {
		return chat.Chat{}, nil, err
	}
	return detail.Chat, detail.Messages, nil
}

// AppendTurn sends a user message and returns it with the assistant reply.
func (c *Client) AppendTurn(ctx context.Context, chatID, text, image string) (chat.Turn, error) {
	var turn chat.Turn
	body := map[string]string{"text": text}
	if image != "" {
		body["image"] = image
	}
	err := c.do(ctx, http.MethodPost, "/chats/"+url.PathEscape(chatID)+"/messages", body, &turn)
	return turn, err
}

// DeleteChat removes a chat.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	return c.do(ctx, http.MethodDelete, "/chats/"+url.PathEscape(chatID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr)
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
