// Package cache mirrors a user's chat list and the open chat's history on the
// client. It applies optimistic edits and reconciles them with the server. The
// server stays authoritative; the cache can be dropped and rebuilt at any time.
package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/aura/backend/internal/model/chat"
)

// TempIDPrefix marks messages that the server has not confirmed yet.
const TempIDPrefix = "temp-"

var (
	ErrNoChatSelected = errors.New("no chat selected")
	ErrEmptyMessage   = errors.New("message needs text or an image")
)

// Backend is the conversation store as seen from the client.
type Backend interface {
	ListChats(ctx context.Context) ([]chat.Chat, error)
	CreateChat(ctx context.Context, title string) (chat.Chat, error)
	GetChat(ctx context.Context, chatID string) (chat.Chat, []chat.Message, error)
	AppendTurn(ctx context.Context, chatID, text, image string) (chat.Turn, error)
	DeleteChat(ctx context.Context, chatID string) error
}

// Notice reports a failed operation to the UI.
type Notice struct {
	Op  string
	Err error
}

// Message is a human readable description of the failure.
func (n Notice) Message() string {
	switch n.Op {
	case "refresh":
		return "Failed to load chat history"
	case "select":
		return "Failed to load messages"
	case "send":
		return "Failed to send message"
	case "create":
		return "Failed to create new chat"
	case "delete":
		return "Failed to delete chat"
	default:
		return "Something went wrong"
	}
}

// Notifier receives non-fatal failures.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify calls f.
func (f NotifierFunc) Notify(n Notice) { f(n) }

// State is a read-only view of the cache.
type State struct {
	Chats   []chat.Chat
	Current *chat.Chat
	History []chat.Message
	Loading bool
}

// Cache is the client state container. All mutation goes through its methods.
type Cache struct {
	backend Backend
	notify  Notifier
	newID   func() string
	now     func() time.Time

	mu      sync.Mutex
	chats   []chat.Chat
	current *chat.Chat
	history []chat.Message
	pending int
}

// New creates an empty cache. A nil notifier discards notices.
func New(backend Backend, notify Notifier) *Cache {
	if notify == nil {
		notify = NotifierFunc(func(Notice) {})
	}
	return &Cache{
		backend: backend,
		notify:  notify,
		newID:   func() string { return TempIDPrefix + uuid.NewString() },
		now:     time.Now,
	}
}

// Snapshot returns a deep copy of the current state.
func (c *Cache) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		Chats:   make([]chat.Chat, len(c.chats)),
		History: cloneMessages(c.history),
		Loading: c.pending > 0,
	}
	copy(s.Chats, c.chats)
	if c.current != nil {
		cur := *c.current
		s.Current = &cur
	}
	return s
}

// Refresh reloads the chat list.
func (c *Cache) Refresh(ctx context.Context) error {
	done := c.begin()
	chats, err := c.backend.ListChats(ctx)
	done()
	if err != nil {
		return c.fail("refresh", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.chats = chats
	if c.current != nil {
		for _, summary := range chats {
			if summary.ID == c.current.ID {
				cur := summary
				c.current = &cur
				break
			}
		}
	}
	return nil
}

// Select loads a chat and replaces the current selection and history with it.
func (c *Cache) Select(ctx context.Context, chatID string) error {
	done := c.begin()
	selected, messages, err := c.backend.GetChat(ctx, chatID)
	done()
	if err != nil {
		return c.fail("select", err)
	}

	selected.History = nil
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = &selected
	c.history = cloneMessages(messages)
	if c.history == nil {
		c.history = []chat.Message{}
	}
	return nil
}

// ClearSelection deselects the current chat.
func (c *Cache) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = nil
	c.history = nil
}

// Send appends a user message to the current chat. The message shows up in
// history immediately under a temporary id and is swapped for the confirmed
// pair once the server answers, or removed again if the call fails.
func (c *Cache) Send(ctx context.Context, text, image string) (chat.Turn, error) {
	text = strings.TrimSpace(text)
	image = strings.TrimSpace(image)
	if text == "" && image == "" {
		return chat.Turn{}, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return chat.Turn{}, ErrNoChatSelected
	}
	chatID := c.current.ID
	temp := chat.Message{
		ID:        c.newID(),
		Role:      chat.RoleUser,
		Parts:     []chat.Part{{Text: text, Image: image}},
		CreatedAt: c.now().UTC(),
	}
	c.history = append(c.history, temp)
	c.pending++
	c.mu.Unlock()

	turn, err := c.backend.AppendTurn(ctx, chatID, text, image)

	c.mu.Lock()
	c.pending--
	idx := indexOf(c.history, temp.ID)
	if err != nil {
		if idx >= 0 {
			c.history = append(c.history[:idx:idx], c.history[idx+1:]...)
		}
		c.mu.Unlock()
		return chat.Turn{}, c.fail("send", err)
	}
	switch {
	case idx >= 0:
		next := make([]chat.Message, 0, len(c.history)+1)
		next = append(next, c.history[:idx]...)
		next = append(next, turn.UserMessage, turn.AIResponse)
		next = append(next, c.history[idx+1:]...)
		c.history = next
	case c.current != nil && c.current.ID == chatID &&
		indexOf(c.history, turn.UserMessage.ID) < 0 && indexOf(c.history, turn.AIResponse.ID) < 0:
		// The chat was reloaded while the send was in flight.
		c.history = append(c.history, turn.UserMessage, turn.AIResponse)
	}
	c.mu.Unlock()

	_ = c.Refresh(ctx)
	return turn, nil
}

// CreateChat creates a chat titled after initialText, selects it and sends
// initialText as its first message when there is one. A failed first message
// is reported but the chat stays created.
func (c *Cache) CreateChat(ctx context.Context, initialText, image string) (chat.Chat, error) {
	initialText = strings.TrimSpace(initialText)
	title := chat.DefaultTitle
	if initialText != "" {
		title = chat.TruncateTitle(initialText)
	}

	done := c.begin()
	created, err := c.backend.CreateChat(ctx, title)
	done()
	if err != nil {
		return chat.Chat{}, c.fail("create", err)
	}

	created.History = nil
	c.mu.Lock()
	c.chats = append([]chat.Chat{created}, c.chats...)
	cur := created
	c.current = &cur
	c.history = []chat.Message{}
	c.mu.Unlock()

	if initialText != "" || strings.TrimSpace(image) != "" {
		// Send reports its own failure.
		_, _ = c.Send(ctx, initialText, image)
	}
	return created, nil
}

// Delete removes a chat and clears the selection when it was the open one.
func (c *Cache) Delete(ctx context.Context, chatID string) error {
	done := c.begin()
	err := c.backend.DeleteChat(ctx, chatID)
	done()
	if err != nil {
		return c.fail("delete", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	kept := make([]chat.Chat, 0, len(c.chats))
	for _, summary := range c.chats {
		if summary.ID != chatID {
			kept = append(kept, summary)
		}
	}
	c.chats = kept
	if c.current != nil && c.current.ID == chatID {
		c.current = nil
		c.history = nil
	}
	return nil
}

func (c *Cache) begin() func() {
	c.mu.Lock()
	c.pending++
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.pending--
		c.mu.Unlock()
	}
}

func (c *Cache) fail(op string, err error) error {
	c.notify.Notify(Notice{Op: op, Err: err})
	return err
}

func indexOf(history []chat.Message, id string) int {
	for i, msg := range history {
		if msg.ID == id {
			return i
		}
	}
	return -1
}

func cloneMessages(in []chat.Message) []chat.Message {
	if in == nil {
		return nil
	}
	out := make([]chat.Message, len(in))
	for i, msg := range in {
		msg.Parts = append([]chat.Part(nil), msg.Parts...)
		out[i] = msg
	}
	return out
}
