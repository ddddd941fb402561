// Package chat owns conversation documents: creation, listing, retrieval,
// appending a user/assistant turn and deletion, always scoped to one owner.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/moby/locker"

	"github.com/zhouzirui/aura/backend/internal/logger"
	"github.com/zhouzirui/aura/backend/internal/model/chat"
	"github.com/zhouzirui/aura/backend/internal/storage"
)

// ImageOnlyPreview is the list preview of a message that carries only an image.
const ImageOnlyPreview = "Image shared"

var (
	ErrValidation  = errors.New("invalid request")
	ErrNotFound    = errors.New("chat not found")
	ErrPersistence = errors.New("failed to persist chat")
)

// Responder produces the assistant reply for a user message. It must not fail.
type Responder interface {
	Respond(ctx context.Context, history []chat.Message, text string) string
}

// Options overrides the clock and id source, mainly for tests.
type Options struct {
	Now   func() time.Time
	NewID func() string
}

// Service encapsulates conversation state management on top of a Repository.
type Service struct {
	repo      storage.Repository
	responder Responder
	log       *logger.Logger
	now       func() time.Time
	newID     func() string
	locks     *locker.Locker
}

// NewService wires the repository and the responder.
func NewService(repo storage.Repository, responder Responder, log *logger.Logger, opts Options) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Service{
		repo:      repo,
		responder: responder,
		log:       log.With("component", "chat_service"),
		now:       opts.Now,
		newID:     opts.NewID,
		locks:     locker.New(),
	}
}

// AppendInput is the content of a user message. At least one field must be set.
type AppendInput struct {
	Text  string
	Image string
}

// CreateChat provisions an empty chat. A blank title becomes chat.DefaultTitle.
func (s *Service) CreateChat(ctx context.Context, ownerID, title string) (chat.Chat, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return chat.Chat{}, fmt.Errorf("%w: owner id is required", ErrValidation)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = chat.DefaultTitle
	}

	now := s.tick(time.Time{})
	c := chat.Chat{
		ID:        s.newID(),
		OwnerID:   ownerID,
		Title:     title,
		History:   []chat.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, c); err != nil {
		return chat.Chat{}, s.persistenceError("create", c.ID, err)
	}

	s.log.Info("chat created", "chat_id", c.ID, "owner_id", ownerID)
	return c, nil
}

// ListChats returns the owner's chats without history, most recently updated first.
func (s *Service) ListChats(ctx context.Context, ownerID string) ([]chat.Chat, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", ErrValidation)
	}

	chats, err := s.repo.List(ctx, ownerID)
	if err != nil {
		return nil, s.persistenceError("list", "", err)
	}
	if chats == nil {
		chats = []chat.Chat{}
	}
	return chats, nil
}

// GetChat returns one chat with its full history.
func (s *Service) GetChat(ctx context.Context, ownerID, chatID string) (chat.Chat, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return chat.Chat{}, fmt.Errorf("%w: owner id is required", ErrValidation)
	}
	if strings.TrimSpace(chatID) == "" {
		return chat.Chat{}, ErrNotFound
	}

	c, err := s.repo.Get(ctx, ownerID, chatID)
	if err != nil {
		return chat.Chat{}, s.lookupError("get", chatID, err)
	}
	if c.History == nil {
		c.History = []chat.Message{}
	}
	return c, nil
}

// AppendTurn records a user message and the assistant reply to it as one write.
// Either both messages are persisted or neither is.
func (s *Service) AppendTurn(ctx context.Context, ownerID, chatID string, in AppendInput) (chat.Turn, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return chat.Turn{}, fmt.Errorf("%w: owner id is required", ErrValidation)
	}
	text := strings.TrimSpace(in.Text)
	image := strings.TrimSpace(in.Image)
	if text == "" && image == "" {
		return chat.Turn{}, fmt.Errorf("%w: text or image is required", ErrValidation)
	}
	if strings.TrimSpace(chatID) == "" {
		return chat.Turn{}, ErrNotFound
	}

	s.locks.Lock(chatID)
	defer s.locks.Unlock(chatID)

	c, err := s.repo.Get(ctx, ownerID, chatID)
	if err != nil {
		return chat.Turn{}, s.lookupError("append", chatID, err)
	}
	prior := c.History

	userMessage := chat.Message{
		ID:        s.newID(),
		Role:      chat.RoleUser,
		Parts:     []chat.Part{{Text: text, Image: image}},
		CreatedAt: s.tick(c.UpdatedAt),
	}

	if len(prior) == 0 && text != "" {
		c.Title = chat.TruncateTitle(text)
	}
	c.LastMessage = text
	if c.LastMessage == "" {
		c.LastMessage = ImageOnlyPreview
	}

	reply := s.responder.Respond(ctx, prior, text)

	aiResponse := chat.Message{
		ID:        s.newID(),
		Role:      chat.RoleAssistant,
		Parts:     []chat.Part{{Text: reply}},
		CreatedAt: s.tick(userMessage.CreatedAt),
	}

	history := make([]chat.Message, 0, len(prior)+2)
	history = append(history, prior...)
	c.History = append(history, userMessage, aiResponse)
	c.UpdatedAt = aiResponse.CreatedAt

	if err := s.repo.Replace(ctx, c); err != nil {
		return chat.Turn{}, s.lookupError("append", chatID, err)
	}

	s.log.Debug("turn appended", "chat_id", chatID, "owner_id", ownerID, "messages", len(c.History))
	return chat.Turn{UserMessage: userMessage, AIResponse: aiResponse}, nil
}

// DeleteChat removes the chat and all of its messages.
func (s *Service) DeleteChat(ctx context.Context, ownerID, chatID string) error {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return fmt.Errorf("%w: owner id is required", ErrValidation)
	}
	if strings.TrimSpace(chatID) == "" {
		return ErrNotFound
	}

	s.locks.Lock(chatID)
	defer s.locks.Unlock(chatID)

	if err := s.repo.Delete(ctx, ownerID, chatID); err != nil {
		return s.lookupError("delete", chatID, err)
	}

	s.log.Info("chat deleted", "chat_id", chatID, "owner_id", ownerID)
	return nil
}

// tick returns the current time at millisecond precision, strictly after prev.
func (s *Service) tick(prev time.Time) time.Time {
	now := s.now().UTC().Truncate(time.Millisecond)
	if !prev.IsZero() && !now.After(prev) {
		now = prev.Add(time.Millisecond)
	}
	return now
}

func (s *Service) lookupError(op, chatID string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return s.persistenceError(op, chatID, err)
}

func (s *Service) persistenceError(op, chatID string, err error) error {
	s.log.Error("storage operation failed", "op", op, "chat_id", chatID, "error", err)
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}
