package storage

import (
	"context"
	"sync"

	"github.com/zhouzirui/aura/backend/internal/model/chat"
)

// MemoryStore keeps chats in process memory, suitable for development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	chats map[string]chat.Chat
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chats: make(map[string]chat.Chat)}
}

// Insert stores a copy of c.
func (s *MemoryStore) Insert(_ context.Context, c chat.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[c.ID] = c.Clone()
	return nil
}

// Get returns a copy of the chat when owned by ownerID.
func (s *MemoryStore) Get(_ context.Context, ownerID, chatID string) (chat.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chats[chatID]
	if !ok || c.OwnerID != ownerID {
		return chat.Chat{}, ErrNotFound
	}
	return c.Clone(), nil
}

// List returns the owner's chat summaries.
func (s *MemoryStore) List(_ context.Context, ownerID string) ([]chat.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]chat.Chat, 0)
	for _, c := range s.chats {
		if c.OwnerID == ownerID {
			out = append(out, c.Summary())
		}
	}
	sortSummaries(out)
	return out, nil
}

// Replace overwrites an existing chat.
func (s *MemoryStore) Replace(_ context.Context, c chat.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.chats[c.ID]
	if !ok || existing.OwnerID != c.OwnerID {
		return ErrNotFound
	}
	s.chats[c.ID] = c.Clone()
	return nil
}

// Delete removes the chat.
func (s *MemoryStore) Delete(_ context.Context, ownerID, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[chatID]
	if !ok || c.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(s.chats, chatID)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
