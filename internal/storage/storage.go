// Package storage persists chat documents. Every backend stores a chat and its
// embedded history as one record so a single write replaces both together.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/zhouzirui/aura/backend/internal/config"
	"github.com/zhouzirui/aura/backend/internal/model/chat"
)

// ErrNotFound is returned when no chat with the given id belongs to the given owner.
var ErrNotFound = errors.New("chat not found")

// Repository is the persistence contract used by the chat service.
type Repository interface {
	// Insert stores a new chat document.
	Insert(ctx context.Context, c chat.Chat) error
	// Get returns the chat with its history when ownerID owns chatID.
	Get(ctx context.Context, ownerID, chatID string) (chat.Chat, error)
	// List returns summaries (no history) of the owner's chats, most recently updated first.
	List(ctx context.Context, ownerID string) ([]chat.Chat, error)
	// Replace overwrites an existing chat document owned by c.OwnerID.
	Replace(ctx context.Context, c chat.Chat) error
	// Delete removes the chat and its history.
	Delete(ctx context.Context, ownerID, chatID string) error
	// Close releases the underlying connection.
	Close() error
}

// Open builds the repository selected by cfg and makes sure its schema exists.
func Open(ctx context.Context, cfg config.StorageConfig) (Repository, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return NewMemoryStore(), nil
	case config.DriverSQLite:
		return NewSQLiteStore(cfg.DSN)
	case config.DriverPostgres:
		return NewPostgresStore(ctx, cfg.DSN)
	case config.DriverMongo:
		return NewMongoStore(ctx, cfg.DSN, cfg.Database)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}

// sortSummaries orders chats by UpdatedAt descending, breaking ties by id.
func sortSummaries(chats []chat.Chat) {
	sort.SliceStable(chats, func(i, j int) bool {
		if !chats[i].UpdatedAt.Equal(chats[j].UpdatedAt) {
			return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
		}
		return chats[i].ID > chats[j].ID
	})
}
