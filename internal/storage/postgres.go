package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/zhouzirui/aura/backend/internal/model/chat"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS chats (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	title TEXT NOT NULL,
	last_message TEXT NOT NULL DEFAULT '',
	history JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chats_owner_updated ON chats (owner_id, updated_at DESC);
`

// PostgresStore implements Repository on PostgreSQL with the history in a JSONB column.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and creates the chats table if needed.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "pinging postgres")
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "creating chats table")
	}
	return &PostgresStore{pool: pool}, nil
}

// Insert adds a new chat row.
func (s *PostgresStore) Insert(ctx context.Context, c chat.Chat) error {
	history, err := encodeHistory(c.History)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO chats (id, owner_id, title, last_message, history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)`,
		c.ID, c.OwnerID, c.Title, c.LastMessage, history, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "inserting chat")
	}
	return nil
}

// Get loads one chat owned by ownerID.
func (s *PostgresStore) Get(ctx context.Context, ownerID, chatID string) (chat.Chat, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, title, last_message, history, created_at, updated_at
		FROM chats
		WHERE id = $1 AND owner_id = $2`, chatID, ownerID)

	c, err := scanPostgresChat(row, true)
	if errors.Is(err, pgx.ErrNoRows) {
		return chat.Chat{}, ErrNotFound
	}
	if err != nil {
		return chat.Chat{}, errors.Wrap(err, "querying chat")
	}
	return c, nil
}

// List returns the owner's chats without their history.
func (s *PostgresStore) List(ctx context.Context, ownerID string) ([]chat.Chat, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner_id, title, last_message, NULL::jsonb, created_at, updated_at
		FROM chats
		WHERE owner_id = $1
		ORDER BY updated_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "querying chats")
	}
	defer rows.Close()

	chats := make([]chat.Chat, 0)
	for rows.Next() {
		c, err := scanPostgresChat(rows, false)
		if err != nil {
			return nil, errors.Wrap(err, "scanning chat row")
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating chat rows")
	}
	return chats, nil
}

// Replace overwrites an existing chat.
func (s *PostgresStore) Replace(ctx context.Context, c chat.Chat) error {
	history, err := encodeHistory(c.History)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE chats
		SET title = $1, last_message = $2, history = $3::jsonb, updated_at = $4
		WHERE id = $5 AND owner_id = $6`,
		c.Title, c.LastMessage, history, c.UpdatedAt, c.ID, c.OwnerID,
	)
	if err != nil {
		return errors.Wrap(err, "updating chat")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the chat when owned by ownerID.
func (s *PostgresStore) Delete(ctx context.Context, ownerID, chatID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chats WHERE id = $1 AND owner_id = $2`, chatID, ownerID)
	if err != nil {
		return errors.Wrap(err, "deleting chat")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPostgresChat(row rowScanner, withHistory bool) (chat.Chat, error) {
	var (
		c       chat.Chat
		history []byte
	)
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Title, &c.LastMessage, &history, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return chat.Chat{}, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()

	if withHistory {
		messages, err := decodeHistory(history)
		if err != nil {
			return chat.Chat{}, err
		}
		c.History = messages
	}
	return c, nil
}
