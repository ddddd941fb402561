package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/zhouzirui/aura/backend/internal/model/chat"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chats (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	title TEXT NOT NULL,
	last_message TEXT NOT NULL DEFAULT '',
	history TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chats_owner_updated ON chats(owner_id, updated_at DESC);
`

// SQLiteStore implements Repository on a single SQLite file.
// Timestamps are stored as unix microseconds.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "pinging database")
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating chats table")
	}

	return &SQLiteStore{db: db}, nil
}

// Insert adds a new chat row with its history encoded as JSON.
func (s *SQLiteStore) Insert(ctx context.Context, c chat.Chat) error {
	history, err := encodeHistory(c.History)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chats (id, owner_id, title, last_message, history, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Title, c.LastMessage, history, c.CreatedAt.UnixMicro(), c.UpdatedAt.UnixMicro(),
	)
	if err != nil {
		return errors.Wrap(err, "inserting chat")
	}
	return nil
}

// Get loads one chat owned by ownerID.
func (s *SQLiteStore) Get(ctx context.Context, ownerID, chatID string) (chat.Chat, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, last_message, history, created_at, updated_at
		FROM chats
		WHERE id = ? AND owner_id = ?`, chatID, ownerID)

	c, err := scanSQLiteChat(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.Chat{}, ErrNotFound
	}
	if err != nil {
		return chat.Chat{}, errors.Wrap(err, "querying chat")
	}
	return c, nil
}

// List returns the owner's chats without their history.
func (s *SQLiteStore) List(ctx context.Context, ownerID string) ([]chat.Chat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, title, last_message, '', created_at, updated_at
		FROM chats
		WHERE owner_id = ?
		ORDER BY updated_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "querying chats")
	}
	defer rows.Close()

	chats := make([]chat.Chat, 0)
	for rows.Next() {
		c, err := scanSQLiteChat(rows, false)
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

// Replace rewrites the title, history and update time of an existing chat.
func (s *SQLiteStore) Replace(ctx context.Context, c chat.Chat) error {
	history, err := encodeHistory(c.History)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE chats
		SET title = ?, last_message = ?, history = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		c.Title, c.LastMessage, history, c.UpdatedAt.UnixMicro(), c.ID, c.OwnerID,
	)
	if err != nil {
		return errors.Wrap(err, "updating chat")
	}
	return checkAffected(result)
}

// Delete removes the chat when owned by ownerID.
func (s *SQLiteStore) Delete(ctx context.Context, ownerID, chatID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ? AND owner_id = ?`, chatID, ownerID)
	if err != nil {
		return errors.Wrap(err, "deleting chat")
	}
	return checkAffected(result)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func checkAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "checking rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSQLiteChat(row rowScanner, withHistory bool) (chat.Chat, error) {
	var (
		c                chat.Chat
		history          string
		created, updated int64
	)
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Title, &c.LastMessage, &history, &created, &updated); err != nil {
		return chat.Chat{}, err
	}
	c.CreatedAt = time.UnixMicro(created).UTC()
	c.UpdatedAt = time.UnixMicro(updated).UTC()

	if withHistory {
		messages, err := decodeHistory([]byte(history))
		if err != nil {
			return chat.Chat{}, err
		}
		c.History = messages
	}
	return c, nil
}
