package storage

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/zhouzirui/aura/backend/internal/model/chat"
)

func encodeHistory(history []chat.Message) (string, error) {
	if history == nil {
		history = []chat.Message{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return "", errors.Wrap(err, "marshaling history")
	}
	return string(data), nil
}

func decodeHistory(raw []byte) ([]chat.Message, error) {
	history := []chat.Message{}
	if len(raw) == 0 {
		return history, nil
	}
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, errors.Wrap(err, "unmarshaling history")
	}
	return history, nil
}

// rowScanner is satisfied by *sql.Row, *sql.Rows and pgx rows.
type rowScanner interface {
	Scan(dest ...any) error
}
