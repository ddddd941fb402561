package chat

import "time"

// DefaultTitle is used when a chat is created without a title.
const DefaultTitle = "New conversation"

// TitleLength bounds the title derived from the first message.
const TitleLength = 30

// Chat is a conversation document owned by a single user with its history embedded.
type Chat struct {
	ID          string    `json:"_id"`
	OwnerID     string    `json:"userId"`
	Title       string    `json:"title"`
	LastMessage string    `json:"lastMessage,omitempty"`
	History     []Message `json:"history,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Summary returns a copy of the chat without its history.
func (c Chat) Summary() Chat {
	c.History = nil
	return c
}

// Clone returns a deep copy of the chat, safe to mutate.
func (c Chat) Clone() Chat {
	if c.History != nil {
		history := make([]Message, len(c.History))
		for i, msg := range c.History {
			msg.Parts = append([]Part(nil), msg.Parts...)
			history[i] = msg
		}
		c.History = history
	}
	return c
}

// TruncateTitle returns the first TitleLength characters of text.
func TruncateTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= TitleLength {
		return text
	}
	return string(runes[:TitleLength])
}
