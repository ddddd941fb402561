package chat

import "time"

// Part is one content block of a message. Image holds an already-hosted URL.
type Part struct {
	Text  string `json:"text"`
	Image string `json:"img,omitempty"`
}

// Message is one turn of a conversation. Messages are never mutated once persisted.
type Message struct {
	ID        string    `json:"_id"`
	Role      Role      `json:"role"`
	Parts     []Part    `json:"parts"`
	CreatedAt time.Time `json:"createdAt"`
}

// Text returns the text of the first part, if any.
func (m Message) Text() string {
	if len(m.Parts) == 0 {
		return ""
	}
	return m.Parts[0].Text
}

// Image returns the first image reference carried by the message.
func (m Message) Image() string {
	for _, p := range m.Parts {
		if p.Image != "" {
			return p.Image
		}
	}
	return ""
}

// Turn is the pair of messages produced by a single append.
type Turn struct {
	UserMessage Message `json:"userMessage"`
	AIResponse  Message `json:"aiResponse"`
}
