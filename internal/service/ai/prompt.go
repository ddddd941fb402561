package ai

import "github.com/zhouzirui/aura/backend/internal/model/chat"

// DefaultSystemPrompt frames every conversation.
const DefaultSystemPrompt = `You are Aura AI, a friendly and helpful health and wellness assistant.
You provide concise, evidence-based information about health and wellbeing.
Be warm and conversational, match the user's language style, and never give a medical diagnosis.
If the user mentions self-harm, respond with care and strongly recommend contacting a local helpline or someone they trust.`

// EmptyQuery is sent in place of a message that carries only an image.
const EmptyQuery = "Hello"

// Window returns at most limit trailing messages of history, starting with a
// user turn so providers that require alternation accept it. Image-only user
// messages stand in as EmptyQuery, the text they were answered from.
func Window(history []chat.Message, limit int) []chat.Message {
	if limit <= 0 || len(history) == 0 {
		return nil
	}

	withText := make([]chat.Message, 0, len(history))
	for _, msg := range history {
		if msg.Text() == "" {
			if msg.Role != chat.RoleUser {
				continue
			}
			msg.Parts = []chat.Part{{Text: EmptyQuery, Image: msg.Image()}}
		}
		withText = append(withText, msg)
	}

	start := 0
	if len(withText) > limit {
		start = len(withText) - limit
	}
	out := withText[start:]
	for len(out) > 0 && out[0].Role != chat.RoleUser {
		out = out[1:]
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
