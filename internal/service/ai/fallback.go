package ai

import "math/rand/v2"

// DefaultFallbacks are served when the provider cannot answer.
var DefaultFallbacks = []string{
	"I'm sorry, I'm having trouble processing that request right now. Could you ask me a different way?",
	"I apologize, but I'm experiencing some technical difficulties. Let's try a different approach.",
	"My systems are currently under heavy load. Could you please try again in a moment?",
	"I'd like to help, but I'm having trouble processing that. Could you rephrase your question?",
	"Interesting question! Unfortunately, I'm having trouble connecting to my knowledge base right now.",
}

// Selector picks an index in [0, n).
type Selector func(n int) int

// Fallbacks is a fixed pool of canned replies.
type Fallbacks struct {
	responses []string
	pick      Selector
}

// NewFallbacks returns a pool over responses (DefaultFallbacks when empty).
// A nil selector picks uniformly at random.
func NewFallbacks(responses []string, pick Selector) *Fallbacks {
	if len(responses) == 0 {
		responses = DefaultFallbacks
	}
	if pick == nil {
		pick = rand.IntN
	}
	return &Fallbacks{responses: append([]string(nil), responses...), pick: pick}
}

// Pick returns one response from the pool.
func (f *Fallbacks) Pick() string {
	idx := f.pick(len(f.responses))
	if idx < 0 || idx >= len(f.responses) {
		idx = 0
	}
	return f.responses[idx]
}

// Responses returns a copy of the pool.
func (f *Fallbacks) Responses() []string {
	return append([]string(nil), f.responses...)
}
