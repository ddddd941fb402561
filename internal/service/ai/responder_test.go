package ai_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/aura/backend/internal/model/chat"
	"github.com/zhouzirui/aura/backend/internal/service/ai"
)

func first(int) int { return 0 }

func TestRespondReturnsGeneratedText(t *testing.T) {
	var got ai.Request
	gen := ai.GeneratorFunc(func(_ context.Context, req ai.Request) (string, error) {
		got = req
		return "  drink water  ", nil
	})

	r := ai.NewResponder(gen, ai.NewFallbacks(nil, first), ai.ResponderConfig{HistoryLimit: 10}, nil)
	reply := r.Respond(context.Background(), nil, "I feel tired")

	assert.Equal(t, "drink water", reply)
	assert.Equal(t, "I feel tired", got.Query)
	assert.Equal(t, ai.DefaultSystemPrompt, got.System)
	assert.Empty(t, got.History)
}

func TestRespondSubstitutesHelloForEmptyText(t *testing.T) {
	var query string
	gen := ai.GeneratorFunc(func(_ context.Context, req ai.Request) (string, error) {
		query = req.Query
		return "hi there", nil
	})

	r := ai.NewResponder(gen, nil, ai.ResponderConfig{}, nil)
	r.Respond(context.Background(), nil, "   ")

	assert.Equal(t, ai.EmptyQuery, query)
}

func TestRespondFallsBackOnFailure(t *testing.T) {
	pool := []string{"first", "second", "third"}
	pickSecond := func(int) int { return 1 }

	cases := []struct {
		name string
		gen  ai.Generator
	}{
		{
			name: "nil generator",
			gen:  nil,
		},
		{
			name: "provider error",
			gen: ai.GeneratorFunc(func(context.Context, ai.Request) (string, error) {
				return "", errors.New("boom")
			}),
		},
		{
			name: "empty reply",
			gen: ai.GeneratorFunc(func(context.Context, ai.Request) (string, error) {
				return "  ", nil
			}),
		},
		{
			name: "timeout",
			gen: ai.GeneratorFunc(func(ctx context.Context, _ ai.Request) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			}),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := ai.NewResponder(tc.gen, ai.NewFallbacks(pool, pickSecond), ai.ResponderConfig{Timeout: 20 * time.Millisecond}, nil)
			assert.Equal(t, "second", r.Respond(context.Background(), nil, "hello"))
		})
	}
}

func TestRespondPassesWindowedHistory(t *testing.T) {
	var history []chat.Message
	gen := ai.GeneratorFunc(func(_ context.Context, req ai.Request) (string, error) {
		history = req.History
		return "ok", nil
	})

	prior := []chat.Message{
		textMessage(chat.RoleUser, "one"),
		textMessage(chat.RoleAssistant, "two"),
		textMessage(chat.RoleUser, "three"),
		textMessage(chat.RoleAssistant, "four"),
	}

	r := ai.NewResponder(gen, nil, ai.ResponderConfig{HistoryLimit: 2}, nil)
	r.Respond(context.Background(), prior, "five")

	require.Len(t, history, 2)
	assert.Equal(t, "three", history[0].Text())
	assert.Equal(t, "four", history[1].Text())
}

func TestWindow(t *testing.T) {
	history := []chat.Message{
		textMessage(chat.RoleUser, "a"),
		textMessage(chat.RoleAssistant, "b"),
		{Role: chat.RoleUser, Parts: []chat.Part{{Image: "https://ik.example/x.png"}}},
		textMessage(chat.RoleAssistant, "c"),
		textMessage(chat.RoleUser, "d"),
		textMessage(chat.RoleAssistant, "e"),
	}

	t.Run("zero limit", func(t *testing.T) {
		assert.Nil(t, ai.Window(history, 0))
	})

	t.Run("image-only user turn becomes hello", func(t *testing.T) {
		out := ai.Window(history, 4)
		require.Len(t, out, 4)
		assert.Equal(t, []string{ai.EmptyQuery, "c", "d", "e"}, texts(out))
		assert.Equal(t, "https://ik.example/x.png", out[0].Image())
	})

	t.Run("drops leading assistant", func(t *testing.T) {
		out := ai.Window(history, 3)
		assert.Equal(t, []string{"d", "e"}, texts(out))
	})

	t.Run("roles alternate", func(t *testing.T) {
		out := ai.Window(history, 50)
		require.Len(t, out, 6)
		for i, msg := range out {
			want := chat.RoleUser
			if i%2 == 1 {
				want = chat.RoleAssistant
			}
			assert.Equal(t, want, msg.Role, "message %d", i)
		}
	})

	t.Run("does not modify history", func(t *testing.T) {
		ai.Window(history, 50)
		assert.Empty(t, history[2].Text())
	})
}

func TestFallbacks(t *testing.T) {
	t.Run("defaults when pool is empty", func(t *testing.T) {
		f := ai.NewFallbacks(nil, first)
		assert.Equal(t, ai.DefaultFallbacks, f.Responses())
		assert.Equal(t, ai.DefaultFallbacks[0], f.Pick())
	})

	t.Run("out of range selector clamps", func(t *testing.T) {
		f := ai.NewFallbacks([]string{"x", "y"}, func(int) int { return 7 })
		assert.Equal(t, "x", f.Pick())
	})

	t.Run("random pick stays in pool", func(t *testing.T) {
		f := ai.NewFallbacks(nil, nil)
		for range 20 {
			assert.Contains(t, ai.DefaultFallbacks, f.Pick())
		}
	})
}

func textMessage(role chat.Role, text string) chat.Message {
	return chat.Message{Role: role, Parts: []chat.Part{{Text: text}}}
}

func texts(msgs []chat.Message) []string {
	out := make([]string, len(msgs))
	for i, msg := range msgs {
		out[i] = msg.Text()
	}
	return out
}
