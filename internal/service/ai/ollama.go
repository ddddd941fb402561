package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/zhouzirui/aura/backend/internal/config"
	"github.com/zhouzirui/aura/backend/internal/model/chat"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaGenerator talks to a local Ollama server.
type OllamaGenerator struct {
	client  *api.Client
	model   string
	options map[string]any
}

// NewOllamaGenerator creates an Ollama API client.
func NewOllamaGenerator(cfg config.AIConfig) (*OllamaGenerator, error) {
	raw := cfg.BaseURL
	if raw == "" {
		raw = defaultOllamaURL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL %q: %w", raw, err)
	}

	options := map[string]any{}
	if cfg.Temperature != nil {
		options["temperature"] = *cfg.Temperature
	}
	if cfg.TopP != nil {
		options["top_p"] = *cfg.TopP
	}
	if cfg.MaxTokens != nil {
		options["num_predict"] = *cfg.MaxTokens
	}

	return &OllamaGenerator{
		client:  api.NewClient(base, http.DefaultClient),
		model:   cfg.Model,
		options: options,
	}, nil
}

// Generate runs a non-streaming chat request.
func (g *OllamaGenerator) Generate(ctx context.Context, req Request) (string, error) {
	messages := make([]api.Message, 0, len(req.History)+2)
	messages = append(messages, api.Message{Role: "system", Content: req.System})
	for _, msg := range req.History {
		messages = append(messages, api.Message{Role: msg.Role.String(), Content: msg.Text()})
	}
	messages = append(messages, api.Message{Role: chat.RoleUser.String(), Content: req.Query})

	stream := false
	var sb strings.Builder
	err := g.client.Chat(ctx, &api.ChatRequest{
		Model:    g.model,
		Messages: messages,
		Stream:   &stream,
		Options:  g.options,
	}, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", externalError("ollama", err)
	}
	return sb.String(), nil
}
