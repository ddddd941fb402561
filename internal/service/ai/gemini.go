package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/zhouzirui/aura/backend/internal/config"
	"github.com/zhouzirui/aura/backend/internal/model/chat"
)

// GeminiGenerator calls the Gemini API through the genai SDK.
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	temperature *float32
	topP        *float32
	maxTokens   int32
}

// NewGeminiGenerator creates a Gemini API client.
func NewGeminiGenerator(ctx context.Context, cfg config.AIConfig) (*GeminiGenerator, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	g := &GeminiGenerator{
		client:      client,
		model:       cfg.Model,
		temperature: toFloat32(cfg.Temperature),
		topP:        toFloat32(cfg.TopP),
	}
	if cfg.MaxTokens != nil {
		g.maxTokens = int32(*cfg.MaxTokens)
	}
	return g, nil
}

// Generate sends the history plus the query as one GenerateContent call.
func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (string, error) {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, msg := range req.History {
		switch msg.Role {
		case chat.RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Text(), genai.RoleUser))
		case chat.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Text(), genai.RoleModel))
		}
	}
	contents = append(contents, genai.NewContentFromText(req.Query, genai.RoleUser))

	res, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       g.temperature,
		TopP:              g.topP,
		MaxOutputTokens:   g.maxTokens,
	})
	if err != nil {
		return "", externalError("gemini", err)
	}
	return res.Text(), nil
}
