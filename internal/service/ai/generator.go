package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/zhouzirui/aura/backend/internal/config"
	"github.com/zhouzirui/aura/backend/internal/model/chat"
)

// ErrExternalService marks failures of the upstream model provider.
var ErrExternalService = errors.New("response generation failed")

// Request is everything a provider needs to produce one reply.
type Request struct {
	System  string
	History []chat.Message
	Query   string
}

// Generator produces assistant reply text. Implementations may fail or time out.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// NewGenerator builds the generator selected by cfg.Provider.
// It returns a nil Generator and no error when generation is switched off.
func NewGenerator(ctx context.Context, cfg config.AIConfig) (Generator, error) {
	if cfg.Provider == config.ProviderNone || cfg.Provider == "" {
		return nil, nil
	}
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%s provider is missing credentials or model", cfg.Provider)
	}

	switch cfg.Provider {
	case config.ProviderArk:
		return NewArkGenerator(ctx, cfg)
	case config.ProviderGemini:
		return NewGeminiGenerator(ctx, cfg)
	case config.ProviderOpenAI:
		return NewOpenAIGenerator(cfg)
	case config.ProviderAnthropic:
		return NewAnthropicGenerator(cfg)
	case config.ProviderOllama:
		return NewOllamaGenerator(cfg)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Provider)
	}
}

func externalError(provider string, err error) error {
	return fmt.Errorf("%w (%s): %w", ErrExternalService, provider, err)
}
