package ai

import (
	"context"
	"strings"
	"time"

	"github.com/zhouzirui/aura/backend/internal/logger"
	"github.com/zhouzirui/aura/backend/internal/model/chat"
)

// ResponderConfig tunes a Responder.
type ResponderConfig struct {
	SystemPrompt string
	HistoryLimit int
	Timeout      time.Duration
}

// Responder turns a user message into assistant text and never fails:
// provider errors, timeouts and empty answers are replaced by a fallback.
type Responder struct {
	generator    Generator
	fallbacks    *Fallbacks
	system       string
	historyLimit int
	timeout      time.Duration
	log          *logger.Logger
}

// NewResponder wires a generator (which may be nil) to a fallback pool.
func NewResponder(generator Generator, fallbacks *Fallbacks, cfg ResponderConfig, log *logger.Logger) *Responder {
	if fallbacks == nil {
		fallbacks = NewFallbacks(nil, nil)
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Responder{
		generator:    generator,
		fallbacks:    fallbacks,
		system:       cfg.SystemPrompt,
		historyLimit: cfg.HistoryLimit,
		timeout:      cfg.Timeout,
		log:          log.With("component", "responder"),
	}
}

// Respond generates the reply to text given the prior history.
func (r *Responder) Respond(ctx context.Context, history []chat.Message, text string) string {
	if r.generator == nil {
		r.log.Warn("no generator configured, using fallback")
		return r.fallbacks.Pick()
	}

	query := strings.TrimSpace(text)
	if query == "" {
		query = EmptyQuery
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	reply, err := r.generator.Generate(ctx, Request{
		System:  r.system,
		History: Window(history, r.historyLimit),
		Query:   query,
	})
	if err != nil {
		r.log.Warn("generation failed, using fallback", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return r.fallbacks.Pick()
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		r.log.Warn("empty generation, using fallback")
		return r.fallbacks.Pick()
	}

	r.log.Debug("generated response", "length", len(reply), "duration_ms", time.Since(start).Milliseconds())
	return reply
}
