// Package generate talks to the text-generation model that writes component
// code, change summaries and documentation.
package generate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hpungsan/kiln/internal/config"
	"github.com/hpungsan/kiln/internal/metrics"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn. The system prompt is passed separately.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Generator produces text from a system prompt and a multi-turn conversation.
type Generator interface {
	Generate(ctx context.Context, system string, turns []Message) (string, error)

	// Model names the underlying model, recorded on each version it produces.
	Model() string
}

// NewProvider builds the raw provider client selected by cfg.Provider.
func NewProvider(cfg config.GeneratorConfig) (Generator, error) {
	switch cfg.Provider {
	case "", "openai", "openai-compatible":
		return NewOpenAIProvider(cfg), nil
	case "anthropic":
		return NewAnthropicProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown generator provider: %s", cfg.Provider)
	}
}

// New builds the configured provider wrapped in retry with backoff.
func New(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (Generator, error) {
	p, err := NewProvider(cfg.Generator)
	if err != nil {
		return nil, err
	}
	provider := cfg.Generator.Provider
	if provider == "" {
		provider = "openai"
	}
	return NewRetrying(p, provider, cfg.Retry, logger, m), nil
}

// User is shorthand for a user turn.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant is shorthand for an assistant turn.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
