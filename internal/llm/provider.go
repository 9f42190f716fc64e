// Package llm provides the text-generation capability behind SQL generation.
// The concrete vendor is an injected dependency: consumers see only Provider.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Provider is the single external capability the core depends on: given a
// context string and a question string, return a text completion.
type Provider interface {
	Complete(ctx context.Context, system, user string) (string, error)

	// Name returns the provider name for logging.
	Name() string
}

// ErrMissingAPIKey is returned by New when the configured provider has no
// credential. This is a fail-fast construction error: a Provider is never
// handed out half-initialized.
var ErrMissingAPIKey = errors.New("API key not set")

// Config holds provider selection and credentials.
type Config struct {
	Provider string // "openai" or "anthropic"
	Model    string
	APIKey   string
	BaseURL  string // optional; for OpenAI-compatible proxies
}

// New creates a Provider from configuration. Unknown provider names and
// missing API keys fail immediately.
func New(cfg Config) (Provider, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "openai"
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s provider: %w", provider, ErrMissingAPIKey)
	}

	switch provider {
	case "openai":
		model := cfg.Model
		if model == "" {
			model = "gpt-4"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		return NewOpenAI(cfg.APIKey, model, baseURL), nil

	case "anthropic":
		model := cfg.Model
		if model == "" {
			model = "claude-sonnet-4-20250514"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.anthropic.com/v1"
		}
		return NewAnthropic(cfg.APIKey, model, baseURL), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (supported: openai, anthropic)", cfg.Provider)
	}
}
