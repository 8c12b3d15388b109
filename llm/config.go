package llm

import (
	"fmt"

	"github.com/tailored-agentic-units/therapy/llm/anthropic"
	"github.com/tailored-agentic-units/therapy/llm/mock"
	"github.com/tailored-agentic-units/therapy/llm/openai"
)

const defaultMaxTokens = 1024

// Config selects and parameterizes a completion provider.
type Config struct {
	// Provider is "openai" (default), "anthropic" or "mock".
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`

	// Model overrides the provider's default model.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// APIKey falls back to OPENAI_API_KEY / ANTHROPIC_API_KEY when empty.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL points the provider at a compatible endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// DefaultConfig returns the OpenAI provider with its default model.
func DefaultConfig() Config {
	return Config{
		Provider:  "openai",
		MaxTokens: defaultMaxTokens,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Provider != "" {
		c.Provider = source.Provider
	}
	if source.Model != "" {
		c.Model = source.Model
	}
	if source.APIKey != "" {
		c.APIKey = source.APIKey
	}
	if source.BaseURL != "" {
		c.BaseURL = source.BaseURL
	}
	if source.MaxTokens > 0 {
		c.MaxTokens = source.MaxTokens
	}
}

// New creates the Completer described by cfg.
func New(cfg *Config) (Completer, error) {
	switch cfg.Provider {
	case "", "openai":
		return openai.New(
			openai.WithAPIKey(cfg.APIKey),
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithModel(cfg.Model),
			openai.WithMaxTokens(cfg.MaxTokens),
		), nil
	case "anthropic":
		return anthropic.New(
			anthropic.WithAPIKey(cfg.APIKey),
			anthropic.WithBaseURL(cfg.BaseURL),
			anthropic.WithModel(cfg.Model),
			anthropic.WithMaxTokens(cfg.MaxTokens),
		), nil
	case "mock":
		return mock.New(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}
