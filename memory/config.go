package memory

import (
	"fmt"

	"github.com/tailored-agentic-units/therapy/memory/chromem"
	"github.com/tailored-agentic-units/therapy/memory/mem0"
)

const (
	defaultSearchLimit = 5
	defaultWindow      = 4
)

// Config holds memory provider initialization parameters.
type Config struct {
	// Provider selects the backend: "chromem", "mem0", or "none"/"" to disable memory.
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`

	// Path is the chromem persistence directory; empty keeps memories in process.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Embedder selects chromem embeddings: "openai" (default) or "hash".
	Embedder string `json:"embedder,omitempty" yaml:"embedder,omitempty"`

	// APIKey authenticates against the provider (or embedding API). Falls back
	// to MEM0_API_KEY / OPENAI_API_KEY.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the mem0 API endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// SearchLimit caps how many memories are retrieved per turn.
	SearchLimit int `json:"search_limit,omitempty" yaml:"search_limit,omitempty"`

	// Window is how many recent turns are written back as a new memory.
	Window int `json:"window,omitempty" yaml:"window,omitempty"`
}

// DefaultConfig returns the default memory configuration (disabled, limit 5,
// window 4).
func DefaultConfig() Config {
	return Config{
		SearchLimit: defaultSearchLimit,
		Window:      defaultWindow,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Provider != "" {
		c.Provider = source.Provider
	}
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.Embedder != "" {
		c.Embedder = source.Embedder
	}
	if source.APIKey != "" {
		c.APIKey = source.APIKey
	}
	if source.BaseURL != "" {
		c.BaseURL = source.BaseURL
	}
	if source.SearchLimit > 0 {
		c.SearchLimit = source.SearchLimit
	}
	if source.Window > 0 {
		c.Window = source.Window
	}
}

// NewProvider creates a Provider from configuration. Returns a nil Provider
// when memory is disabled.
func NewProvider(cfg *Config) (Provider, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "chromem":
		opts := []chromem.Option{chromem.WithPersistence(cfg.Path)}
		switch cfg.Embedder {
		case "hash":
			opts = append(opts, chromem.WithEmbeddingFunc(chromem.HashEmbedding(chromem.DefaultDimensions)))
		case "", "openai":
			opts = append(opts, chromem.WithOpenAI(cfg.APIKey))
		default:
			return nil, fmt.Errorf("unknown chromem embedder: %s", cfg.Embedder)
		}
		provider, err := chromem.New(opts...)
		if err != nil {
			return nil, err
		}
		return provider, nil
	case "mem0":
		return mem0.New(mem0.WithAPIKey(cfg.APIKey), mem0.WithBaseURL(cfg.BaseURL)), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}
