package therapist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/therapy/llm"
	"github.com/tailored-agentic-units/therapy/memory"
	"github.com/tailored-agentic-units/therapy/orchestrate/config"
)

const defaultCallTimeout = "30s"

// DefaultFallback is the reply given when no completion could be produced.
const DefaultFallback = "I apologize, but I'm having technical difficulties. Please check your OpenAI API key and try again."

// DefaultPersona is the system turn placed ahead of every transcript.
const DefaultPersona = `You are a compassionate and supportive virtual therapist. You help users manage stress, anger, tension, depression, anxiety and other life challenges.

Listen empathetically and validate feelings without judgment. Reflect back what you hear and ask gentle clarifying questions. Offer balanced perspectives and practical coping strategies such as deep breathing, mindfulness, journaling and healthy routines.

Use what you remember from previous sessions to provide continuity, and build on earlier progress and concerns.

If the user shows signs of crisis or mentions self-harm, urge them to contact a professional, a helpline or emergency services right away.

Keep a calm, respectful tone and encourage small, achievable steps.`

// Config holds initialization parameters for the therapist and every
// subsystem it composes.
type Config struct {
	Persona     string             `json:"persona,omitempty" yaml:"persona,omitempty"`
	Fallback    string             `json:"fallback,omitempty" yaml:"fallback,omitempty"`
	CallTimeout string             `json:"call_timeout,omitempty" yaml:"call_timeout,omitempty"`
	Completion  llm.Config         `json:"completion" yaml:"completion"`
	Memory      memory.Config      `json:"memory" yaml:"memory"`
	Graph       config.GraphConfig `json:"graph" yaml:"graph"`
}

// DefaultConfig returns the default configuration: OpenAI completions, no
// long-term memory, in-memory checkpoints saved after every stage.
func DefaultConfig() Config {
	graph := config.DefaultGraphConfig("therapy")
	graph.Checkpoint.Interval = 1

	return Config{
		Persona:     DefaultPersona,
		Fallback:    DefaultFallback,
		CallTimeout: defaultCallTimeout,
		Completion:  llm.DefaultConfig(),
		Memory:      memory.DefaultConfig(),
		Graph:       graph,
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	if source.Persona != "" {
		c.Persona = source.Persona
	}
	if source.Fallback != "" {
		c.Fallback = source.Fallback
	}
	if source.CallTimeout != "" {
		c.CallTimeout = source.CallTimeout
	}

	c.Completion.Merge(&source.Completion)
	c.Memory.Merge(&source.Memory)
	c.Graph.Merge(&source.Graph)
}

// Timeout parses CallTimeout. Zero disables the per-call deadline.
func (c *Config) Timeout() (time.Duration, error) {
	if c.CallTimeout == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(c.CallTimeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeout, c.CallTimeout)
	}
	return d, nil
}

// LoadConfig reads a JSON or YAML config file (by extension), merges it
// with defaults, and returns the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &loaded)
	default:
		err = json.Unmarshal(data, &loaded)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
