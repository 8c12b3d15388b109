package config

// CheckpointConfig controls conversation persistence during graph execution.
//
// Configuration fields:
//   - Store: Name of the CheckpointStore backend ("memory", "file", "sqlite",
//     "none", or a name registered with state.RegisterCheckpointStore)
//   - Path: Directory for the file backend, database path for sqlite
//   - Interval: Save a checkpoint every N node executions (0 = disabled)
//   - CacheSize: Number of checkpoints kept in the read-through cache (0 = no cache)
//   - PreserveNil: Keep checkpoints after successful completion (default true)
//
// Example enabling sqlite checkpoints:
//
//	cfg := config.DefaultGraphConfig("therapy")
//	cfg.Checkpoint.Store = "sqlite"
//	cfg.Checkpoint.Path = "therapy.db"
//	cfg.Checkpoint.Interval = 1
type CheckpointConfig struct {
	Store       string `json:"store" yaml:"store"`
	Path        string `json:"path,omitempty" yaml:"path,omitempty"`
	Interval    int    `json:"interval" yaml:"interval"`
	CacheSize   int64  `json:"cache_size,omitempty" yaml:"cache_size,omitempty"`
	PreserveNil *bool  `json:"preserve,omitempty" yaml:"preserve,omitempty"`
}

// Preserve reports whether checkpoints outlive a completed run. Conversations
// are resumed across runs, so the default is true.
func (c *CheckpointConfig) Preserve() bool {
	if c.PreserveNil == nil {
		return true
	}
	return *c.PreserveNil
}

// DefaultCheckpointConfig returns checkpoint configuration with checkpointing disabled.
//
// Default values:
//   - Store: "memory" (though unused when Interval=0)
//   - Interval: 0 (checkpointing disabled)
//   - CacheSize: 0 (no cache)
func DefaultCheckpointConfig() CheckpointConfig {
	return CheckpointConfig{
		Store:    "memory",
		Interval: 0,
	}
}

func (c *CheckpointConfig) Merge(source *CheckpointConfig) {
	if source.Store != "" {
		c.Store = source.Store
	}

	if source.Path != "" {
		c.Path = source.Path
	}

	if source.Interval > 0 {
		c.Interval = source.Interval
	}

	if source.CacheSize > 0 {
		c.CacheSize = source.CacheSize
	}

	if source.PreserveNil != nil {
		c.PreserveNil = source.PreserveNil
	}
}

// GraphConfig defines configuration for state graph execution.
//
// Used only during initialization, then transformed into domain objects.
// The Observer and Checkpoint.Store fields are strings so that JSON and YAML
// configuration can be resolved at runtime through registries.
//
// Example JSON:
//
//	{
//	  "name": "therapy",
//	  "observer": "slog",
//	  "max_iterations": 10,
//	  "checkpoint": {
//	    "store": "file",
//	    "path": "./checkpoints",
//	    "interval": 1
//	  }
//	}
type GraphConfig struct {
	// Name identifies the graph for observability
	Name string `json:"name" yaml:"name"`

	// Observer specifies which observer implementation to use ("noop", "slog", etc.)
	Observer string `json:"observer" yaml:"observer"`

	// MaxIterations limits graph execution to prevent infinite loops
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// Checkpoint configures conversation persistence and recovery
	Checkpoint CheckpointConfig `json:"checkpoint" yaml:"checkpoint"`
}

// DefaultGraphConfig returns sensible defaults for graph execution.
//
// Default values:
//   - Observer: "slog" for structured logging
//   - MaxIterations: 1000 to protect against infinite loops
//   - Checkpoint: Disabled (Interval=0) for zero-overhead execution
func DefaultGraphConfig(name string) GraphConfig {
	return GraphConfig{
		Name:          name,
		Observer:      "slog",
		MaxIterations: 1000,
		Checkpoint:    DefaultCheckpointConfig(),
	}
}

func (c *GraphConfig) Merge(source *GraphConfig) {
	if source.Name != "" {
		c.Name = source.Name
	}

	if source.Observer != "" {
		c.Observer = source.Observer
	}

	if source.MaxIterations > 0 {
		c.MaxIterations = source.MaxIterations
	}

	c.Checkpoint.Merge(&source.Checkpoint)
}
