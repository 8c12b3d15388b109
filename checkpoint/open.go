package checkpoint

import (
	"context"
	"fmt"
	"io"

	"github.com/tailored-agentic-units/therapy/orchestrate/config"
	"github.com/tailored-agentic-units/therapy/orchestrate/state"
)

const defaultSQLitePath = "therapy.db"

// Open builds the CheckpointStore named by cfg.Store:
//   - "" or "none": nil, persistence disabled
//   - "memory": a fresh in-memory store
//   - "file": NewFileStore(cfg.Path)
//   - "sqlite": NewSQLiteStore(cfg.Path), defaulting to therapy.db
//   - anything else: looked up with state.GetCheckpointStore
//
// When cfg.CacheSize > 0 the store is wrapped in a CachedStore.
func Open(ctx context.Context, cfg config.CheckpointConfig) (state.CheckpointStore, error) {
	var (
		store state.CheckpointStore
		err   error
	)

	switch cfg.Store {
	case "", "none":
		return nil, nil
	case "memory":
		store = state.NewMemoryCheckpointStore()
	case "file":
		store, err = NewFileStore(cfg.Path)
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = defaultSQLitePath
		}
		store, err = NewSQLiteStore(ctx, path)
	default:
		store, err = state.GetCheckpointStore(cfg.Store)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s checkpoint store: %w", cfg.Store, err)
	}

	if cfg.CacheSize > 0 {
		cached, err := NewCachedStore(store, cfg.CacheSize)
		if err != nil {
			Close(store)
			return nil, err
		}
		return cached, nil
	}

	return store, nil
}

// Close closes store when it implements io.Closer. Nil stores are ignored.
func Close(store state.CheckpointStore) error {
	if closer, ok := store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
