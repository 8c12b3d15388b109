package checkpoint

import (
	"context"
	"fmt"
	"slices"

	"github.com/dgraph-io/ristretto"
	"github.com/tailored-agentic-units/therapy/orchestrate/state"
)

// CachedStore fronts a CheckpointStore with an in-process ristretto cache.
// Writes go through to the backing store first; reads fall back to it on a
// miss. Entries cost 1, so the cache holds up to size checkpoints.
type CachedStore struct {
	next  state.CheckpointStore
	cache *ristretto.Cache
}

// NewCachedStore wraps next with a cache holding up to size checkpoints.
func NewCachedStore(next state.CheckpointStore, size int64) (*CachedStore, error) {
	if size <= 0 {
		size = 1
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        size * 10,
		MaxCost:            size,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create checkpoint cache: %w", err)
	}

	return &CachedStore{next: next, cache: cache}, nil
}

func (c *CachedStore) Save(ctx context.Context, cp state.Checkpoint) error {
	if err := c.next.Save(ctx, cp); err != nil {
		c.cache.Del(cp.SessionID)
		return err
	}

	cp.Messages = slices.Clone(cp.Messages)
	c.cache.Del(cp.SessionID)
	c.cache.Set(cp.SessionID, cp, 1)
	c.cache.Wait()
	return nil
}

func (c *CachedStore) Load(ctx context.Context, sessionID string) (state.Checkpoint, error) {
	if v, ok := c.cache.Get(sessionID); ok {
		if cp, ok := v.(state.Checkpoint); ok {
			cp.Messages = slices.Clone(cp.Messages)
			return cp, nil
		}
	}

	cp, err := c.next.Load(ctx, sessionID)
	if err != nil {
		return state.Checkpoint{}, err
	}

	cached := cp
	cached.Messages = slices.Clone(cp.Messages)
	c.cache.Set(sessionID, cached, 1)
	return cp, nil
}

func (c *CachedStore) Delete(ctx context.Context, sessionID string) error {
	c.cache.Del(sessionID)
	return c.next.Delete(ctx, sessionID)
}

func (c *CachedStore) List(ctx context.Context) ([]string, error) {
	return c.next.List(ctx)
}

// Close releases the cache and closes the backing store when it holds
// resources.
func (c *CachedStore) Close() error {
	c.cache.Close()
	return Close(c.next)
}
