package memory

import (
	"context"
	"encoding/json"
)

// Provider is a long-term, per-user memory backend.
type Provider interface {
	// Search returns up to limit records relevant to query for userID, in the
	// provider's native JSON shape.
	Search(ctx context.Context, query, userID string, limit int) (json.RawMessage, error)

	// Add stores text as a new memory for userID.
	Add(ctx context.Context, text, userID string) error
}

// Record is a single stored memory.
type Record struct {
	Text   string `json:"memory"`
	UserID string `json:"user_id"`
}
