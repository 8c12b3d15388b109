package memory

import (
	"context"
	"time"

	"github.com/tailored-agentic-units/therapy/core/outcome"
	"github.com/tailored-agentic-units/therapy/observability"
)

// Store adapts a Provider to outcome-valued calls. A nil *Store or a Store
// without a provider reports every call as outcome.Unavailable.
type Store struct {
	provider Provider
	observer observability.Observer
}

// NewStore wraps provider. A nil observer discards events.
func NewStore(provider Provider, observer observability.Observer) *Store {
	if observer == nil {
		observer = observability.NoOpObserver{}
	}
	return &Store{provider: provider, observer: observer}
}

// Available reports whether a provider is configured.
func (s *Store) Available() bool {
	return s != nil && s.provider != nil
}

// Search returns the normalized memory texts for userID relevant to query.
// Ok carries a possibly empty list; Failed carries the provider error.
func (s *Store) Search(ctx context.Context, query, userID string, limit int) outcome.Outcome[[]string] {
	if !s.Available() {
		return outcome.Absent[[]string]()
	}

	raw, err := s.provider.Search(ctx, query, userID, limit)
	if err != nil {
		s.observer.OnEvent(ctx, observability.Event{
			Type:      EventSearchError,
			Level:     observability.LevelWarning,
			Timestamp: time.Now(),
			Source:    "memory.Search",
			Data:      map[string]any{"user_id": userID, "error": err.Error()},
		})
		return outcome.Fail[[]string](err)
	}

	texts := Normalize(raw)

	s.observer.OnEvent(ctx, observability.Event{
		Type:      EventSearch,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "memory.Search",
		Data: map[string]any{
			"user_id": userID,
			"limit":   limit,
			"found":   len(texts),
		},
	})

	return outcome.Of(texts)
}

// Add stores text as a memory for userID.
func (s *Store) Add(ctx context.Context, text, userID string) outcome.Outcome[struct{}] {
	if !s.Available() {
		return outcome.Absent[struct{}]()
	}

	if err := s.provider.Add(ctx, text, userID); err != nil {
		s.observer.OnEvent(ctx, observability.Event{
			Type:      EventAddError,
			Level:     observability.LevelWarning,
			Timestamp: time.Now(),
			Source:    "memory.Add",
			Data:      map[string]any{"user_id": userID, "error": err.Error()},
		})
		return outcome.Fail[struct{}](err)
	}

	s.observer.OnEvent(ctx, observability.Event{
		Type:      EventAdd,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "memory.Add",
		Data:      map[string]any{"user_id": userID, "length": len(text)},
	})

	return outcome.Of(struct{}{})
}
