// Package memory adapts long-term memory providers to the conversation
// pipeline.
//
// A Provider returns search results in whatever JSON shape its backend
// uses. Normalize reduces every known shape to an ordered list of memory
// texts, and Store wraps a Provider so that callers receive an
// outcome.Outcome instead of raw errors:
//
//	provider, err := memory.NewProvider(&cfg.Memory)
//	store := memory.NewStore(provider, observer)
//	texts := store.Search(ctx, "I couldn't sleep", userID, 5)
//	if found, ok := texts.Get(); ok {
//	    ...
//	}
package memory
