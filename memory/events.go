package memory

import "github.com/tailored-agentic-units/therapy/observability"

// Memory adapter event types.
const (
	EventSearch      observability.EventType = "memory.search"
	EventSearchError observability.EventType = "memory.search.error"
	EventAdd         observability.EventType = "memory.add"
	EventAddError    observability.EventType = "memory.add.error"
)
