package therapist

import "github.com/tailored-agentic-units/therapy/observability"

// Therapist event types emitted around each turn.
const (
	EventRespondStart    observability.EventType = "therapist.respond.start"
	EventRespondComplete observability.EventType = "therapist.respond.complete"
	EventRetry           observability.EventType = "therapist.retry"
	EventFallback        observability.EventType = "therapist.fallback"
	EventHistoryRestore  observability.EventType = "therapist.history.restore"
	EventCheckpointError observability.EventType = "therapist.checkpoint.error"
	EventTurnRecover     observability.EventType = "therapist.turn.recover"
)
