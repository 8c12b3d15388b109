package state

import "github.com/tailored-agentic-units/therapy/observability"

const (
	// State operations
	EventStateCreate observability.EventType = "state.create"
	EventStateClone  observability.EventType = "state.clone"
	EventStateAppend observability.EventType = "state.append"
	EventStateMerge  observability.EventType = "state.merge"

	// Graph execution
	EventGraphStart     observability.EventType = "graph.start"
	EventGraphComplete  observability.EventType = "graph.complete"
	EventNodeStart      observability.EventType = "node.start"
	EventNodeComplete   observability.EventType = "node.complete"
	EventEdgeEvaluate   observability.EventType = "edge.evaluate"
	EventEdgeTransition observability.EventType = "edge.transition"
	EventCycleDetected  observability.EventType = "cycle.detected"

	// Checkpointing
	EventCheckpointSave   observability.EventType = "checkpoint.save"
	EventCheckpointLoad   observability.EventType = "checkpoint.load"
	EventCheckpointResume observability.EventType = "checkpoint.resume"
	EventCheckpointError  observability.EventType = "checkpoint.error"
)
