package state

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/therapy/core/protocol"
	"github.com/tailored-agentic-units/therapy/observability"
)

// State is the immutable conversation state flowing through graph execution.
//
// State separates canonical history from transient context:
//   - Messages: The canonical conversation, persisted to checkpoints and
//     returned to callers
//   - Context: Turns injected for a single run (e.g. retrieved memories);
//     never persisted, never returned
//
// All operations return new State instances. The slices held by a State are
// never appended to in place, so earlier snapshots stay valid.
//
// Checkpoint metadata (SessionID, CheckpointNode, Timestamp) identifies the
// conversation a run belongs to. RunID is unique per execution and is only
// used to correlate observer events.
type State struct {
	Messages       []protocol.Message     `json:"messages"`
	Context        []protocol.Message     `json:"-"`
	UserID         string                 `json:"user_id"`
	SessionID      string                 `json:"session_id"`
	Observer       observability.Observer `json:"-"`
	RunID          string                 `json:"run_id"`
	CheckpointNode string                 `json:"checkpoint_node"`
	Timestamp      time.Time              `json:"timestamp"`
}

// New creates an empty conversation State for the given user and session.
//
// If observer is nil, NoOpObserver is used automatically.
//
// Example:
//
//	s := state.New(observer, "alice_1a2b3c4d", "session_alice_1a2b3c4d_9f8e7d6c")
//	s = s.WithMessages(protocol.Human("I had a rough week."))
func New(observer observability.Observer, userID, sessionID string) State {
	if observer == nil {
		observer = observability.NoOpObserver{}
	}

	s := State{
		Messages:  []protocol.Message{},
		Context:   []protocol.Message{},
		UserID:    userID,
		SessionID: sessionID,
		Observer:  observer,
		RunID:     uuid.New().String(),
		Timestamp: time.Now(),
	}

	observer.OnEvent(context.Background(), observability.Event{
		Type:      EventStateCreate,
		Level:     observability.LevelVerbose,
		Timestamp: s.Timestamp,
		Source:    "state",
		Data: map[string]any{
			"user_id":    userID,
			"session_id": sessionID,
		},
	})

	return s
}

// FromCheckpoint rebuilds a State from a persisted Checkpoint. The returned
// State carries a fresh RunID and no transient context.
func FromCheckpoint(cp Checkpoint, observer observability.Observer) State {
	s := New(observer, cp.UserID, cp.SessionID)
	s.Messages = protocol.Clone(cp.Messages)
	s.CheckpointNode = cp.Node
	if !cp.Timestamp.IsZero() {
		s.Timestamp = cp.Timestamp
	}
	return s
}

// Clone creates an independent copy of the State.
//
// The returned State has its own message slices but preserves the same
// observer reference.
func (s State) Clone() State {
	newState := State{
		Messages:       protocol.Clone(s.Messages),
		Context:        protocol.Clone(s.Context),
		UserID:         s.UserID,
		SessionID:      s.SessionID,
		Observer:       s.Observer,
		RunID:          s.RunID,
		CheckpointNode: s.CheckpointNode,
		Timestamp:      s.Timestamp,
	}

	s.observer().OnEvent(context.Background(), observability.Event{
		Type:      EventStateClone,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "state",
		Data:      map[string]any{"messages": len(newState.Messages)},
	})

	return newState
}

// WithMessages creates a new State with msgs appended to the canonical history.
//
// Emits EventStateAppend through the observer.
func (s State) WithMessages(msgs ...protocol.Message) State {
	newState := s.Clone()
	newState.Messages = append(newState.Messages, msgs...)

	s.observer().OnEvent(context.Background(), observability.Event{
		Type:      EventStateAppend,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "state",
		Data:      map[string]any{"appended": len(msgs), "messages": len(newState.Messages)},
	})

	return newState
}

// Apply merges a node Update into a new State. Both Messages and Context are
// appended in order; nothing is overwritten or removed.
//
// Emits EventStateMerge through the observer.
//
// Example:
//
//	s2 := s1.Apply(state.Update{Messages: []protocol.Message{protocol.Assistant("I hear you.")}})
//	// s1 is unchanged, s2 has one more message
func (s State) Apply(update Update) State {
	newState := s.Clone()
	newState.Messages = append(newState.Messages, update.Messages...)
	newState.Context = append(newState.Context, update.Context...)

	s.observer().OnEvent(context.Background(), observability.Event{
		Type:      EventStateMerge,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "state",
		Data: map[string]any{
			"messages": len(update.Messages),
			"context":  len(update.Context),
		},
	})

	return newState
}

// SetCheckpointNode creates a new State with updated checkpoint metadata.
//
// Called by the graph execution engine after successful node execution to
// record how far the run progressed.
func (s State) SetCheckpointNode(node string) State {
	newState := s.Clone()
	newState.CheckpointNode = node
	newState.Timestamp = time.Now()
	return newState
}

// Transcript returns the transient context turns followed by the canonical
// history. This is the conversation a model is shown.
func (s State) Transcript() []protocol.Message {
	out := make([]protocol.Message, 0, len(s.Context)+len(s.Messages))
	out = append(out, s.Context...)
	out = append(out, s.Messages...)
	return out
}

// Checkpoint returns the persistable snapshot of this State. Transient
// context is excluded.
func (s State) Checkpoint() Checkpoint {
	return Checkpoint{
		SessionID: s.SessionID,
		UserID:    s.UserID,
		Node:      s.CheckpointNode,
		Messages:  slices.Clone(s.Messages),
		Timestamp: s.Timestamp,
	}
}

// Save persists this State's checkpoint to store.
//
// Example:
//
//	store := state.NewMemoryCheckpointStore()
//	if err := s.Save(ctx, store); err != nil {
//	    log.Fatal(err)
//	}
func (s State) Save(ctx context.Context, store CheckpointStore) error {
	return store.Save(ctx, s.Checkpoint())
}

func (s State) observer() observability.Observer {
	if s.Observer == nil {
		return observability.NoOpObserver{}
	}
	return s.Observer
}
