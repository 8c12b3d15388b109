// Package therapist implements the conversation orchestrator: a fixed
// three-stage pipeline that retrieves long-term memories, generates a reply
// and writes new memories, with checkpointed history per session.
//
// The therapist initializes from configuration via New, creating the
// completion provider, memory provider and checkpoint store internally.
// Functional options replace any of them, which is how tests inject fakes.
//
//	t, err := therapist.New(&cfg)
//	result := t.Respond(ctx, "I feel anxious today", history, userID, sessionID)
//	history = result.History
package therapist

import (
	"context"
	"fmt"
	"time"

	"github.com/tailored-agentic-units/therapy/checkpoint"
	"github.com/tailored-agentic-units/therapy/core/protocol"
	"github.com/tailored-agentic-units/therapy/llm"
	"github.com/tailored-agentic-units/therapy/memory"
	"github.com/tailored-agentic-units/therapy/observability"
	"github.com/tailored-agentic-units/therapy/orchestrate/config"
	"github.com/tailored-agentic-units/therapy/orchestrate/state"
)

// Result holds the outcome of one turn.
type Result struct {
	Reply   string             // Assistant reply, or the fallback apology.
	Success bool               // False when no provider-generated reply was produced.
	History []protocol.Message // Input history plus the user turn and the reply.
}

// Option configures a Therapist after config-driven initialization.
type Option func(*Therapist)

// WithCompleter overrides the config-created completion provider.
func WithCompleter(c llm.Completer) Option {
	return func(t *Therapist) { t.completer = c }
}

// WithMemoryProvider overrides the config-created memory provider. A nil
// provider disables long-term memory.
func WithMemoryProvider(p memory.Provider) Option {
	return func(t *Therapist) { t.provider = p }
}

// WithCheckpointStore overrides the config-created checkpoint store. A nil
// store disables persistence.
func WithCheckpointStore(s state.CheckpointStore) Option {
	return func(t *Therapist) { t.checkpoints = s }
}

// WithObserver overrides the observer named in the graph config.
func WithObserver(o observability.Observer) Option {
	return func(t *Therapist) { t.observer = o }
}

// Therapist runs conversation turns. It holds no per-session state, so one
// Therapist serves any number of sessions. Calls for the same session must
// be serialized by the caller.
type Therapist struct {
	completer   llm.Completer
	provider    memory.Provider
	memory      *memory.Store
	checkpoints state.CheckpointStore
	observer    observability.Observer

	durable   state.StateGraph
	stateless state.StateGraph

	graphConfig config.GraphConfig
	persona     string
	fallback    string
	timeout     time.Duration
	searchLimit int
	window      int
}

// New creates a Therapist from configuration. Options applied after
// initialization can override any subsystem.
func New(cfg *Config, opts ...Option) (*Therapist, error) {
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, err
	}

	observer, err := observability.GetObserver(cfg.Graph.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	completer, err := llm.New(&cfg.Completion)
	if err != nil {
		return nil, fmt.Errorf("failed to create completer: %w", err)
	}

	provider, err := memory.NewProvider(&cfg.Memory)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory provider: %w", err)
	}

	store, err := checkpoint.Open(context.Background(), cfg.Graph.Checkpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint store: %w", err)
	}

	t := &Therapist{
		completer:   completer,
		provider:    provider,
		checkpoints: store,
		observer:    observer,
		graphConfig: cfg.Graph,
		persona:     cfg.Persona,
		fallback:    cfg.Fallback,
		timeout:     timeout,
		searchLimit: cfg.Memory.SearchLimit,
		window:      cfg.Memory.Window,
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.observer == nil {
		t.observer = observability.NoOpObserver{}
	}
	if t.fallback == "" {
		t.fallback = DefaultFallback
	}
	t.memory = memory.NewStore(t.provider, t.observer)

	if t.durable, err = t.buildGraph(t.checkpoints); err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	if t.stateless, err = t.buildGraph(nil); err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	return t, nil
}

// Close releases the checkpoint store.
func (t *Therapist) Close() error {
	return checkpoint.Close(t.checkpoints)
}

// Respond runs one conversation turn.
//
// history is the caller's snapshot of the conversation and is never
// modified; Result.History is the new snapshot to keep. When history is
// empty and a checkpoint exists for sessionID, the checkpointed history is
// used instead, which resumes a session after a restart.
//
// The pipeline runs once with checkpointing and, if that fails, once more
// without it. When both fail the reply is the fallback apology, Success is
// false and the apology is recorded as the assistant turn. Respond never
// returns an error: memory and checkpoint failures degrade silently.
func (t *Therapist) Respond(ctx context.Context, text string, history []protocol.Message, userID, sessionID string) Result {
	start := time.Now()

	if len(history) == 0 {
		if restored, ok := t.Resume(ctx, sessionID); ok {
			history = restored

			t.observer.OnEvent(ctx, observability.Event{
				Type:      EventHistoryRestore,
				Level:     observability.LevelInfo,
				Timestamp: time.Now(),
				Source:    "therapist.Respond",
				Data:      map[string]any{"session_id": sessionID, "messages": len(restored)},
			})
		}
	}

	t.observer.OnEvent(ctx, observability.Event{
		Type:      EventRespondStart,
		Level:     observability.LevelInfo,
		Timestamp: start,
		Source:    "therapist.Respond",
		Data: map[string]any{
			"user_id":        userID,
			"session_id":     sessionID,
			"history_length": len(history),
			"text_length":    len(text),
		},
	})

	initial := state.New(t.observer, userID, sessionID).
		WithMessages(history...).
		WithMessages(protocol.Human(text))

	result, err := t.run(ctx, initial)
	if err != nil {
		t.observer.OnEvent(ctx, observability.Event{
			Type:      EventFallback,
			Level:     observability.LevelError,
			Timestamp: time.Now(),
			Source:    "therapist.Respond",
			Data:      map[string]any{"session_id": sessionID, "error": err.Error()},
		})

		result = Result{
			Reply:   t.fallback,
			Success: false,
			History: append(protocol.Clone(initial.Messages), protocol.Assistant(t.fallback)),
		}
	}

	t.persist(ctx, userID, sessionID, result.History)

	t.observer.OnEvent(ctx, observability.Event{
		Type:      EventRespondComplete,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "therapist.Respond",
		Data: map[string]any{
			"session_id":     sessionID,
			"success":        result.Success,
			"history_length": len(result.History),
			"duration_ms":    time.Since(start).Milliseconds(),
		},
	})

	return result
}

// run executes the pipeline with the two-tier retry.
func (t *Therapist) run(ctx context.Context, initial state.State) (Result, error) {
	graph := t.stateless
	if t.checkpoints != nil && initial.SessionID != "" {
		graph = t.durable
	}

	final, err := graph.Execute(ctx, initial)
	if err != nil {
		t.observer.OnEvent(ctx, observability.Event{
			Type:      EventRetry,
			Level:     observability.LevelWarning,
			Timestamp: time.Now(),
			Source:    "therapist.Respond",
			Data:      map[string]any{"session_id": initial.SessionID, "error": err.Error()},
		})

		final, err = t.stateless.Execute(ctx, initial)
		if err != nil {
			return Result{}, err
		}
	}

	reply, ok := protocol.Last(final.Messages, protocol.RoleAssistant)
	if !ok {
		return Result{}, fmt.Errorf("pipeline produced no reply")
	}

	return Result{
		Reply:   reply.Content,
		Success: true,
		History: protocol.Clone(final.Messages),
	}, nil
}

// persist saves the final history for sessionID. Failures are reported as
// events only.
func (t *Therapist) persist(ctx context.Context, userID, sessionID string, history []protocol.Message) {
	if t.checkpoints == nil || sessionID == "" || !t.graphConfig.Checkpoint.Preserve() {
		return
	}

	callCtx, cancel := t.callContext(ctx)
	defer cancel()

	err := t.checkpoints.Save(callCtx, state.Checkpoint{
		SessionID: sessionID,
		UserID:    userID,
		Node:      NodeStoreMemories,
		Messages:  history,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.observer.OnEvent(ctx, observability.Event{
			Type:      EventCheckpointError,
			Level:     observability.LevelWarning,
			Timestamp: time.Now(),
			Source:    "therapist.Respond",
			Data:      map[string]any{"session_id": sessionID, "error": err.Error()},
		})
	}
}

// Resume returns the persisted history for sessionID. It reports false when
// persistence is disabled, the session is unknown, or loading fails.
//
// A checkpoint taken before store_memories belongs to a turn that was
// interrupted mid-pipeline. That turn is finished from the node after the
// checkpoint before the history is returned; if finishing fails the
// history is returned as it was checkpointed.
func (t *Therapist) Resume(ctx context.Context, sessionID string) ([]protocol.Message, bool) {
	if t.checkpoints == nil || sessionID == "" {
		return nil, false
	}

	callCtx, cancel := t.callContext(ctx)
	cp, err := t.checkpoints.Load(callCtx, sessionID)
	cancel()
	if err != nil {
		return nil, false
	}

	if !interrupted(cp.Node) {
		return protocol.Clone(cp.Messages), true
	}

	final, err := t.durable.Resume(ctx, sessionID)

	data := map[string]any{"session_id": sessionID, "node": cp.Node}
	level := observability.LevelInfo
	if err != nil {
		data["error"] = err.Error()
		level = observability.LevelWarning
	}
	t.observer.OnEvent(ctx, observability.Event{
		Type:      EventTurnRecover,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "therapist.Resume",
		Data:      data,
	})

	if err != nil {
		return protocol.Clone(cp.Messages), true
	}
	return protocol.Clone(final.Messages), true
}

func interrupted(node string) bool {
	return node == NodeRetrieveMemories || node == NodeGenerateReply
}

// Clear deletes the persisted history for sessionID.
func (t *Therapist) Clear(ctx context.Context, sessionID string) error {
	if t.checkpoints == nil || sessionID == "" {
		return nil
	}
	return t.checkpoints.Delete(ctx, sessionID)
}

// Sessions lists the session ids with persisted history.
func (t *Therapist) Sessions(ctx context.Context) ([]string, error) {
	if t.checkpoints == nil {
		return []string{}, nil
	}
	return t.checkpoints.List(ctx)
}

func (t *Therapist) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.timeout > 0 {
		return context.WithTimeout(ctx, t.timeout)
	}
	return context.WithCancel(ctx)
}
