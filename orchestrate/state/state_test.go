package state_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/tailored-agentic-units/therapy/core/protocol"
	"github.com/tailored-agentic-units/therapy/observability"
	"github.com/tailored-agentic-units/therapy/orchestrate/state"
)

type captureObserver struct {
	events []observability.Event
}

func (c *captureObserver) OnEvent(ctx context.Context, event observability.Event) {
	c.events = append(c.events, event)
}

func TestState_New(t *testing.T) {
	tests := []struct {
		name     string
		observer observability.Observer
	}{
		{name: "with NoOpObserver", observer: observability.NoOpObserver{}},
		{name: "with nil observer", observer: nil},
		{name: "with capture observer", observer: &captureObserver{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := state.New(tt.observer, "alice_1a2b3c4d", "session_alice_1a2b3c4d_9f8e7d6c")

			if len(s.Messages) != 0 {
				t.Errorf("expected empty history, got %d messages", len(s.Messages))
			}
			if s.UserID != "alice_1a2b3c4d" {
				t.Errorf("expected user id alice_1a2b3c4d, got %s", s.UserID)
			}
			if s.SessionID != "session_alice_1a2b3c4d_9f8e7d6c" {
				t.Errorf("unexpected session id %s", s.SessionID)
			}
			if s.RunID == "" {
				t.Error("expected run id to be assigned")
			}
			if s.Observer == nil {
				t.Error("expected observer to be set")
			}
		})
	}
}

func TestState_New_EmitsEvent(t *testing.T) {
	observer := &captureObserver{}
	state.New(observer, "u", "s")

	if len(observer.events) != 1 {
		t.Fatalf("New() emitted %d events, want 1", len(observer.events))
	}
	if observer.events[0].Type != state.EventStateCreate {
		t.Errorf("New() emitted event type %v, want %v", observer.events[0].Type, state.EventStateCreate)
	}
}

func TestState_WithMessages_IsImmutable(t *testing.T) {
	s1 := state.New(nil, "u", "s").WithMessages(protocol.Human("hello"))
	s2 := s1.WithMessages(protocol.Assistant("hi"))

	if len(s1.Messages) != 1 {
		t.Errorf("original state modified, has %d messages", len(s1.Messages))
	}
	if len(s2.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(s2.Messages))
	}
}

func TestState_Apply(t *testing.T) {
	observer := &captureObserver{}
	s := state.New(observer, "u", "s").WithMessages(protocol.Human("I feel anxious"))
	observer.events = nil

	merged := s.Apply(state.Update{
		Context:  []protocol.Message{protocol.System("memories")},
		Messages: []protocol.Message{protocol.Assistant("Tell me more.")},
	})

	if len(merged.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(merged.Messages))
	}
	if merged.Messages[1].Content != "Tell me more." {
		t.Errorf("unexpected last message %q", merged.Messages[1].Content)
	}
	if len(merged.Context) != 1 {
		t.Errorf("expected 1 context turn, got %d", len(merged.Context))
	}
	if len(s.Messages) != 1 || len(s.Context) != 0 {
		t.Error("Apply modified the original state")
	}

	found := false
	for _, e := range observer.events {
		if e.Type == state.EventStateMerge {
			found = true
		}
	}
	if !found {
		t.Error("expected merge event")
	}
}

func TestState_Apply_EmptyUpdate(t *testing.T) {
	s := state.New(nil, "u", "s").WithMessages(protocol.Human("hi"))
	merged := s.Apply(state.Update{})

	if len(merged.Messages) != 1 || len(merged.Context) != 0 {
		t.Errorf("empty update changed state: %+v", merged)
	}
}

func TestState_Clone_IsIndependent(t *testing.T) {
	original := state.New(nil, "u", "s").WithMessages(protocol.Human("hello"))
	cloned := original.Clone()
	cloned.Messages[0].Content = "changed"

	if original.Messages[0].Content != "hello" {
		t.Errorf("clone shares storage with original, got %q", original.Messages[0].Content)
	}
}

func TestState_Transcript(t *testing.T) {
	s := state.New(nil, "u", "s").
		WithMessages(protocol.Human("hello")).
		Apply(state.Update{Context: []protocol.Message{protocol.System("memories")}})

	transcript := s.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(transcript))
	}
	if transcript[0].Role != protocol.RoleSystem {
		t.Errorf("expected context first, got %s", transcript[0].Role)
	}
	if transcript[1].Content != "hello" {
		t.Errorf("expected history second, got %q", transcript[1].Content)
	}
}

func TestState_Context_ExcludedFromJSON(t *testing.T) {
	s := state.New(nil, "u", "s").
		WithMessages(protocol.Human("hello")).
		Apply(state.Update{Context: []protocol.Message{protocol.System("private memory")}})

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	if strings.Contains(string(data), "private memory") {
		t.Errorf("context leaked into JSON: %s", data)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("messages missing from JSON: %s", data)
	}
}

func TestState_Checkpoint_ExcludesContext(t *testing.T) {
	s := state.New(nil, "alice", "session_alice").
		WithMessages(protocol.Human("hello")).
		Apply(state.Update{Context: []protocol.Message{protocol.System("memories")}}).
		SetCheckpointNode("retrieve_memories")

	cp := s.Checkpoint()

	if cp.SessionID != "session_alice" || cp.UserID != "alice" {
		t.Errorf("unexpected identity in checkpoint: %+v", cp)
	}
	if cp.Node != "retrieve_memories" {
		t.Errorf("expected node retrieve_memories, got %s", cp.Node)
	}
	if len(cp.Messages) != 1 {
		t.Errorf("expected 1 message, got %d", len(cp.Messages))
	}
}

func TestFromCheckpoint(t *testing.T) {
	cp := state.Checkpoint{
		SessionID: "session_bob",
		UserID:    "bob",
		Node:      "generate_reply",
		Messages:  []protocol.Message{protocol.Human("hi"), protocol.Assistant("hello")},
	}

	s := state.FromCheckpoint(cp, nil)

	if s.SessionID != "session_bob" || s.UserID != "bob" {
		t.Errorf("identity not restored: %+v", s)
	}
	if s.CheckpointNode != "generate_reply" {
		t.Errorf("expected checkpoint node generate_reply, got %s", s.CheckpointNode)
	}
	if len(s.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(s.Messages))
	}

	cp.Messages[0].Content = "mutated"
	if s.Messages[0].Content != "hi" {
		t.Error("restored state shares storage with checkpoint")
	}
}
