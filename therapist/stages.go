package therapist

import (
	"context"
	"fmt"
	"strings"

	"github.com/tailored-agentic-units/therapy/core/protocol"
	"github.com/tailored-agentic-units/therapy/llm"
	"github.com/tailored-agentic-units/therapy/orchestrate/state"
)

// Pipeline node names, in execution order.
const (
	NodeRetrieveMemories = "retrieve_memories"
	NodeGenerateReply    = "generate_reply"
	NodeStoreMemories    = "store_memories"
)

const memoryPreamble = "Previous conversation memories about this user:\n"

const memoryGuidance = "Use this context to provide more personalized and contextual responses. " +
	"Remember details about the user's previous sessions, concerns, and progress."

// retrieveMemories searches long-term memory with the latest user turn and
// returns the hits as a single transient system turn. It never fails.
func (t *Therapist) retrieveMemories(ctx context.Context, s state.State) (state.Update, error) {
	query, ok := protocol.Last(s.Messages, protocol.RoleUser)
	if !ok || strings.TrimSpace(query.Content) == "" {
		return state.Update{}, nil
	}

	callCtx, cancel := t.callContext(ctx)
	defer cancel()

	texts, ok := t.memory.Search(callCtx, query.Content, s.UserID, t.searchLimit).Get()
	if !ok || len(texts) == 0 {
		return state.Update{}, nil
	}

	return state.Update{Context: []protocol.Message{memoryContext(texts)}}, nil
}

func memoryContext(texts []string) protocol.Message {
	return protocol.System(memoryPreamble + strings.Join(texts, "\n") + "\n\n" + memoryGuidance)
}

// generateReply asks the completion provider for the next assistant turn.
// The provider sees the persona, any memory context, then the conversation.
func (t *Therapist) generateReply(ctx context.Context, s state.State) (state.Update, error) {
	transcript := make([]protocol.Message, 0, len(s.Context)+len(s.Messages)+1)
	if t.persona != "" {
		transcript = append(transcript, protocol.System(t.persona))
	}
	transcript = append(transcript, s.Transcript()...)

	callCtx, cancel := t.callContext(ctx)
	defer cancel()

	reply := llm.Complete(callCtx, t.completer, transcript)
	if !reply.IsOk() {
		return state.Update{}, fmt.Errorf("generate reply: %w", reply.Error())
	}

	return state.Update{Messages: []protocol.Message{reply.Value}}, nil
}

// storeMemories writes the most recent turns back to long-term memory.
// Failures are reported by the memory store's events and otherwise ignored.
func (t *Therapist) storeMemories(ctx context.Context, s state.State) (state.Update, error) {
	if !t.memory.Available() {
		return state.Update{}, nil
	}

	text := renderTurns(protocol.Window(s.Messages, t.window))
	if text == "" {
		return state.Update{}, nil
	}

	callCtx, cancel := t.callContext(ctx)
	defer cancel()

	t.memory.Add(callCtx, text, s.UserID)
	return state.Update{}, nil
}

// renderTurns formats user and assistant turns as "User: ..." and
// "Therapist: ..." lines. Other roles are skipped.
func renderTurns(messages []protocol.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case protocol.RoleUser:
			b.WriteString("User: " + msg.Content + "\n")
		case protocol.RoleAssistant:
			b.WriteString("Therapist: " + msg.Content + "\n")
		}
	}
	return b.String()
}

func (t *Therapist) buildGraph(store state.CheckpointStore) (state.StateGraph, error) {
	graph, err := state.NewGraphWithDeps(t.graphConfig, t.observer, store)
	if err != nil {
		return nil, err
	}

	// Each edge requires the turn its source node leaves behind: the user
	// turn is still last after retrieval, the reply is last after generation.
	nodes := []struct {
		name  string
		fn    func(context.Context, state.State) (state.Update, error)
		entry state.TransitionPredicate
	}{
		{NodeRetrieveMemories, t.retrieveMemories, nil},
		{NodeGenerateReply, t.generateReply, state.LastRoleIs(protocol.RoleUser)},
		{NodeStoreMemories, t.storeMemories, state.LastRoleIs(protocol.RoleAssistant)},
	}

	for i, n := range nodes {
		if err := graph.AddNode(n.name, state.NewFunctionNode(n.fn)); err != nil {
			return nil, err
		}
		if i > 0 {
			if err := graph.AddEdge(nodes[i-1].name, n.name, n.entry); err != nil {
				return nil, err
			}
		}
	}

	if err := graph.SetEntryPoint(NodeRetrieveMemories); err != nil {
		return nil, err
	}
	if err := graph.SetExitPoint(NodeStoreMemories); err != nil {
		return nil, err
	}

	return graph, nil
}
