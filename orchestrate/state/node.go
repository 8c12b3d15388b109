package state

import (
	"context"

	"github.com/tailored-agentic-units/therapy/core/protocol"
)

// Update is the partial state a node returns. The graph merges it into the
// running State with State.Apply: Messages extend the canonical history and
// Context extends the transient turns. The zero Update changes nothing.
type Update struct {
	Messages []protocol.Message
	Context  []protocol.Message
}

// IsEmpty reports whether the update carries no turns.
func (u Update) IsEmpty() bool {
	return len(u.Messages) == 0 && len(u.Context) == 0
}

// StateNode represents a computation step in a state graph.
//
// Nodes receive the current state, call whatever collaborator they wrap, and
// return the partial update to merge.
type StateNode interface {
	// Execute computes an update from state.
	// Context enables cancellation/timeouts.
	Execute(ctx context.Context, state State) (Update, error)
}

// FunctionNode wraps a function as a StateNode.
type FunctionNode struct {
	fn func(ctx context.Context, state State) (Update, error)
}

// NewFunctionNode creates a StateNode from a function.
//
// Example:
//
//	node := state.NewFunctionNode(func(ctx context.Context, s state.State) (state.Update, error) {
//	    reply, err := completer.Complete(ctx, s.Transcript())
//	    if err != nil {
//	        return state.Update{}, err
//	    }
//	    return state.Update{Messages: []protocol.Message{reply}}, nil
//	})
func NewFunctionNode(fn func(context.Context, State) (Update, error)) StateNode {
	return &FunctionNode{fn: fn}
}

// Execute runs the wrapped function with the given state.
func (n *FunctionNode) Execute(ctx context.Context, state State) (Update, error) {
	return n.fn(ctx, state)
}
