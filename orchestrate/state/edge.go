package state

import "github.com/tailored-agentic-units/therapy/core/protocol"

// Edge represents a transition between nodes in a state graph.
//
// The optional Predicate determines whether the transition should occur
// based on current state.
type Edge struct {
	// From is the source node name
	From string

	// To is the destination node name
	To string

	// Name is an optional identifier for the edge, typically describing the
	// predicate being evaluated (e.g., "hasReply")
	Name string

	// Predicate determines if this edge can be traversed (nil = always transition)
	Predicate TransitionPredicate
}

// TransitionPredicate evaluates state to determine if an edge can be traversed.
type TransitionPredicate func(state State) bool

// AlwaysTransition returns a predicate that always evaluates to true.
func AlwaysTransition() TransitionPredicate {
	return func(state State) bool { return true }
}

// LastRoleIs returns a predicate that checks the role of the most recent
// canonical message.
//
// Example:
//
//	graph.AddEdge("generate_reply", "store_memories", state.LastRoleIs(protocol.RoleAssistant))
func LastRoleIs(role protocol.Role) TransitionPredicate {
	return func(state State) bool {
		n := len(state.Messages)
		return n > 0 && state.Messages[n-1].Role == role
	}
}
