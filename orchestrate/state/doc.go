// Package state provides the conversation state graph: immutable state,
// nodes that return partial updates, predicate edges, and a checkpointing
// executor.
//
// # State
//
// State holds the canonical conversation (Messages), transient turns that
// only live for one run (Context), and the identity of the conversation
// (UserID, SessionID). Operations never modify the receiver:
//
//	s := state.New(observer, userID, sessionID)
//	s = s.WithMessages(protocol.Human("I couldn't sleep again."))
//
// # Nodes and Updates
//
// A StateNode returns an Update rather than a whole State. The executor
// merges it with State.Apply, appending Messages and Context in order:
//
//	node := state.NewFunctionNode(func(ctx context.Context, s state.State) (state.Update, error) {
//	    return state.Update{Context: []protocol.Message{protocol.System(summary)}}, nil
//	})
//
// # Checkpointing
//
// With Checkpoint.Interval > 0 and a CheckpointStore attached, the executor
// saves the merged State under its SessionID after every Interval nodes.
// Checkpoints hold only canonical Messages. Resume restarts a session from
// the node after its last checkpoint.
package state
