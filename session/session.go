// Package session holds the caller side of a conversation: the transcript a
// front end keeps between turns and hands to the therapist on each turn.
package session

import (
	"github.com/tailored-agentic-units/therapy/core/protocol"
)

// Session holds an ordered sequence of conversation messages for one user.
// Implementations must be safe for concurrent use.
type Session interface {
	// ID returns the session identifier used as the checkpoint key.
	ID() string
	// UserID returns the owner of the session.
	UserID() string
	// AddMessage appends a message to the conversation history.
	AddMessage(msg protocol.Message)
	// Messages returns a defensive copy of the conversation history.
	Messages() []protocol.Message
	// Replace swaps the history for a copy of messages.
	Replace(messages []protocol.Message)
	// Clear resets the conversation history.
	Clear()
}
