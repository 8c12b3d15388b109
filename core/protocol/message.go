// Package protocol defines the conversation turn model shared by every
// subsystem: the pipeline stages, checkpoint stores, completion providers
// and transports.
package protocol

import "slices"

// Role identifies the sender of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single conversation turn. Messages are values; once created
// they are copied, never mutated in place.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a Message with the given role and content.
//
// Example:
//
//	msg := protocol.NewMessage(protocol.RoleUser, "I had a rough week.")
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// System creates a system turn.
func System(content string) Message {
	return NewMessage(RoleSystem, content)
}

// Human creates a user turn.
func Human(content string) Message {
	return NewMessage(RoleUser, content)
}

// Assistant creates an assistant turn.
func Assistant(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// Clone returns an independent copy of history. A nil input yields an empty,
// non-nil slice so callers can append without aliasing.
func Clone(history []Message) []Message {
	if history == nil {
		return []Message{}
	}
	return slices.Clone(history)
}

// Last returns the most recent message with the given role, scanning from
// the end of history.
func Last(history []Message, role Role) (Message, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == role {
			return history[i], true
		}
	}
	return Message{}, false
}

// Window returns the last n messages of history (all of them when fewer
// than n exist). The result shares no storage with history.
func Window(history []Message, n int) []Message {
	if n <= 0 {
		return []Message{}
	}
	start := max(len(history)-n, 0)
	return slices.Clone(history[start:])
}
