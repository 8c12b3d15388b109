package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/therapy/core/protocol"
)

type memorySession struct {
	id       string
	userID   string
	messages []protocol.Message
	mu       sync.RWMutex
}

// NewMemorySession creates a Session backed by an in-memory slice.
// An empty id is replaced with a UUIDv7.
func NewMemorySession(id, userID string) Session {
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
	}
	return &memorySession{id: id, userID: userID}
}

func (s *memorySession) ID() string {
	return s.id
}

func (s *memorySession) UserID() string {
	return s.userID
}

func (s *memorySession) AddMessage(msg protocol.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

func (s *memorySession) Messages() []protocol.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return protocol.Clone(s.messages)
}

func (s *memorySession) Replace(messages []protocol.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = protocol.Clone(messages)
}

func (s *memorySession) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}
