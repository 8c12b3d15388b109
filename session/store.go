package session

import (
	"sort"
	"sync"
)

// Store tracks live sessions by id for long-running front ends.
type Store struct {
	sessions map[string]Session
	mu       sync.RWMutex
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]Session)}
}

// Open returns the session for id, creating an in-memory session owned by
// userID when none exists. The second result reports whether it was created.
func (s *Store) Open(id, userID string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, exists := s.sessions[id]; exists {
		return sess, false
	}

	sess := NewMemorySession(id, userID)
	s.sessions[sess.ID()] = sess
	return sess, true
}

// Get returns the session for id.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, exists := s.sessions[id]
	return sess, exists
}

// Close forgets the session for id.
func (s *Store) Close(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// IDs returns the ids of all live sessions, sorted.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
