// Package identity mints user and session identifiers and persists the
// returning user's identity between runs.
//
// User ids have the form "<name>_<suffix>" and session ids the form
// "session_<user_id>_<suffix>", where suffix is the first eight hex
// characters of a random UUID. Ids are opaque afterwards: resuming accepts
// any id as-is.
package identity

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// SuffixLength is the number of hex characters appended to minted ids.
const SuffixLength = 8

var ErrEmptyName = errors.New("user name is empty")

// Manager mints identifiers. The zero value is not usable; use NewManager.
type Manager struct {
	suffix func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithSuffix replaces the random suffix source.
func WithSuffix(fn func() string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.suffix = fn
		}
	}
}

// NewManager creates a Manager using random UUID suffixes.
func NewManager(opts ...Option) *Manager {
	m := &Manager{suffix: RandomSuffix}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RandomSuffix returns the first SuffixLength characters of a v4 UUID.
func RandomSuffix() string {
	return uuid.New().String()[:SuffixLength]
}

// CreateUser returns a new user id for name. Surrounding whitespace is
// trimmed; a blank name is rejected with ErrEmptyName.
func (m *Manager) CreateUser(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	return name + "_" + m.suffix(), nil
}

// CreateSession returns a new session id for userID.
func (m *Manager) CreateSession(userID string) string {
	return "session_" + userID + "_" + m.suffix()
}

// OwnsSession reports whether sessionID was created for userID.
func OwnsSession(userID, sessionID string) bool {
	return userID != "" && strings.HasPrefix(sessionID, "session_"+userID+"_")
}

// Resume returns userID unchanged. No registry exists to check it against.
func (m *Manager) Resume(userID string) string {
	return userID
}
