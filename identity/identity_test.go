package identity_test

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/tailored-agentic-units/therapy/identity"
)

func sequence(values ...string) func() string {
	i := 0
	return func() string {
		v := values[i%len(values)]
		i++
		return v
	}
}

func TestManager_Example(t *testing.T) {
	m := identity.NewManager(identity.WithSuffix(sequence("1a2b3c4d", "9f8e7d6c")))

	userID, err := m.CreateUser("alice")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if userID != "alice_1a2b3c4d" {
		t.Errorf("expected alice_1a2b3c4d, got %s", userID)
	}

	sessionID := m.CreateSession(userID)
	if sessionID != "session_alice_1a2b3c4d_9f8e7d6c" {
		t.Errorf("expected session_alice_1a2b3c4d_9f8e7d6c, got %s", sessionID)
	}
}

func TestManager_CreateUser(t *testing.T) {
	m := identity.NewManager(identity.WithSuffix(func() string { return "00000000" }))

	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  error
	}{
		{name: "plain", input: "bob", expected: "bob_00000000"},
		{name: "trimmed", input: "  carol \n", expected: "carol_00000000"},
		{name: "inner spaces kept", input: "Mary Ann", expected: "Mary Ann_00000000"},
		{name: "empty", input: "", wantErr: identity.ErrEmptyName},
		{name: "blank", input: "   ", wantErr: identity.ErrEmptyName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.CreateUser(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestManager_RandomSuffix(t *testing.T) {
	m := identity.NewManager()
	pattern := regexp.MustCompile(`^dana_[0-9a-f]{8}$`)

	first, _ := m.CreateUser("dana")
	second, _ := m.CreateUser("dana")

	if !pattern.MatchString(first) {
		t.Errorf("unexpected user id format: %s", first)
	}
	if first == second {
		t.Errorf("expected distinct ids, got %s twice", first)
	}

	session := m.CreateSession(first)
	if !regexp.MustCompile(`^session_` + first + `_[0-9a-f]{8}$`).MatchString(session) {
		t.Errorf("unexpected session id format: %s", session)
	}
}

func TestManager_Resume(t *testing.T) {
	m := identity.NewManager()

	for _, id := range []string{"alice_1a2b3c4d", "not-a-minted-id", ""} {
		if got := m.Resume(id); got != id {
			t.Errorf("Resume(%q) = %q", id, got)
		}
	}
}

func TestOwnsSession(t *testing.T) {
	tests := []struct {
		userID    string
		sessionID string
		want      bool
	}{
		{"alice_1a2b3c4d", "session_alice_1a2b3c4d_9f8e7d6c", true},
		{"alice_1a2b3c4d", "session_bob_5e6f7a8b_9f8e7d6c", false},
		{"alice", "session_alice_1a2b3c4d_9f8e7d6c", true},
		{"alice_1a2b3c4d", "alice_1a2b3c4d", false},
		{"", "session__9f8e7d6c", false},
	}

	for _, tt := range tests {
		if got := identity.OwnsSession(tt.userID, tt.sessionID); got != tt.want {
			t.Errorf("OwnsSession(%q, %q) = %v, want %v", tt.userID, tt.sessionID, got, tt.want)
		}
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", identity.DefaultFile)

	id, err := identity.Load(path)
	if err != nil || id != "" {
		t.Fatalf("missing file should load empty, got %q, %v", id, err)
	}

	if err := identity.Save(path, "alice_1a2b3c4d"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := identity.Save(path, "bob_00000000"); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	id, err = identity.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if id != "bob_00000000" {
		t.Errorf("expected bob_00000000, got %q", id)
	}
}

func TestLoad_TrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), identity.DefaultFile)
	os.WriteFile(path, []byte("alice_1a2b3c4d\n"), 0o644)

	id, err := identity.Load(path)
	if err != nil || id != "alice_1a2b3c4d" {
		t.Errorf("expected trimmed id, got %q, %v", id, err)
	}
}
