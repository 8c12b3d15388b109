package state

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/tailored-agentic-units/therapy/core/protocol"
)

// Checkpoint is the persisted form of a conversation: one row per session,
// overwritten on every save.
type Checkpoint struct {
	SessionID string             `json:"session_id"`
	UserID    string             `json:"user_id"`
	Node      string             `json:"node"`
	Messages  []protocol.Message `json:"messages"`
	Timestamp time.Time          `json:"timestamp"`
}

// CheckpointStore provides durable conversation history keyed by session id.
//
// Checkpoint lifecycle:
//  1. Graph execution saves State after configured node intervals via Save
//  2. The orchestrator saves the final history after every turn
//  3. Load restores a session when a user resumes it
//  4. Delete is the only way a checkpoint is removed (manual clear)
//
// Implementations must be safe for concurrent use. Writes are
// last-writer-wins per session.
type CheckpointStore interface {
	// Save persists cp under cp.SessionID, replacing any previous checkpoint.
	Save(ctx context.Context, cp Checkpoint) error

	// Load retrieves the checkpoint for sessionID.
	// Returns ErrCheckpointNotFound if none exists.
	Load(ctx context.Context, sessionID string) (Checkpoint, error)

	// Delete removes the checkpoint for sessionID.
	// No error if the checkpoint doesn't exist.
	Delete(ctx context.Context, sessionID string) error

	// List returns all session ids with stored checkpoints.
	List(ctx context.Context) ([]string, error)
}

// memoryCheckpointStore implements CheckpointStore with in-memory storage.
// Checkpoints are lost when the process terminates.
type memoryCheckpointStore struct {
	checkpoints map[string]Checkpoint
	mu          sync.RWMutex
}

// NewMemoryCheckpointStore creates a CheckpointStore with in-memory storage.
//
// The memory store is registered by default as "memory":
//
//	cfg := config.DefaultGraphConfig("therapy")
//	cfg.Checkpoint.Store = "memory"
//	cfg.Checkpoint.Interval = 1
func NewMemoryCheckpointStore() CheckpointStore {
	return &memoryCheckpointStore{
		checkpoints: make(map[string]Checkpoint),
	}
}

func (m *memoryCheckpointStore) Save(_ context.Context, cp Checkpoint) error {
	if cp.SessionID == "" {
		return ErrMissingSessionID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp.Messages = slices.Clone(cp.Messages)
	m.checkpoints[cp.SessionID] = cp
	return nil
}

func (m *memoryCheckpointStore) Load(_ context.Context, sessionID string) (Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cp, exists := m.checkpoints[sessionID]
	if !exists {
		return Checkpoint{}, fmt.Errorf("%w: %s", ErrCheckpointNotFound, sessionID)
	}
	cp.Messages = slices.Clone(cp.Messages)
	return cp, nil
}

func (m *memoryCheckpointStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.checkpoints, sessionID)
	return nil
}

func (m *memoryCheckpointStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.checkpoints))
	for id := range m.checkpoints {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// checkpointStores is the global registry of named CheckpointStore implementations.
//
// The "memory" store is registered by default. Durable backends are built by
// the checkpoint package; custom stores can be added via RegisterCheckpointStore.
var (
	checkpointStores = map[string]CheckpointStore{
		"memory": NewMemoryCheckpointStore(),
	}
	mutex sync.RWMutex
)

// GetCheckpointStore retrieves a CheckpointStore by name from the registry.
//
// Example:
//
//	store, err := state.GetCheckpointStore("memory")
//	if err != nil {
//	    log.Fatal(err)
//	}
func GetCheckpointStore(name string) (CheckpointStore, error) {
	mutex.RLock()
	defer mutex.RUnlock()

	store, exists := checkpointStores[name]
	if !exists {
		return nil, fmt.Errorf("unknown checkpoint store: %s", name)
	}
	return store, nil
}

// RegisterCheckpointStore adds a named CheckpointStore to the global registry.
//
// Example:
//
//	store, _ := checkpoint.NewSQLiteStore(ctx, "therapy.db")
//	state.RegisterCheckpointStore("clinic", store)
func RegisterCheckpointStore(name string, store CheckpointStore) {
	mutex.Lock()
	defer mutex.Unlock()

	checkpointStores[name] = store
}
