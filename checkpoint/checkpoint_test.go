package checkpoint_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tailored-agentic-units/therapy/checkpoint"
	"github.com/tailored-agentic-units/therapy/core/protocol"
	"github.com/tailored-agentic-units/therapy/orchestrate/config"
	"github.com/tailored-agentic-units/therapy/orchestrate/state"
)

func backends(t *testing.T) map[string]state.CheckpointStore {
	t.Helper()
	ctx := context.Background()

	file, err := checkpoint.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}

	sqlite, err := checkpoint.NewSQLiteStore(ctx, ":memory:")
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	cached, err := checkpoint.NewCachedStore(state.NewMemoryCheckpointStore(), 16)
	if err != nil {
		t.Fatalf("cached store: %v", err)
	}
	t.Cleanup(func() { cached.Close() })

	return map[string]state.CheckpointStore{
		"file":   file,
		"sqlite": sqlite,
		"cached": cached,
	}
}

func sampleCheckpoint(sessionID string, contents ...string) state.Checkpoint {
	msgs := make([]protocol.Message, 0, len(contents))
	for i, c := range contents {
		if i%2 == 0 {
			msgs = append(msgs, protocol.Human(c))
		} else {
			msgs = append(msgs, protocol.Assistant(c))
		}
	}
	return state.Checkpoint{
		SessionID: sessionID,
		UserID:    "alice_1a2b3c4d",
		Node:      "store_memories",
		Messages:  msgs,
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStores_SaveLoad(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			cp := sampleCheckpoint("session_alice_1a2b3c4d_9f8e7d6c", "I had a rough week.", "I'm sorry to hear that.")

			if err := store.Save(ctx, cp); err != nil {
				t.Fatalf("save failed: %v", err)
			}

			loaded, err := store.Load(ctx, cp.SessionID)
			if err != nil {
				t.Fatalf("load failed: %v", err)
			}

			if loaded.UserID != cp.UserID || loaded.Node != cp.Node {
				t.Errorf("metadata mismatch: %+v", loaded)
			}
			if len(loaded.Messages) != 2 {
				t.Fatalf("expected 2 messages, got %d", len(loaded.Messages))
			}
			if loaded.Messages[1].Role != protocol.RoleAssistant || loaded.Messages[1].Content != "I'm sorry to hear that." {
				t.Errorf("unexpected message: %+v", loaded.Messages[1])
			}
			if !loaded.Timestamp.Equal(cp.Timestamp) {
				t.Errorf("expected timestamp %v, got %v", cp.Timestamp, loaded.Timestamp)
			}
		})
	}
}

func TestStores_Overwrite(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			store.Save(ctx, sampleCheckpoint("s", "one"))
			store.Save(ctx, sampleCheckpoint("s", "one", "two", "three"))

			loaded, err := store.Load(ctx, "s")
			if err != nil {
				t.Fatalf("load failed: %v", err)
			}
			if len(loaded.Messages) != 3 {
				t.Errorf("expected last write with 3 messages, got %d", len(loaded.Messages))
			}
		})
	}
}

func TestStores_NotFound(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load(context.Background(), "missing")
			if !errors.Is(err, state.ErrCheckpointNotFound) {
				t.Errorf("expected ErrCheckpointNotFound, got %v", err)
			}
		})
	}
}

func TestStores_RequireSessionID(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Save(context.Background(), state.Checkpoint{})
			if !errors.Is(err, state.ErrMissingSessionID) {
				t.Errorf("expected ErrMissingSessionID, got %v", err)
			}
		})
	}
}

func TestStores_DeleteAndList(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			store.Save(ctx, sampleCheckpoint("session_bob/2", "hi"))
			store.Save(ctx, sampleCheckpoint("session_amy", "hi"))

			ids, err := store.List(ctx)
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if len(ids) != 2 || ids[0] != "session_amy" || ids[1] != "session_bob/2" {
				t.Errorf("expected [session_amy session_bob/2], got %v", ids)
			}

			if err := store.Delete(ctx, "session_bob/2"); err != nil {
				t.Fatalf("delete failed: %v", err)
			}
			if err := store.Delete(ctx, "never-saved"); err != nil {
				t.Errorf("deleting a missing checkpoint should not fail: %v", err)
			}

			if _, err := store.Load(ctx, "session_bob/2"); !errors.Is(err, state.ErrCheckpointNotFound) {
				t.Errorf("expected deleted checkpoint to be gone, got %v", err)
			}
		})
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "therapy.db")

	first, err := checkpoint.NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := first.Save(ctx, sampleCheckpoint("s", "hello")); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	first.Close()

	second, err := checkpoint.NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	loaded, err := second.Load(ctx, "s")
	if err != nil {
		t.Fatalf("load after reopen failed: %v", err)
	}
	if len(loaded.Messages) != 1 || loaded.Messages[0].Content != "hello" {
		t.Errorf("unexpected messages: %+v", loaded.Messages)
	}
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, _ := checkpoint.NewFileStore(dir)
	first.Save(ctx, sampleCheckpoint("s", "hello"))

	second, _ := checkpoint.NewFileStore(dir)
	loaded, err := second.Load(ctx, "s")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded.Messages) != 1 {
		t.Errorf("expected 1 message, got %d", len(loaded.Messages))
	}
}

func TestPathRequired(t *testing.T) {
	if _, err := checkpoint.NewFileStore(""); !errors.Is(err, checkpoint.ErrPathRequired) {
		t.Errorf("file: expected ErrPathRequired, got %v", err)
	}
	if _, err := checkpoint.NewSQLiteStore(context.Background(), ""); !errors.Is(err, checkpoint.ErrPathRequired) {
		t.Errorf("sqlite: expected ErrPathRequired, got %v", err)
	}
}

type countingStore struct {
	state.CheckpointStore
	loads int
}

func (c *countingStore) Load(ctx context.Context, sessionID string) (state.Checkpoint, error) {
	c.loads++
	return c.CheckpointStore.Load(ctx, sessionID)
}

func TestCachedStore_ServesReadsFromCache(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{CheckpointStore: state.NewMemoryCheckpointStore()}

	cached, err := checkpoint.NewCachedStore(backing, 8)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer cached.Close()

	if err := cached.Save(ctx, sampleCheckpoint("s", "hello")); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for range 3 {
		if _, err := cached.Load(ctx, "s"); err != nil {
			t.Fatalf("load failed: %v", err)
		}
	}

	if backing.loads != 0 {
		t.Errorf("expected cached reads, backing store loaded %d times", backing.loads)
	}

	cached.Delete(ctx, "s")
	if _, err := cached.Load(ctx, "s"); !errors.Is(err, state.ErrCheckpointNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     config.CheckpointConfig
		wantNil bool
		wantErr bool
	}{
		{name: "disabled", cfg: config.CheckpointConfig{Store: "none"}, wantNil: true},
		{name: "empty", cfg: config.CheckpointConfig{}, wantNil: true},
		{name: "memory", cfg: config.CheckpointConfig{Store: "memory"}},
		{name: "file", cfg: config.CheckpointConfig{Store: "file", Path: filepath.Join(dir, "cp")}},
		{name: "file without path", cfg: config.CheckpointConfig{Store: "file"}, wantErr: true},
		{name: "sqlite", cfg: config.CheckpointConfig{Store: "sqlite", Path: filepath.Join(dir, "t.db")}},
		{name: "cached sqlite", cfg: config.CheckpointConfig{Store: "sqlite", Path: ":memory:", CacheSize: 32}},
		{name: "registry", cfg: config.CheckpointConfig{Store: "memory-registered"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := checkpoint.Open(ctx, tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer checkpoint.Close(store)

			if tt.wantNil {
				if store != nil {
					t.Errorf("expected nil store, got %T", store)
				}
				return
			}

			if err := store.Save(ctx, sampleCheckpoint("s", "hi")); err != nil {
				t.Errorf("save through opened store failed: %v", err)
			}
		})
	}
}

func TestOpen_Registered(t *testing.T) {
	custom := state.NewMemoryCheckpointStore()
	state.RegisterCheckpointStore("clinic", custom)

	store, err := checkpoint.Open(context.Background(), config.CheckpointConfig{Store: "clinic"})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if store != custom {
		t.Error("expected registered store to be returned")
	}
}
