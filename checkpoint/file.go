package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/tailored-agentic-units/therapy/orchestrate/state"
)

const fileExt = ".json"

type fileStore struct {
	root string
	mu   sync.RWMutex
}

// NewFileStore creates a CheckpointStore that keeps one JSON file per
// session under root. Session ids are path-escaped to form file names.
func NewFileStore(root string) (state.CheckpointStore, error) {
	if root == "" {
		return nil, ErrPathRequired
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}
	return &fileStore{root: root}, nil
}

func (s *fileStore) path(sessionID string) string {
	return filepath.Join(s.root, url.PathEscape(sessionID)+fileExt)
}

func (s *fileStore) Save(_ context.Context, cp state.Checkpoint) error {
	if cp.SessionID == "" {
		return state.ErrMissingSessionID
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, cp.SessionID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, cp.SessionID, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, cp.SessionID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, cp.SessionID, err)
	}

	if err := os.Rename(tmpName, s.path(cp.SessionID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, cp.SessionID, err)
	}

	return nil
}

func (s *fileStore) Load(_ context.Context, sessionID string) (state.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return state.Checkpoint{}, fmt.Errorf("%w: %s", state.ErrCheckpointNotFound, sessionID)
		}
		return state.Checkpoint{}, fmt.Errorf("%w: %s: %v", ErrLoadFailed, sessionID, err)
	}

	var cp state.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return state.Checkpoint{}, fmt.Errorf("%w: %s: %v", ErrLoadFailed, sessionID, err)
	}
	return cp, nil
}

func (s *fileStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(sessionID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete failed: %s: %w", sessionID, err)
	}
	return nil
}

func (s *fileStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
			continue
		}
		id, err := url.PathUnescape(strings.TrimSuffix(name, fileExt))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
