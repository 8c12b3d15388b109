package identity

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFile is the identity file name used by the CLI.
const DefaultFile = "user_identity.txt"

// Save writes userID to path, replacing any previous identity.
func Save(path, userID string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".identity-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(userID); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write identity: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close identity: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}

// Load reads the user id stored at path. A missing file yields ("", nil).
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load identity: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
