package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tailored-agentic-units/therapy/core/protocol"
	"github.com/tailored-agentic-units/therapy/orchestrate/state"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS checkpoints (
	session_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	node TEXT NOT NULL DEFAULT '',
	messages TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteStore keeps one row per session in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and initializes the
// schema. Use ":memory:" for an ephemeral database.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, ErrPathRequired
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// ":memory:" databases exist per connection.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save upserts the checkpoint row for cp.SessionID.
func (s *SQLiteStore) Save(ctx context.Context, cp state.Checkpoint) error {
	if cp.SessionID == "" {
		return state.ErrMissingSessionID
	}

	messages, err := json.Marshal(cp.Messages)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, cp.SessionID, err)
	}

	ts := cp.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (session_id, user_id, node, messages, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   user_id = excluded.user_id,
		   node = excluded.node,
		   messages = excluded.messages,
		   updated_at = excluded.updated_at`,
		cp.SessionID, cp.UserID, cp.Node, string(messages),
		ts.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, cp.SessionID, err)
	}
	return nil
}

// Load reads the checkpoint row for sessionID.
func (s *SQLiteStore) Load(ctx context.Context, sessionID string) (state.Checkpoint, error) {
	var (
		cp        state.Checkpoint
		messages  string
		updatedAt string
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, user_id, node, messages, updated_at
		 FROM checkpoints WHERE session_id = ?`,
		sessionID,
	).Scan(&cp.SessionID, &cp.UserID, &cp.Node, &messages, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return state.Checkpoint{}, fmt.Errorf("%w: %s", state.ErrCheckpointNotFound, sessionID)
	}
	if err != nil {
		return state.Checkpoint{}, fmt.Errorf("%w: %s: %v", ErrLoadFailed, sessionID, err)
	}

	cp.Messages = []protocol.Message{}
	if err := json.Unmarshal([]byte(messages), &cp.Messages); err != nil {
		return state.Checkpoint{}, fmt.Errorf("%w: %s: %v", ErrLoadFailed, sessionID, err)
	}

	if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		cp.Timestamp = ts
	}

	return cp, nil
}

// Delete removes the row for sessionID.
func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete failed: %s: %w", sessionID, err)
	}
	return nil
}

// List returns every stored session id in ascending order.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id FROM checkpoints ORDER BY session_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
