package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	api_version TEXT NOT NULL,
	tool_count INTEGER NOT NULL,
	taken_at TEXT NOT NULL,
	payload BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_session_taken
ON snapshots (session_id, taken_at DESC);`

const (
	defaultStoreDir = ".codapmeta"
	defaultStoreDB  = "history.db"

	defaultListLimit = 50
)

// DefaultSQLitePath returns the default history database path.
func DefaultSQLitePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("snapshot: resolve user home: %w", err)
	}
	return filepath.Join(home, defaultStoreDir, defaultStoreDB), nil
}

// SQLiteStore persists snapshots in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewDefaultSQLiteStore creates a snapshot store at ~/.codapmeta/history.db.
func NewDefaultSQLiteStore() (*SQLiteStore, error) {
	path, err := DefaultSQLitePath()
	if err != nil {
		return nil, err
	}
	return NewSQLiteStore(path)
}

// NewSQLiteStore opens (or creates) a SQLite-backed snapshot store,
// creating parent directories as needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("snapshot: sqlite store path is required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("snapshot: create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: sqlite store open: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("snapshot: sqlite store set WAL mode: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("snapshot: sqlite store create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Append inserts a snapshot. A blank ID gets a fresh UUID and a zero
// TakenAt gets the current time, so callers can hand-build snapshots.
func (s *SQLiteStore) Append(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return errors.New("snapshot: sqlite store is nil")
	}
	if strings.TrimSpace(snap.SessionID) == "" {
		return errors.New("snapshot: session id is required")
	}
	if strings.TrimSpace(snap.ID) == "" {
		snap.ID = uuid.New().String()
	}
	if snap.TakenAt.IsZero() {
		snap.TakenAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO snapshots (id, session_id, api_version, tool_count, taken_at, payload)
VALUES (?, ?, ?, ?, ?, ?)`,
		snap.ID,
		snap.SessionID,
		snap.APIVersion,
		snap.ToolCount,
		snap.TakenAt.UTC().Format(time.RFC3339Nano),
		snap.Payload,
	)
	if err != nil {
		return fmt.Errorf("snapshot: sqlite insert snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot for a session.
func (s *SQLiteStore) Latest(ctx context.Context, sessionID string) (Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, false, err
	}
	if s == nil || s.db == nil {
		return Snapshot{}, false, errors.New("snapshot: sqlite store is nil")
	}

	row := s.db.QueryRowContext(ctx, `
SELECT id, session_id, api_version, tool_count, taken_at, payload
FROM snapshots
WHERE session_id = ?
ORDER BY taken_at DESC
LIMIT 1`, sessionID)

	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

// List returns snapshots for a session, newest first. A non-positive
// limit defaults to 50.
func (s *SQLiteStore) List(ctx context.Context, sessionID string, limit int) ([]Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, errors.New("snapshot: sqlite store is nil")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, session_id, api_version, tool_count, taken_at, payload
FROM snapshots
WHERE session_id = ?
ORDER BY taken_at DESC
LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("snapshot: sqlite list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot: sqlite snapshot rows: %w", err)
	}
	return snaps, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (Snapshot, error) {
	var (
		snap       Snapshot
		takenAtRaw string
	)
	if err := row.Scan(&snap.ID, &snap.SessionID, &snap.APIVersion, &snap.ToolCount, &takenAtRaw, &snap.Payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, err
		}
		return Snapshot{}, fmt.Errorf("snapshot: sqlite scan snapshot: %w", err)
	}

	takenAt, err := time.Parse(time.RFC3339Nano, takenAtRaw)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: sqlite parse taken_at: %w", err)
	}
	snap.TakenAt = takenAt.UTC()
	return snap, nil
}

var _ Store = (*SQLiteStore)(nil)
