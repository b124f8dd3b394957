package snapshot

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps snapshots in memory. Used by tests and by watch runs
// that opt out of persistent history.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps []Snapshot
}

// NewMemoryStore creates an empty in-memory snapshot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append records a snapshot. Blank IDs and zero timestamps are filled in
// the same way the SQLite store fills them.
func (m *MemoryStore) Append(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m == nil {
		return errors.New("snapshot: memory store is nil")
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

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps = append(m.snaps, snap)
	return nil
}

// Latest returns the most recent snapshot for a session. Ties on TakenAt
// go to the later append.
func (m *MemoryStore) Latest(ctx context.Context, sessionID string) (Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, false, err
	}
	if m == nil {
		return Snapshot{}, false, errors.New("snapshot: memory store is nil")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var (
		latest Snapshot
		found  bool
	)
	for _, snap := range m.snaps {
		if snap.SessionID != sessionID {
			continue
		}
		if !found || !snap.TakenAt.Before(latest.TakenAt) {
			latest = snap
			found = true
		}
	}
	return latest, found, nil
}

// List returns snapshots for a session, newest first. A non-positive
// limit defaults to 50.
func (m *MemoryStore) List(ctx context.Context, sessionID string, limit int) ([]Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New("snapshot: memory store is nil")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var snaps []Snapshot
	for _, snap := range m.snaps {
		if snap.SessionID == sessionID {
			snaps = append(snaps, snap)
		}
	}
	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].TakenAt.After(snaps[j].TakenAt)
	})
	if len(snaps) > limit {
		snaps = snaps[:limit]
	}
	return snaps, nil
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
