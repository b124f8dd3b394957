// Package snapshot records manifest history for diffing and audit.
//
// The store is write-behind only: the client never reads a snapshot to
// answer a request, so manifest fetches stay uncached by construction.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codap-mcp/codapmeta"
)

// Snapshot is one recorded manifest observation for a session.
type Snapshot struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	APIVersion string    `json:"api_version"`
	ToolCount  int       `json:"tool_count"`
	TakenAt    time.Time `json:"taken_at"`
	Payload    []byte    `json:"payload"`
}

// Store persists manifest snapshots.
type Store interface {
	Append(ctx context.Context, snap Snapshot) error
	Latest(ctx context.Context, sessionID string) (Snapshot, bool, error)
	List(ctx context.Context, sessionID string, limit int) ([]Snapshot, error)
	Close() error
}

// Take builds a snapshot of a manifest at a point in time.
func Take(manifest *codapmeta.ToolManifest, sessionID string, takenAt time.Time) (Snapshot, error) {
	if manifest == nil {
		return Snapshot{}, errors.New("snapshot: manifest is nil")
	}
	payload, err := json.Marshal(manifest)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: encode manifest: %w", err)
	}
	return Snapshot{
		ID:         uuid.New().String(),
		SessionID:  sessionID,
		APIVersion: manifest.APIVersion,
		ToolCount:  len(manifest.Tools),
		TakenAt:    takenAt.UTC(),
		Payload:    payload,
	}, nil
}

// Manifest decodes the stored manifest document.
func (s Snapshot) Manifest() (*codapmeta.ToolManifest, error) {
	var manifest codapmeta.ToolManifest
	if err := json.Unmarshal(s.Payload, &manifest); err != nil {
		return nil, fmt.Errorf("snapshot: decode manifest payload: %w", err)
	}
	return &manifest, nil
}

// Diff reports human-readable changes between two snapshots of the same
// session: API version changes and tools added or removed by name.
// Undecodable payloads contribute nothing beyond the version line.
func Diff(prev, next Snapshot) []string {
	var changes []string
	if prev.APIVersion != next.APIVersion {
		changes = append(changes, fmt.Sprintf("api version %s -> %s", prev.APIVersion, next.APIVersion))
	}

	prevManifest, err := prev.Manifest()
	if err != nil {
		return changes
	}
	nextManifest, err := next.Manifest()
	if err != nil {
		return changes
	}

	prevTools := make(map[string]bool, len(prevManifest.Tools))
	for _, desc := range prevManifest.Tools {
		prevTools[desc.Name] = true
	}
	nextTools := make(map[string]bool, len(nextManifest.Tools))
	for _, desc := range nextManifest.Tools {
		nextTools[desc.Name] = true
	}

	for _, desc := range nextManifest.Tools {
		if !prevTools[desc.Name] {
			changes = append(changes, fmt.Sprintf("tool added: %s", desc.Name))
		}
	}
	for _, desc := range prevManifest.Tools {
		if !nextTools[desc.Name] {
			changes = append(changes, fmt.Sprintf("tool removed: %s", desc.Name))
		}
	}
	return changes
}
