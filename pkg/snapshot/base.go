// Package snapshot defines the serialized form of a workspace's consolidated
// memory and the Store interface that persistence backends implement.
//
// Snapshotting is driven by an external scheduler, never by the memory engine
// itself: the engine's authoritative state lives in memory, and a snapshot is
// only a recovery point.
package snapshot

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates that no snapshot exists for the requested workspace.
var ErrNotFound = errors.New("snapshot not found")

// FragmentRecord is the serialized form of a single memory fragment.
type FragmentRecord struct {
	ID              int64                  `json:"id"`
	WorkspaceID     string                 `json:"workspace_id"`
	AgentID         string                 `json:"agent_id"`
	AgentType       string                 `json:"agent_type"`
	Content         string                 `json:"content"`
	ImportanceScore float64                `json:"importance_score"`
	Tier            string                 `json:"tier"`
	AccessCount     int64                  `json:"access_count"`
	CreatedAt       time.Time              `json:"created_at"`
	LastAccessed    time.Time              `json:"last_accessed"`
	Embedding       []float64              `json:"embedding,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// Record is the serialized form of one workspace's consolidated memory.
type Record struct {
	WorkspaceID          string           `json:"workspace_id"`
	ConsolidationVersion int64            `json:"consolidation_version"`
	LastConsolidation    time.Time        `json:"last_consolidation"`
	CapturedAt           time.Time        `json:"captured_at"`
	Fragments            []FragmentRecord `json:"fragments"`
}

// Store persists workspace snapshots.
//
// Implementations back onto SQLite, PostgreSQL, or MySQL. Each workspace
// holds at most one snapshot; Save replaces any previous one.
type Store interface {
	// Save writes or replaces the snapshot of record.WorkspaceID.
	Save(ctx context.Context, record *Record) error

	// Load returns the snapshot of workspaceID, or ErrNotFound.
	Load(ctx context.Context, workspaceID string) (*Record, error)

	// List returns the workspace IDs that currently have a snapshot.
	List(ctx context.Context) ([]string, error)

	// Delete removes the snapshot of workspaceID, if any.
	Delete(ctx context.Context, workspaceID string) error

	// Close releases backend resources.
	Close() error
}
