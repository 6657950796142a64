// Package sqlite provides a SQLite-backed snapshot store.
//
// SQLite is file-based and needs no server, which suits single-process
// deployments and local development. Fragment lists are stored as JSON text.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/snapshot"
)

// Config configures the SQLite snapshot store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// TableName is the snapshot table name. Defaults to "workspace_snapshots".
	TableName string
}

// Store implements snapshot.Store on a SQLite database.
type Store struct {
	db    *sql.DB
	table string
}

// NewStore opens (and if needed creates) the SQLite database and snapshot table.
func NewStore(cfg *Config) (*Store, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("sqlite snapshot store: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlite snapshot store: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("sqlite snapshot store: %w", err)
	}

	table := cfg.TableName
	if table == "" {
		table = "workspace_snapshots"
	}

	s := &Store{db: db, table: table}
	if err := s.initTable(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			workspace_id TEXT PRIMARY KEY,
			consolidation_version INTEGER NOT NULL,
			last_consolidation DATETIME NOT NULL,
			captured_at DATETIME NOT NULL,
			fragments TEXT NOT NULL
		)
	`, s.table)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("sqlite snapshot store: init table: %w", err)
	}
	return nil
}

// Save writes or replaces the snapshot of record.WorkspaceID.
func (s *Store) Save(ctx context.Context, record *snapshot.Record) error {
	fragments, err := json.Marshal(record.Fragments)
	if err != nil {
		return fmt.Errorf("sqlite snapshot store: save: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (workspace_id, consolidation_version, last_consolidation, captured_at, fragments)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(workspace_id) DO UPDATE SET
			consolidation_version = excluded.consolidation_version,
			last_consolidation = excluded.last_consolidation,
			captured_at = excluded.captured_at,
			fragments = excluded.fragments
	`, s.table)

	_, err = s.db.ExecContext(ctx, query,
		record.WorkspaceID,
		record.ConsolidationVersion,
		record.LastConsolidation,
		record.CapturedAt,
		string(fragments),
	)
	if err != nil {
		return fmt.Errorf("sqlite snapshot store: save: %w", err)
	}
	return nil
}

// Load returns the snapshot of workspaceID, or snapshot.ErrNotFound.
func (s *Store) Load(ctx context.Context, workspaceID string) (*snapshot.Record, error) {
	query := fmt.Sprintf(`
		SELECT workspace_id, consolidation_version, last_consolidation, captured_at, fragments
		FROM %s WHERE workspace_id = ?
	`, s.table)

	var record snapshot.Record
	var fragments string
	err := s.db.QueryRowContext(ctx, query, workspaceID).Scan(
		&record.WorkspaceID,
		&record.ConsolidationVersion,
		&record.LastConsolidation,
		&record.CapturedAt,
		&fragments,
	)
	if err == sql.ErrNoRows {
		return nil, snapshot.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite snapshot store: load: %w", err)
	}

	if err := json.Unmarshal([]byte(fragments), &record.Fragments); err != nil {
		return nil, fmt.Errorf("sqlite snapshot store: load: %w", err)
	}
	return &record, nil
}

// List returns the workspace IDs that currently have a snapshot.
func (s *Store) List(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT workspace_id FROM %s ORDER BY workspace_id`, s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite snapshot store: list: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite snapshot store: list: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite snapshot store: list: %w", err)
	}
	return ids, nil
}

// Delete removes the snapshot of workspaceID, if any.
func (s *Store) Delete(ctx context.Context, workspaceID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE workspace_id = ?`, s.table)
	if _, err := s.db.ExecContext(ctx, query, workspaceID); err != nil {
		return fmt.Errorf("sqlite snapshot store: delete: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
