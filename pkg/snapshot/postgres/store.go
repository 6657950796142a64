// Package postgres provides a PostgreSQL-backed snapshot store.
//
// Fragment lists are stored in a JSONB column so operators can inspect
// snapshots with plain SQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/snapshot"
)

// Config configures the PostgreSQL snapshot store.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string

	// SSLMode is the libpq sslmode value. Defaults to "disable".
	SSLMode string

	// TableName is the snapshot table name. Defaults to "workspace_snapshots".
	TableName string
}

// Store implements snapshot.Store on a PostgreSQL database.
type Store struct {
	db    *sql.DB
	table string
}

// NewStore connects to PostgreSQL and ensures the snapshot table exists.
func NewStore(cfg *Config) (*Store, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres snapshot store: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("postgres snapshot store: %w", err)
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
			consolidation_version BIGINT NOT NULL,
			last_consolidation TIMESTAMPTZ NOT NULL,
			captured_at TIMESTAMPTZ NOT NULL,
			fragments JSONB NOT NULL
		)
	`, s.table)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("postgres snapshot store: init table: %w", err)
	}
	return nil
}

// Save writes or replaces the snapshot of record.WorkspaceID.
func (s *Store) Save(ctx context.Context, record *snapshot.Record) error {
	fragments, err := json.Marshal(record.Fragments)
	if err != nil {
		return fmt.Errorf("postgres snapshot store: save: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (workspace_id, consolidation_version, last_consolidation, captured_at, fragments)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (workspace_id) DO UPDATE SET
			consolidation_version = EXCLUDED.consolidation_version,
			last_consolidation = EXCLUDED.last_consolidation,
			captured_at = EXCLUDED.captured_at,
			fragments = EXCLUDED.fragments
	`, s.table)

	_, err = s.db.ExecContext(ctx, query,
		record.WorkspaceID,
		record.ConsolidationVersion,
		record.LastConsolidation,
		record.CapturedAt,
		string(fragments),
	)
	if err != nil {
		return fmt.Errorf("postgres snapshot store: save: %w", err)
	}
	return nil
}

// Load returns the snapshot of workspaceID, or snapshot.ErrNotFound.
func (s *Store) Load(ctx context.Context, workspaceID string) (*snapshot.Record, error) {
	query := fmt.Sprintf(`
		SELECT workspace_id, consolidation_version, last_consolidation, captured_at, fragments
		FROM %s WHERE workspace_id = $1
	`, s.table)

	var record snapshot.Record
	var fragments []byte
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
		return nil, fmt.Errorf("postgres snapshot store: load: %w", err)
	}

	if err := json.Unmarshal(fragments, &record.Fragments); err != nil {
		return nil, fmt.Errorf("postgres snapshot store: load: %w", err)
	}
	return &record, nil
}

// List returns the workspace IDs that currently have a snapshot.
func (s *Store) List(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT workspace_id FROM %s ORDER BY workspace_id`, s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres snapshot store: list: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres snapshot store: list: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres snapshot store: list: %w", err)
	}
	return ids, nil
}

// Delete removes the snapshot of workspaceID, if any.
func (s *Store) Delete(ctx context.Context, workspaceID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE workspace_id = $1`, s.table)
	if _, err := s.db.ExecContext(ctx, query, workspaceID); err != nil {
		return fmt.Errorf("postgres snapshot store: delete: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
