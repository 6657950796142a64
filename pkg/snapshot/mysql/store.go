// Package mysql provides a MySQL-backed snapshot store.
//
// It also works against MySQL-protocol compatible databases.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/snapshot"
)

// Config configures the MySQL snapshot store.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string

	// TableName is the snapshot table name. Defaults to "workspace_snapshots".
	TableName string
}

// Store implements snapshot.Store on a MySQL database.
type Store struct {
	db    *sql.DB
	table string
}

// NewStore connects to MySQL and ensures the snapshot table exists.
func NewStore(cfg *Config) (*Store, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql snapshot store: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("mysql snapshot store: %w", err)
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
			workspace_id VARCHAR(255) PRIMARY KEY,
			consolidation_version BIGINT NOT NULL,
			last_consolidation DATETIME(6) NOT NULL,
			captured_at DATETIME(6) NOT NULL,
			fragments JSON NOT NULL
		)
	`, s.table)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("mysql snapshot store: init table: %w", err)
	}
	return nil
}

// Save writes or replaces the snapshot of record.WorkspaceID.
func (s *Store) Save(ctx context.Context, record *snapshot.Record) error {
	fragments, err := json.Marshal(record.Fragments)
	if err != nil {
		return fmt.Errorf("mysql snapshot store: save: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (workspace_id, consolidation_version, last_consolidation, captured_at, fragments)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			consolidation_version = VALUES(consolidation_version),
			last_consolidation = VALUES(last_consolidation),
			captured_at = VALUES(captured_at),
			fragments = VALUES(fragments)
	`, s.table)

	_, err = s.db.ExecContext(ctx, query,
		record.WorkspaceID,
		record.ConsolidationVersion,
		record.LastConsolidation,
		record.CapturedAt,
		string(fragments),
	)
	if err != nil {
		return fmt.Errorf("mysql snapshot store: save: %w", err)
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
		return nil, fmt.Errorf("mysql snapshot store: load: %w", err)
	}

	if err := json.Unmarshal(fragments, &record.Fragments); err != nil {
		return nil, fmt.Errorf("mysql snapshot store: load: %w", err)
	}
	return &record, nil
}

// List returns the workspace IDs that currently have a snapshot.
func (s *Store) List(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT workspace_id FROM %s ORDER BY workspace_id`, s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("mysql snapshot store: list: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("mysql snapshot store: list: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mysql snapshot store: list: %w", err)
	}
	return ids, nil
}

// Delete removes the snapshot of workspaceID, if any.
func (s *Store) Delete(ctx context.Context, workspaceID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE workspace_id = ?`, s.table)
	if _, err := s.db.ExecContext(ctx, query, workspaceID); err != nil {
		return fmt.Errorf("mysql snapshot store: delete: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
