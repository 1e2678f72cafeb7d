package core

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed deploy history. It records what this tool did,
// nothing more; platform state is never cached here.
type Store struct{ db *sql.DB }

//go:embed migrations/*.sql
var migrationFS embed.FS

// Deployment is one recorded deploy.
type Deployment struct {
	ID                string
	CreatedAt         time.Time
	Region            string
	Cluster           string
	Service           string
	TaskDefinitionArn string
	DesiredCount      int32
	Forced            bool
	RegisterOnly      bool
}

func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema, err := migrationFS.ReadFile("migrations/0001_init.sql")
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

func (s *Store) Record(ctx context.Context, d Deployment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deployments (id, created_at, region, cluster, service, task_definition_arn, desired_count, forced, register_only)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.CreatedAt.Format(time.RFC3339Nano), d.Region, d.Cluster, d.Service,
		d.TaskDefinitionArn, d.DesiredCount, d.Forced, d.RegisterOnly)
	if err != nil {
		return fmt.Errorf("record deployment: %w", err)
	}
	return nil
}

// Recent returns the latest deploys, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Deployment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, region, cluster, service, task_definition_arn, desired_count, forced, register_only
		 FROM deployments ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Deployment
	for rows.Next() {
		var d Deployment
		var created string
		if err := rows.Scan(&d.ID, &created, &d.Region, &d.Cluster, &d.Service,
			&d.TaskDefinitionArn, &d.DesiredCount, &d.Forced, &d.RegisterOnly); err != nil {
			return nil, err
		}
		d.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) Close() error { return s.db.Close() }
