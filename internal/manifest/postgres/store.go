// Package postgres records written pages in a Postgres manifest table.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/docsite/internal/crawler"
)

const defaultTable = "docsite_pages"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for manifest rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Store writes one row per page and run.
type Store struct {
	pool  execCloser
	table string
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool, table: table}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool execCloser, table string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the manifest table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("manifest store is not configured")
	}
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	run_id       TEXT NOT NULL,
	document_id  TEXT NOT NULL,
	slug         TEXT NOT NULL,
	path         TEXT NOT NULL,
	uri          TEXT NOT NULL,
	title        TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	written_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, document_id)
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create manifest table: %w", err)
	}
	return nil
}

// RecordPage upserts the row for the page's run and document.
func (s *Store) RecordPage(ctx context.Context, page crawler.PageRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("manifest store is not configured")
	}
	if page.DocumentID == "" {
		return fmt.Errorf("document id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	document_id,
	slug,
	path,
	uri,
	title,
	content_hash,
	written_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
)
ON CONFLICT (run_id, document_id) DO UPDATE SET
	slug = EXCLUDED.slug,
	path = EXCLUDED.path,
	uri = EXCLUDED.uri,
	title = EXCLUDED.title,
	content_hash = EXCLUDED.content_hash,
	written_at = EXCLUDED.written_at`, s.table)

	args := []any{
		page.RunID,
		page.DocumentID,
		page.Slug,
		page.Path,
		page.URI,
		page.Title,
		page.ContentHash,
		page.WrittenAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert page: %w", err)
	}
	return nil
}
