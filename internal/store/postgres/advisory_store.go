// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/karlseb/ttpharvest/internal/advisory"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// AdvisoryStoreConfig controls the Postgres connection pool used for
// advisory rows.
type AdvisoryStoreConfig struct {
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

// AdvisoryStore writes advisory records into Postgres.
type AdvisoryStore struct {
	pool  execCloser
	table string
}

// NewAdvisoryStore creates a Postgres-backed AdvisoryStore using the provided
// config.
func NewAdvisoryStore(ctx context.Context, cfg AdvisoryStoreConfig) (*AdvisoryStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.postgres.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "advisories"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
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
	return &AdvisoryStore{
		pool:  pool,
		table: table,
	}, nil
}

// NewAdvisoryStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewAdvisoryStoreWithPool(pool execCloser, table string) (*AdvisoryStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "advisories"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &AdvisoryStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *AdvisoryStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// SaveRecord inserts an advisory row into Postgres. Techniques are stored as
// a JSON array alongside a denormalized count for cheap aggregation.
func (s *AdvisoryStore) SaveRecord(ctx context.Context, rec advisory.Record) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("advisory store is not configured")
	}
	if rec.URL == "" {
		return fmt.Errorf("record url is required")
	}
	techniquesJSON, err := json.Marshal(rec.Techniques)
	if err != nil {
		return fmt.Errorf("marshal techniques: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	title,
	url,
	advisory_date,
	summary,
	mitigations,
	techniques,
	technique_count
) VALUES (
	$1,$2,$3,$4,$5,$6,$7
)`, s.table)

	args := []any{
		rec.Title,
		rec.URL,
		rec.Date,
		rec.Summary,
		rec.Mitigations,
		techniquesJSON,
		len(rec.Techniques),
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert advisory: %w", err)
	}
	return nil
}
