package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig describes how the catalog initialises its connection pool.
type PostgresConfig struct {
	DSN             string
	MaxConnections  int32
	MinConnections  int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	AcquireTimeout  time.Duration
	ApplicationName string
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository opens a Postgres-backed catalog and ensures its schema
// exists. The tracks table maps public names to object keys, with an optional
// content-type override per track.
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("catalog dsn required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse catalog config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if appName := strings.TrimSpace(cfg.ApplicationName); appName != "" {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = appName
	}
	if cfg.AcquireTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.AcquireTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect catalog: %w", err)
	}
	repo := &postgresRepository{pool: pool}
	if err := repo.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

func (r *postgresRepository) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tracks (
    name         TEXT PRIMARY KEY,
    object_key   TEXT NOT NULL,
    content_type TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure tracks schema: %w", err)
	}
	return nil
}

func (r *postgresRepository) Resolve(ctx context.Context, name string) (Track, error) {
	const query = `SELECT name, object_key, content_type FROM tracks WHERE name = $1`
	var track Track
	err := r.pool.QueryRow(ctx, query, strings.TrimSpace(name)).Scan(&track.Name, &track.ObjectKey, &track.ContentType)
	if errors.Is(err, pgx.ErrNoRows) {
		return Track{}, ErrTrackNotFound
	}
	if err != nil {
		return Track{}, fmt.Errorf("resolve track %q: %w", name, err)
	}
	return track, nil
}

func (r *postgresRepository) Close(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
