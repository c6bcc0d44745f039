// Package postgres records shuffle results in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/caveshuffle/internal/config"
)

// ApplicationName tags every connection so shuffle runs are visible in
// pg_stat_activity.
const ApplicationName = "shufflecave"

// ErrSchemaMissing is returned when the layouts table has not been migrated.
var ErrSchemaMissing = errors.New("layouts schema missing; run the migrate command")

// Pool is the connection pool of the layout store.
type Pool struct {
	pool    *pgxpool.Pool
	layouts *LayoutRepository
}

// NewPool connects to the layout store.
//
// Precondition: cfg must contain valid database connection parameters.
// Postcondition: Returns a connected Pool or a non-nil error. The pool is ready
// for queries upon successful return.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	if _, ok := poolCfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Pool{pool: pool, layouts: NewLayoutRepository(pool)}, nil
}

// Health checks that the database is reachable within the given timeout.
//
// Precondition: The pool must not be closed.
// Postcondition: Returns nil if the database responds within the timeout.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// RequireSchema reports ErrSchemaMissing unless the layouts table exists.
func (p *Pool) RequireSchema(ctx context.Context) error {
	var present bool
	if err := p.pool.QueryRow(ctx, `SELECT to_regclass('layouts') IS NOT NULL`).Scan(&present); err != nil {
		return fmt.Errorf("checking layouts schema: %w", err)
	}
	if !present {
		return ErrSchemaMissing
	}
	return nil
}

// Layouts returns the repository of recorded layouts.
func (p *Pool) Layouts() *LayoutRepository {
	return p.layouts
}

// Close releases all pool resources.
//
// Postcondition: The pool is no longer usable after calling Close.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB returns the underlying pgxpool.Pool.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
