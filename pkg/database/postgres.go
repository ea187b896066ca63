// Package database owns the Postgres connection pool. Every repository
// shares the one pgx pool built here.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// healthPingTimeout bounds the Health round trip so a stalled backend turns
// into an unhealthy report instead of a hung health endpoint.
const healthPingTimeout = 2 * time.Second

// PoolOptions tunes the shared connection pool. Zero values keep the pgx
// defaults.
type PoolOptions struct {
	MaxConns int32
	MinConns int32
}

// PostgresDB wraps the shared pgx pool.
type PostgresDB struct {
	Pool *pgxpool.Pool
}

// NewPostgresDB parses the DSN, applies pool sizing, and verifies the
// connection with a ping before handing the pool out.
func NewPostgresDB(ctx context.Context, databaseURL string, opts PoolOptions) (*PostgresDB, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if opts.MaxConns > 0 {
		poolCfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		poolCfg.MinConns = opts.MinConns
	}
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresDB{Pool: pool}, nil
}

// Close releases every pooled connection.
func (db *PostgresDB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Health pings the database with a short deadline.
func (db *PostgresDB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	return db.Pool.Ping(ctx)
}
