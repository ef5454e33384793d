// Package database is the meeting tracker's persistence layer: a pgx pool
// plus one file per aggregate holding that table's query methods.
package database

import (
	"context"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PoolConfig sizes the pgx pool backing a DB. The meeting tracker's load
// shape is a handful of WebSocket connections per active meeting plus the
// periodic broadcaster's ticks, not a high-throughput CRUD API, so these
// are tuned much smaller than a typical API service's pool.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// DefaultPoolConfig returns the pool sizing used when a caller doesn't
// have config-driven values at hand (mainly tests).
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxConns: 20, MinConns: 4}
}

type DB struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

// Connect opens a pool sized by pool and pings it once to fail fast on a
// bad DSN or unreachable server.
func Connect(ctx context.Context, databaseURL string, pool PoolConfig, log zerolog.Logger) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	cfg.MaxConns = pool.MaxConns
	cfg.MinConns = pool.MinConns

	pgxPool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := pgxPool.Ping(ctx); err != nil {
		pgxPool.Close()
		return nil, err
	}

	log.Info().
		Str("url", maskDSN(databaseURL)).
		Int32("max_conns", cfg.MaxConns).
		Int32("min_conns", cfg.MinConns).
		Msg("database connected")

	return &DB{Pool: pgxPool, log: log}, nil
}

// ConnectAndBootstrap connects with pool's sizing and runs InitSchema
// against the new pool, the single entry point main.go calls at startup so
// "open the pool" and "make sure the schema exists" happen as one step.
func ConnectAndBootstrap(ctx context.Context, databaseURL string, pool PoolConfig, log zerolog.Logger) (*DB, error) {
	db, err := Connect(ctx, databaseURL, pool, log)
	if err != nil {
		return nil, err
	}
	if err := db.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return db.Pool.Ping(ctx)
}

func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		if _, hasPass := u.User.Password(); hasPass {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
	}
	return u.String()
}

func (db *DB) Close() {
	db.log.Info().Msg("closing database pool")
	db.Pool.Close()
}
