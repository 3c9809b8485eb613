package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PoolConfig sizes the pgx pool. Zero values are replaced by ApplyDefaults.
type PoolConfig struct {
	ConnString string

	MaxConns int32 // default 20
	MinConns int32 // default 2

	MaxConnLifetime   time.Duration // default 1h
	MaxConnIdleTime   time.Duration // default 30m
	HealthCheckPeriod time.Duration // default 1m
	ConnectTimeout    time.Duration // default 10s

	// ConnectAttempts bounds the startup ping retries so the server can come up
	// alongside a database container. Default 5.
	ConnectAttempts uint
}

func (c *PoolConfig) Validate() error {
	if c.ConnString == "" {
		return errors.New("connection string is required")
	}
	if c.MinConns > c.MaxConns {
		return fmt.Errorf("min conns (%d) exceeds max conns (%d)", c.MinConns, c.MaxConns)
	}
	return nil
}

func (c *PoolConfig) ApplyDefaults() {
	c.MaxConns = orDefault(c.MaxConns, 20)
	c.MinConns = orDefault(c.MinConns, 2)
	c.MaxConnLifetime = orDefault(c.MaxConnLifetime, time.Hour)
	c.MaxConnIdleTime = orDefault(c.MaxConnIdleTime, 30*time.Minute)
	c.HealthCheckPeriod = orDefault(c.HealthCheckPeriod, time.Minute)
	c.ConnectTimeout = orDefault(c.ConnectTimeout, 10*time.Second)
	c.ConnectAttempts = orDefault(c.ConnectAttempts, 5)
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// NewPool opens the pool and waits, with exponential back-off, until the database answers a ping.
func NewPool(ctx context.Context, cfg *PoolConfig) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, errors.New("pool config is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pool config: %w", err)
	}

	pc, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	pc.MaxConns, pc.MinConns = cfg.MaxConns, cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.HealthCheckPeriod = cfg.HealthCheckPeriod
	pc.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	ping := func() (struct{}, error) {
		if err := pool.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("Database not ready, retrying")
			return struct{}{}, err
		}
		return struct{}{}, nil
	}
	if _, err := backoff.Retry(ctx, ping, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(cfg.ConnectAttempts)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Debug().Int32("max_conns", pc.MaxConns).Msg("Database pool ready")
	return pool, nil
}
