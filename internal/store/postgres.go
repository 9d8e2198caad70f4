package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres keeps identities in a shared Postgres table, so a fleet of
// simulated clients can share one profile scope.
type Postgres struct {
	pool  *pgxpool.Pool
	scope string
}

const createIdentityTable = `
CREATE TABLE IF NOT EXISTS beacon_identity_kv (
	scope      TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (scope, key)
)`

// NewPostgres connects to databaseURL and ensures the table exists.
func NewPostgres(ctx context.Context, databaseURL string, scope Scope) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pool settings
	config.MaxConns = 4
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, createIdentityTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create identity table: %w", err)
	}

	return &Postgres{pool: pool, scope: string(scope)}, nil
}

// Get returns the value for key.
func (p *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.pool.QueryRow(ctx,
		`SELECT value FROM beacon_identity_kv WHERE scope = $1 AND key = $2`, p.scope, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (p *Postgres) Set(ctx context.Context, key, value string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO beacon_identity_kv (scope, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (scope, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, p.scope, key, value)
	if err != nil {
		return fmt.Errorf("postgres set %s: %w", key, err)
	}
	return nil
}

// SetNX inserts value unless key exists and returns the stored value.
func (p *Postgres) SetNX(ctx context.Context, key, value string) (string, error) {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO beacon_identity_kv (scope, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (scope, key) DO NOTHING
	`, p.scope, key, value)
	if err != nil {
		return "", fmt.Errorf("postgres setnx %s: %w", key, err)
	}
	stored, found, err := p.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("postgres setnx %s: value vanished after insert", key)
	}
	return stored, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
