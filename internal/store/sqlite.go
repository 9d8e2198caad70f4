package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // CGO-free SQLite
)

// SQLite persists identities in a local SQLite file. It is the default
// profile-scope store: the device id survives process restarts.
type SQLite struct {
	db    *sql.DB
	scope string
}

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(ctx context.Context, path string, scope Scope) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite path required")
	}

	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db, scope: string(scope)}, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS identity_kv(
	  scope TEXT NOT NULL,
	  key   TEXT NOT NULL,
	  value TEXT NOT NULL,
	  PRIMARY KEY (scope, key)
	);
	`)
	if err != nil {
		return fmt.Errorf("failed to create database tables: %w", err)
	}
	return nil
}

// Get returns the value for key.
func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM identity_kv WHERE scope = ? AND key = ?`, s.scope, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *SQLite) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO identity_kv(scope, key, value) VALUES(?, ?, ?)
	ON CONFLICT(scope, key) DO UPDATE SET value = excluded.value
	`, s.scope, key, value)
	if err != nil {
		return fmt.Errorf("sqlite set %s: %w", key, err)
	}
	return nil
}

// SetNX inserts value unless key exists, then reads back the winner.
func (s *SQLite) SetNX(ctx context.Context, key, value string) (string, error) {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO identity_kv(scope, key, value) VALUES(?, ?, ?)
	ON CONFLICT(scope, key) DO NOTHING
	`, s.scope, key, value)
	if err != nil {
		return "", fmt.Errorf("sqlite setnx %s: %w", key, err)
	}
	stored, found, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("sqlite setnx %s: value vanished after insert", key)
	}
	return stored, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
