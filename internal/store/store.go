// Package store provides the key-value stores backing beacon identities.
//
// Two scopes exist: the profile scope holds the long-lived device id and the
// session scope holds the per-session id. Any backend can serve either scope;
// the session scope usually wants a backend whose entries expire.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Scope names the lifetime of the values kept in a store.
type Scope string

const (
	ScopeProfile Scope = "profile"
	ScopeSession Scope = "session"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// ErrUnknownBackend is returned by Open for an unrecognised backend name.
var ErrUnknownBackend = errors.New("unknown store backend")

// Store is a string key-value store with get/set semantics.
// Get reports found=false, with a nil error, when the key is absent.
// SetNX writes value only if key is absent and returns the value stored
// afterwards: value itself, or whatever an earlier writer put there.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	SetNX(ctx context.Context, key, value string) (stored string, err error)
}

// ClosableStore is a Store holding resources that must be released.
type ClosableStore interface {
	Store
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend     string
	Path        string        // sqlite file path
	RedisURL    string        // redis connection URL
	DatabaseURL string        // postgres connection URL
	TTL         time.Duration // entry lifetime; redis only, 0 = no expiry
}

// Open creates the store for scope described by opts.
func Open(ctx context.Context, scope Scope, opts Options) (ClosableStore, error) {
	switch opts.Backend {
	case BackendMemory, "":
		return NewMemory(), nil
	case BackendSQLite:
		return NewSQLite(ctx, opts.Path, scope)
	case BackendRedis:
		return NewRedis(ctx, opts.RedisURL, scope, opts.TTL)
	case BackendPostgres:
		return NewPostgres(ctx, opts.DatabaseURL, scope)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
