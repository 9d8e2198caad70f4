package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lstn/beacon/internal/beacon"
	"github.com/lstn/beacon/internal/config"
	"github.com/lstn/beacon/internal/metrics"
	"github.com/lstn/beacon/internal/store"
	"github.com/lstn/beacon/internal/transport"
)

// newEmitter builds the emitter described by cfg.
func newEmitter(cfg *config.Config, logger *slog.Logger, rec metrics.Recorder) (*beacon.Emitter, error) {
	scheme, err := beacon.ParseScheme(cfg.HeaderScheme)
	if err != nil {
		return nil, err
	}
	client, err := transport.NewHTTPClient(transport.Options{
		Timeout: cfg.RequestTimeout,
		HTTP2:   cfg.HTTP2,
	})
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}
	return beacon.NewEmitter(beacon.EmitterConfig{
		CollectorURL: cfg.CollectorURL,
		Scheme:       scheme,
		Extended:     cfg.ExtendedFields,
		Client:       client,
		Logger:       logger,
		Metrics:      rec,
	})
}

// identityStores opens the profile and session stores. The returned close
// func releases both.
func identityStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (profile, session store.ClosableStore, closeFn func(), err error) {
	profile, err = store.Open(ctx, store.ScopeProfile, store.Options{
		Backend:     cfg.ProfileStore,
		Path:        cfg.ProfileStorePath,
		RedisURL:    cfg.RedisURL,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open profile store: %w", err)
	}

	session, err = store.Open(ctx, store.ScopeSession, store.Options{
		Backend:     cfg.SessionStore,
		RedisURL:    cfg.RedisURL,
		DatabaseURL: cfg.DatabaseURL,
		TTL:         cfg.SessionTTL,
	})
	if err != nil {
		profile.Close()
		return nil, nil, nil, fmt.Errorf("open session store: %w", err)
	}

	logger.Debug("identity stores opened",
		"profile_store", cfg.ProfileStore,
		"session_store", cfg.SessionStore,
		"redis_url", redactURL(cfg.RedisURL),
		"database_url", redactURL(cfg.DatabaseURL),
	)

	closeFn = func() {
		if err := session.Close(); err != nil {
			logger.Warn("close session store", "error", err)
		}
		if err := profile.Close(); err != nil {
			logger.Warn("close profile store", "error", err)
		}
	}
	return profile, session, closeFn, nil
}
