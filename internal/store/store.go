package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"courier/internal/config"
	"courier/internal/logging"
)

// Store wraps a Backend with the availability contract queue code relies on:
// storage unavailability degrades to an empty view instead of surfacing
// errors, with a warning logged on the first failure.
type Store struct {
	backend  Backend
	name     string
	logger   *slog.Logger
	warnOnce sync.Once
}

// NewStore wraps backend. A nil logger disables logging.
func NewStore(backend Backend, name string, logger *slog.Logger) *Store {
	return &Store{
		backend: backend,
		name:    name,
		logger:  logging.NewComponentLogger(logger, "store"),
	}
}

// Open selects and opens the configured backend. When the backend cannot be
// opened the store degrades to an in-memory backend so callers keep working
// without persistence.
func Open(cfg *config.Config, logger *slog.Logger) *Store {
	log := logging.NewComponentLogger(logger, "store")

	backend, name, err := openBackend(cfg)
	if err != nil {
		logging.WarnWithContext(log, "durable store unavailable", "store_degraded",
			logging.Error(err),
			logging.String("driver", cfg.Store.Driver),
			logging.String(logging.FieldErrorHint, "check state_dir permissions or the store.driver setting"),
			logging.String(logging.FieldImpact, "queued actions will not survive a restart"))
		return NewStore(OpenMemory(), "memory", logger)
	}

	log.Debug("durable store opened", logging.String("driver", name))
	return NewStore(backend, name, logger)
}

func openBackend(cfg *config.Config) (Backend, string, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, "", fmt.Errorf("ensure directories: %w", err)
	}

	switch cfg.Store.Driver {
	case "sqlite":
		backend, err := OpenSQLite(cfg.QueueDBPath())
		return backend, "sqlite", err
	case "file":
		backend, err := OpenFile(filepath.Join(cfg.Paths.StateDir, "kv"))
		return backend, "file", err
	case "memory":
		return OpenMemory(), "memory", nil
	default:
		return nil, "", fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// Get returns the value stored under key. Absent keys and storage failures
// both yield (nil, false).
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := s.backend.Get(ctx, key)
	if err != nil {
		s.degraded("get", key, err)
		return nil, false
	}
	if value == nil {
		return nil, false
	}
	return value, true
}

// Set stores value under key. Storage failures are logged, not returned.
func (s *Store) Set(ctx context.Context, key string, value []byte) {
	if err := s.backend.Set(ctx, key, value); err != nil {
		s.degraded("set", key, err)
	}
}

// Delete removes key. Storage failures are logged, not returned.
func (s *Store) Delete(ctx context.Context, key string) {
	if err := s.backend.Delete(ctx, key); err != nil {
		s.degraded("delete", key, err)
	}
}

// Backend names the backend in use, for status reporting.
func (s *Store) Backend() string {
	return s.name
}

// Close releases the underlying backend.
func (s *Store) Close() error {
	if s == nil || s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

func (s *Store) degraded(op, key string, err error) {
	s.warnOnce.Do(func() {
		logging.WarnWithContext(s.logger, "durable store unavailable", "store_degraded",
			logging.Error(err),
			logging.String("op", op),
			logging.String(logging.FieldQueueKey, key),
			logging.String("driver", s.name),
			logging.String(logging.FieldErrorHint, "check state_dir permissions and free disk space"),
			logging.String(logging.FieldImpact, "queue state is not being persisted"))
	})
	s.logger.Debug("store operation failed",
		logging.String("op", op),
		logging.String(logging.FieldQueueKey, key),
		logging.Error(err))
}
