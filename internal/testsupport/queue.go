package testsupport

import (
	"context"
	"testing"

	"courier/internal/config"
	"courier/internal/connectivity"
	"courier/internal/logging"
	"courier/internal/queue"
)

// MustOpenQueue builds an initialized queue.Manager backed by the config's
// store. A nil monitor means always online.
func MustOpenQueue(t testing.TB, cfg *config.Config, monitor connectivity.Monitor) *queue.Manager {
	t.Helper()

	st := MustOpenStore(t, cfg)
	mgr := queue.NewManager(queue.Options{
		Store:       st,
		Monitor:     monitor,
		MaxAttempts: cfg.Queue.MaxAttempts,
		Logger:      logging.NewNop(),
	})
	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatalf("queue.Initialize: %v", err)
	}
	return mgr
}
