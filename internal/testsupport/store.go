package testsupport

import (
	"testing"

	"courier/internal/config"
	"courier/internal/logging"
	"courier/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st := store.Open(cfg, logging.NewNop())
	t.Cleanup(func() {
		st.Close()
	})
	return st
}
