package testsupport

import (
	"testing"

	"docshell/internal/config"
	"docshell/internal/recent"
)

// MustOpenRecent opens the recent-files store for cfg and registers cleanup.
func MustOpenRecent(t testing.TB, cfg *config.Config) *recent.Store {
	t.Helper()

	store, err := recent.Open(cfg)
	if err != nil {
		t.Fatalf("recent.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
