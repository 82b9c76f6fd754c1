package testsupport

import (
	"testing"

	"vidsub/internal/config"
	"vidsub/internal/packagedb"
)

// MustOpenPackageDB opens the config's package registry and registers cleanup.
func MustOpenPackageDB(t testing.TB, cfg *config.Config) *packagedb.Store {
	t.Helper()

	store, err := packagedb.Open(cfg.Paths.PackageDB)
	if err != nil {
		t.Fatalf("open package registry: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
