package test

import (
	"context"
	"testing"

	"github.com/hrygo/sprachsense/internal/profile"
	"github.com/hrygo/sprachsense/internal/version"
	"github.com/hrygo/sprachsense/store"
	"github.com/hrygo/sprachsense/store/db"
)

// NewTestingStore creates a throwaway SQLite-backed store under t.TempDir.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	profile := getTestingProfile(t)
	driver, err := db.NewDBDriver(profile)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	testStore := store.New(driver, profile)
	if err := testStore.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}

	t.Cleanup(func() {
		if err := testStore.Close(); err != nil {
			t.Logf("failed to close store: %v", err)
		}
	})

	return testStore
}

func getTestingProfile(t *testing.T) *profile.Profile {
	dir := t.TempDir()
	mode := "dev"
	return &profile.Profile{
		Mode:    mode,
		Port:    8082,
		Data:    dir,
		DSN:     dir + "/sprachsense_test.db",
		Driver:  "sqlite",
		Version: version.GetCurrentVersion(mode),
	}
}
