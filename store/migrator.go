package store

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
)

// The migration system is intentionally small: a fresh database is
// initialized from LATEST.sql for the active driver; an already
// initialized database is left untouched. Incremental migrations can be
// added next to LATEST.sql when the schema evolves.
//
// Migration Files:
// - Location: store/migration/{driver}/LATEST.sql
// - LATEST.sql: Full schema for new installations

//go:embed migration
var migrationFS embed.FS

// Migrate initializes the database schema when needed.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}
	if initialized {
		return nil
	}

	filePath := fmt.Sprintf("migration/%s/LATEST.sql", s.profile.Driver)
	buf, err := migrationFS.ReadFile(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to read latest schema file %q", filePath)
	}

	if _, err := s.driver.GetDB().ExecContext(ctx, string(buf)); err != nil {
		return errors.Wrap(err, "failed to apply latest schema")
	}

	slog.Info("database initialized", "driver", s.profile.Driver)
	return nil
}
