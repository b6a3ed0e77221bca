package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
)

// The schema lives in migration/{driver}/LATEST.sql and is applied in one
// transaction when the database has not been initialized yet. Every
// statement is idempotent, so re-applying it on an initialized database is
// harmless.

//go:embed migration
var migrationFS embed.FS

// LatestSchemaFileName is the name of the full schema file.
const LatestSchemaFileName = "LATEST.sql"

// Migrate creates the schema if the database is not initialized.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}
	if initialized {
		return nil
	}

	filePath := s.getMigrationBasePath() + LatestSchemaFileName
	bytes, err := migrationFS.ReadFile(filePath)
	if err != nil {
		return errors.Errorf("failed to read latest schema file: %s", err)
	}

	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	slog.Info("initializing new database with latest schema", slog.String("file", filePath))
	if err := s.execute(ctx, tx, string(bytes)); err != nil {
		return errors.Wrapf(err, "failed to execute SQL file %s", filePath)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func (s *Store) getMigrationBasePath() string {
	driver := "sqlite"
	if s.profile != nil && s.profile.Driver != "" {
		driver = s.profile.Driver
	}
	return fmt.Sprintf("migration/%s/", driver)
}

func (s *Store) execute(ctx context.Context, tx *sql.Tx, stmt string) error {
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return errors.Wrap(err, "failed to execute statement")
	}
	return nil
}
