package repository

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

// RunMigrations applies every pending migration found in fsys and logs each applied step.
func RunMigrations(ctx context.Context, dialect goose.Dialect, db *sql.DB, fsys fs.FS, logger zerolog.Logger) error {
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	l := logger.With().Str("component", "migrations").Str("dialect", string(dialect)).Logger()
	for _, r := range results {
		l.Info().
			Int64("version", r.Source.Version).
			Str("path", r.Source.Path).
			Dur("took", r.Duration).
			Msg("migration applied")
	}
	return nil
}
