package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

func newProvider(pool *pgxpool.Pool) (*goose.Provider, error) {
	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return nil, err
	}
	db := stdlib.OpenDBFromPool(pool)
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	return provider, nil
}

// Migrate applies every pending migration and returns the resulting schema
// version.
func Migrate(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	provider, err := newProvider(pool)
	if err != nil {
		return 0, err
	}
	defer provider.Close()

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		slog.Info("migration applied",
			"version", r.Source.Version,
			"duration", r.Duration,
		)
	}
	return provider.GetDBVersion(ctx)
}

// Version reports the current schema version without changing anything.
func Version(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	provider, err := newProvider(pool)
	if err != nil {
		return 0, err
	}
	defer provider.Close()
	return provider.GetDBVersion(ctx)
}
