package migrator

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"log/slog"
	"teams-service/internal/config"
	sqlitestorage "teams-service/internal/storage/sqlite"

	_ "github.com/lib/pq"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var fs embed.FS

// RunMigrations applies every pending up migration for the configured driver.
func RunMigrations(cfg *config.Config, log *slog.Logger) error {
	const op = "migrator.RunMigrations"

	log = log.With(slog.String("op", op), slog.String("driver", cfg.Storage.Driver))

	return withMigrate(cfg, func(m *migrate.Migrate) error {
		log.Info("applying database migrations")
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("%s: migration failed: %w", op, err)
		}
		return nil
	})
}

// RollbackMigrations reverts every applied migration.
func RollbackMigrations(cfg *config.Config, log *slog.Logger) error {
	const op = "migrator.RollbackMigrations"

	log = log.With(slog.String("op", op), slog.String("driver", cfg.Storage.Driver))

	return withMigrate(cfg, func(m *migrate.Migrate) error {
		log.Info("reverting database migrations")
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("%s: rollback failed: %w", op, err)
		}
		return nil
	})
}

// withMigrate opens a dedicated connection because closing a migrate
// instance also closes the database handle it was built from.
func withMigrate(cfg *config.Config, fn func(m *migrate.Migrate) error) error {
	const op = "migrator.withMigrate"

	var (
		db     *sql.DB
		driver database.Driver
		err    error
	)

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		db, err = sql.Open("postgres", cfg.Postgres.DSN())
		if err != nil {
			return fmt.Errorf("%s: failed to connect: %w", op, err)
		}
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	case config.DriverSQLite:
		db, err = sql.Open("sqlite", sqlitestorage.DSN(cfg.SQLite.Path))
		if err != nil {
			return fmt.Errorf("%s: failed to connect: %w", op, err)
		}
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		return fmt.Errorf("%s: unknown storage driver %q", op, cfg.Storage.Driver)
	}
	if err != nil {
		db.Close()
		return fmt.Errorf("%s: failed to create driver: %w", op, err)
	}

	source, err := iofs.New(fs, "migrations/"+cfg.Storage.Driver)
	if err != nil {
		driver.Close()
		return fmt.Errorf("%s: failed to create source: %w", op, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, cfg.Storage.Driver, driver)
	if err != nil {
		driver.Close()
		return fmt.Errorf("%s: failed to create migrate instance: %w", op, err)
	}
	defer m.Close()

	return fn(m)
}
