package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

// RunMigrations applies all pending migrations to the database and returns version info
func RunMigrations(db *DB) (uint, bool, error) {
	var (
		driver migratedb.Driver
		err    error
	)

	switch db.dialect {
	case DialectPostgres:
		driver, err = postgres.WithInstance(db.DB, &postgres.Config{})
	case DialectSQLite:
		driver, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
	default:
		return 0, false, fmt.Errorf("unsupported dialect '%s'", db.dialect)
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to create %s driver: %w", db.dialect, err)
	}

	source, err := iofs.New(migrationFS, "migrations/"+string(db.dialect))
	if err != nil {
		return 0, false, fmt.Errorf("failed to create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(db.dialect), driver)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, false, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}

	return version, dirty, nil
}
