package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// LatestVersion asks Migrate for the newest schema.
const LatestVersion = -1

// MigrationResult describes what Migrate did.
type MigrationResult struct {
	From    uint
	To      uint
	Changed bool
}

// Migrate moves the schema of a SQL backend.
//   - target < 0 migrates to the latest version.
//   - target == 0 rolls back every migration.
//   - target > 0 migrates to that version.
func Migrate(ctx context.Context, backend Backend, dsn string, target int) (MigrationResult, error) {
	if !backend.IsSQL() {
		return MigrationResult{}, fmt.Errorf("migrations are not supported for the %s backend", backend)
	}

	db, err := openDB(ctx, backend, dsn)
	if err != nil {
		return MigrationResult{}, err
	}
	defer func() { _ = db.Close() }()

	var driver database.Driver
	switch backend {
	case BackendSQLite:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	case BackendPostgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	case BackendMySQL:
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{})
	}
	if err != nil {
		return MigrationResult{}, fmt.Errorf("failed to create %s migrate driver: %w", backend, err)
	}

	sub, err := fs.Sub(migrationsFS, "migrations/"+string(backend))
	if err != nil {
		return MigrationResult{}, fmt.Errorf("failed to access migrations directory: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return MigrationResult{}, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "rapport", driver)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	current, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return MigrationResult{}, fmt.Errorf("failed to get current migration version: %w", err)
	}
	if dirty {
		return MigrationResult{}, fmt.Errorf("database is in a dirty state at version %d", current)
	}

	switch {
	case target < 0:
		err = m.Up()
	case target == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(target))
	}
	res := MigrationResult{From: current}
	if errors.Is(err, migrate.ErrNoChange) {
		res.To = current
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("failed to migrate %s schema: %w", backend, err)
	}

	res.Changed = true
	if v, _, verr := m.Version(); verr == nil {
		res.To = v
	}
	return res, nil
}
