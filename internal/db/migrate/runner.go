// Package migrate applies the device store schema from embedded SQL files using golang-migrate.
package migrate

import (
	"errors"
	"fmt"

	"scheduling-platform/identity/internal/db"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ErrNoChange is returned when Up/Down has nothing to do (already at target version).
var ErrNoChange = migrate.ErrNoChange

// Driver names match config.StoreSQLite and config.StorePostgres.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DatabaseURL builds the golang-migrate database URL for driver. For sqlite target is a file path;
// for postgres it is the DSN and is returned unchanged.
func DatabaseURL(driver, target string) (string, error) {
	if target == "" {
		return "", errors.New("migrate: database target is empty; set STORE_PATH or DATABASE_URL")
	}
	switch driver {
	case DriverSQLite:
		return "sqlite3://" + target, nil
	case DriverPostgres:
		return target, nil
	default:
		return "", fmt.Errorf("migrate: driver %q has no SQL schema", driver)
	}
}

// Run applies migrations for driver in the given direction. direction must be "up" or "down".
// Returns nil when already at the target version.
func Run(driver, target, direction string) error {
	if direction != "up" && direction != "down" {
		return fmt.Errorf("direction must be up or down, got %q", direction)
	}
	url, err := DatabaseURL(driver, target)
	if err != nil {
		return err
	}

	sourceDriver, err := iofs.New(db.MigrationFS, "migrations/"+driver)
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, url)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
