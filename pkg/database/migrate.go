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
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/booking-calendar-api/pkg/config"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// RunMigrations applies every pending migration for the configured driver.
func RunMigrations(db *sqlx.DB, driverName string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if driverName == "" {
		driverName = config.DriverPostgres
	}

	source, err := iofs.New(migrationsFS, "migrations/"+driverName)
	if err != nil {
		return fmt.Errorf("load %s migrations: %w", driverName, err)
	}

	var driver migratedb.Driver
	switch driverName {
	case config.DriverPostgres:
		pg, err := postgres.WithInstance(db.DB, &postgres.Config{})
		if err != nil {
			return fmt.Errorf("create postgres migration driver: %w", err)
		}
		// The postgres driver pins a dedicated connection; release it once done.
		defer pg.Close() //nolint:errcheck
		driver = pg
	case config.DriverSQLite:
		// Closing the sqlite driver would close the shared *sql.DB, so it is left open.
		driver, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
		if err != nil {
			return fmt.Errorf("create sqlite migration driver: %w", err)
		}
	default:
		return fmt.Errorf("unsupported migration driver %q", driverName)
	}

	m, err := migrate.NewWithInstance("iofs", source, driverName, driver)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info("no migrations applied")
	case err != nil:
		return fmt.Errorf("read migration version: %w", err)
	case dirty:
		logger.Warn("database migration left dirty", zap.Uint("version", version))
	default:
		logger.Info("database migrations complete", zap.Uint("version", version))
	}

	return nil
}
