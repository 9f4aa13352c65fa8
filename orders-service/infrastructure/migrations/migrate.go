// Package migrations applies the saga schema with golang-migrate.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"log/slog"

	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/golang-migrate/migrate/v4"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

//go:embed sql/*.sql
var files embed.FS

// Result describes what Apply did
type Result string

const (
	ResultApplied Result = "applied"
	ResultNoop    Result = "noop"
	ResultFailed  Result = "failed"
)

// Apply runs every pending up migration against the Postgres instance at dsn
func Apply(ctx context.Context, dsn string, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return ResultFailed, errors.Wrap(err, "failed to open migrations connection")
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Warn("database migrations close", "error", cerr)
		}
	}()

	if err := db.PingContext(ctx); err != nil {
		return ResultFailed, errors.Wrap(err, "failed to ping migrations database")
	}

	m, err := newMigrate(db)
	if err != nil {
		return ResultFailed, err
	}
	defer func() {
		sourceErr, dbErr := m.Close()
		if sourceErr != nil {
			logger.Warn("database migrations source close", "error", sourceErr)
		}
		if dbErr != nil {
			logger.Warn("database migrations db close", "error", dbErr)
		}
	}()

	logger.InfoContext(ctx, "running database migrations")
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			record(ctx, ResultNoop)
			logger.InfoContext(ctx, "database migrations up-to-date")
			return ResultNoop, nil
		}
		record(ctx, ResultFailed)
		return ResultFailed, errors.Wrap(err, "failed to apply migrations")
	}

	record(ctx, ResultApplied)
	logger.InfoContext(ctx, "database migrations applied successfully")
	return ResultApplied, nil
}

// Version reports the current schema version and whether the last migration left it dirty
func Version(ctx context.Context, dsn string) (uint, bool, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to open migrations connection")
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return 0, false, errors.Wrap(err, "failed to ping migrations database")
	}

	m, err := newMigrate(db)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to read migration version")
	}
	return version, dirty, nil
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	source, err := iofs.New(files, "sql")
	if err != nil {
		return nil, errors.Wrap(err, "failed to load embedded migrations")
	}

	var driverConfig pgxv5.Config
	driver, err := pgxv5.WithInstance(db, &driverConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialise pgx v5 driver")
	}

	m, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialise migrate instance")
	}
	return m, nil
}

func record(ctx context.Context, result Result) {
	telemetry.RecordCounter(ctx, "saga_db_migrations_total", "Total migrations executed via golang-migrate",
		1, attribute.String("result", string(result)))
}
