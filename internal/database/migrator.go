package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/helixir/book-content-service/migrations"
)

// MigrationsTable records the applied schema version.
const MigrationsTable = "schema_migrations"

// Migrator applies the content cache schema through golang-migrate. It owns a
// database/sql handle over the pool that Close releases.
type Migrator struct {
	m      *migrate.Migrate
	conn   *sql.DB
	logger zerolog.Logger
}

// NewMigrator creates a migrator reading migrations from dir, or from the
// migrations embedded in the binary when dir is empty.
func NewMigrator(db *DB, dir string, logger zerolog.Logger) (*Migrator, error) {
	switch {
	case db == nil:
		return nil, errors.New("migrator: database is required")
	case db.Pool == nil:
		return nil, errors.New("migrator: database pool not initialized")
	}

	src, err := migrationSource(dir)
	if err != nil {
		return nil, err
	}

	conn := stdlib.OpenDBFromPool(db.Pool)
	driver, err := postgres.WithInstance(conn, &postgres.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrator: postgres driver: %w", err)
	}

	m, err := migrate.NewWithInstance("migrations", src, "postgres", driver)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrator: %w", err)
	}
	return &Migrator{m: m, conn: conn, logger: logger}, nil
}

func migrationSource(dir string) (source.Driver, error) {
	if dir == "" {
		src, err := iofs.New(migrations.FS, ".")
		if err != nil {
			return nil, fmt.Errorf("migrator: embedded migrations: %w", err)
		}
		return src, nil
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("migrator: migrations directory: %w", err)
	}
	src, err := (&file.File{}).Open("file://" + dir)
	if err != nil {
		return nil, fmt.Errorf("migrator: open %s: %w", dir, err)
	}
	return src, nil
}

// Up applies every pending migration.
func (m *Migrator) Up() error {
	return m.apply("up", m.m.Up)
}

// Down rolls back every applied migration.
func (m *Migrator) Down() error {
	return m.apply("down", m.m.Down)
}

// Steps applies n migrations, rolling back when n is negative. Stepping past
// either end is not an error.
func (m *Migrator) Steps(n int) error {
	return m.apply(fmt.Sprintf("steps(%d)", n), func() error { return m.m.Steps(n) })
}

func (m *Migrator) apply(op string, fn func() error) error {
	log := m.logger.With().Str("migration", op).Logger()
	log.Info().Msg("applying migrations")

	err := fn()
	switch {
	case err == nil:
	case errors.Is(err, migrate.ErrNoChange), errors.Is(err, fs.ErrNotExist):
		// golang-migrate reports stepping past the last file as fs.ErrNotExist.
		log.Info().Msg("schema already up to date")
		return nil
	default:
		return fmt.Errorf("migrate %s: %w", op, err)
	}

	if v, dirty, verr := m.Version(); verr == nil {
		log.Info().Uint("version", v).Bool("dirty", dirty).Msg("migrations applied")
	}
	return nil
}

// Version returns the applied schema version and whether the last migration
// failed halfway. A database with no migrations applied reports version 0.
func (m *Migrator) Version() (uint, bool, error) {
	v, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// Force records version as applied without running anything. It is the way
// out of a dirty state after a failed migration has been fixed by hand.
func (m *Migrator) Force(version int) error {
	m.logger.Warn().Int("version", version).Msg("forcing migration version")
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Close releases the migration source and the sql handle.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr, m.conn.Close())
}
