package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/go-extras/go-kit/must"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations is the schema shipped with the binary.
var Migrations = must.Must(fs.Sub(embedded, "migrations"))

const migrationsTable = "schema_migrations"

// Migrator applies NNNNNNNNNN_description.(up|down).sql files from an fs.FS
// and tracks the applied version in schema_migrations.
type Migrator struct {
	db     *sql.DB
	fsys   fs.FS
	logger *slog.Logger
}

// NewMigrator checks that fsys holds a readable migration set.
func NewMigrator(db *sql.DB, fsys fs.FS, logger *slog.Logger) (*Migrator, error) {
	src, err := iofs.New(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	_ = src.Close()
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{db: db, fsys: fsys, logger: logger}, nil
}

// CurrentVersion returns the applied version, or 0 on an empty schema.
func (m *Migrator) CurrentVersion(ctx context.Context) (int, error) {
	var version int
	err := m.run(ctx, func(mg *migrate.Migrate) error {
		v, err := currentVersion(mg)
		version = v
		return err
	})
	return version, err
}

// Up applies every pending migration and returns the resulting version.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	var version int
	err := m.run(ctx, func(mg *migrate.Migrate) error {
		from, err := currentVersion(mg)
		if err != nil {
			return err
		}
		if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("apply migrations: %w", err)
		}
		if version, err = currentVersion(mg); err != nil {
			return err
		}
		if version != from {
			m.logger.InfoContext(ctx, "migrations applied", "from", from, "to", version)
		}
		return nil
	})
	return version, err
}

// Down rolls back the most recently applied migration. It is a no-op at version 0.
func (m *Migrator) Down(ctx context.Context) error {
	return m.run(ctx, func(mg *migrate.Migrate) error {
		current, err := currentVersion(mg)
		if err != nil || current == 0 {
			return err
		}
		if err := mg.Steps(-1); err != nil {
			return fmt.Errorf("revert migration %d: %w", current, err)
		}
		m.logger.InfoContext(ctx, "migration reverted", "version", current)
		return nil
	})
}

// run opens a dedicated connection so closing the migrate instance leaves the pool intact.
func (m *Migrator) run(ctx context.Context, fn func(*migrate.Migrate) error) error {
	src, err := iofs.New(m.fsys, ".")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	conn, err := m.db.Conn(ctx)
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		_ = src.Close()
		_ = conn.Close()
		return fmt.Errorf("init migration driver: %w", err)
	}
	mg, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = src.Close()
		_ = driver.Close()
		return fmt.Errorf("init migrations: %w", err)
	}
	mg.Log = migrateLogger{ctx: ctx, logger: m.logger}
	defer func() {
		srcErr, dbErr := mg.Close()
		if err := errors.Join(srcErr, dbErr); err != nil {
			m.logger.WarnContext(ctx, "failed to close migrator", "error", err)
		}
	}()
	stop := context.AfterFunc(ctx, func() { mg.GracefulStop <- true })
	defer stop()
	return fn(mg)
}

func currentVersion(mg *migrate.Migrate) (int, error) {
	version, dirty, err := mg.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("schema version %d is dirty; fix it by hand and force the version", version)
	}
	return int(version), nil
}

// migrateLogger routes golang-migrate output through slog.
type migrateLogger struct {
	ctx    context.Context
	logger *slog.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.InfoContext(l.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrate")
}

func (l migrateLogger) Verbose() bool {
	return l.logger.Enabled(l.ctx, slog.LevelDebug)
}
