package pg

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	pgdriver "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var fs embed.FS

const (
	migratePingEvery = 500 * time.Millisecond
	migratePingMax   = 30
)

// RunMigrations brings the price_history schema up to date.
func RunMigrations(ctx context.Context, db *DB) error {
	m, closeFn, err := newMigrator(ctx, db)
	if err != nil {
		return err
	}
	defer closeFn()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// DropSchema rolls every migration back. Used by tests that need the
// missing-table path.
func DropSchema(ctx context.Context, db *DB) error {
	m, closeFn, err := newMigrator(ctx, db)
	if err != nil {
		return err
	}
	defer closeFn()
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

func newMigrator(ctx context.Context, db *DB) (*migrate.Migrate, func(), error) {
	src, err := iofs.New(fs, "migrations")
	if err != nil {
		return nil, nil, fmt.Errorf("migrate src: %w", err)
	}
	sqldb, err := sql.Open("pgx", db.Pool.Config().ConnString())
	if err != nil {
		return nil, nil, fmt.Errorf("open sql db: %w", err)
	}
	// the container may not accept connections immediately
	ping := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(migratePingEvery), migratePingMax), ctx)
	if err := backoff.Retry(func() error { return sqldb.PingContext(ctx) }, ping); err != nil {
		_ = sqldb.Close()
		return nil, nil, fmt.Errorf("ping db: %w", err)
	}
	driver, err := pgdriver.WithInstance(sqldb, &pgdriver.Config{})
	if err != nil {
		_ = sqldb.Close()
		return nil, nil, fmt.Errorf("migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = sqldb.Close()
		return nil, nil, fmt.Errorf("migrate init: %w", err)
	}
	return m, func() { _, _ = m.Close() }, nil
}
