// Package db embeds the SQL migrations and seeds. Migrations run through
// golang-migrate; seeds are applied in filename order.
package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql seeds/*.sql
var files embed.FS

// Source returns the embedded migrations as a golang-migrate source.
func Source() (source.Driver, error) {
	src, err := iofs.New(files, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	return src, nil
}

// Migrate brings the schema up to the newest embedded migration and returns
// the resulting version. It holds one connection of conn for the duration
// and leaves the pool open.
func Migrate(ctx context.Context, conn *sql.DB, log *zap.Logger) (uint, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c, err := conn.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire migration connection: %w", err)
	}
	driver, err := postgres.WithConnection(ctx, c, &postgres.Config{})
	if err != nil {
		_ = c.Close()
		return 0, fmt.Errorf("create postgres driver: %w", err)
	}
	src, err := Source()
	if err != nil {
		_ = driver.Close()
		return 0, err
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = src.Close()
		_ = driver.Close()
		return 0, fmt.Errorf("create migrate instance: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Warn("close migrator", zap.NamedError("source", srcErr), zap.NamedError("database", dbErr))
		}
	}()

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Info("no migrations to apply")
	case err != nil:
		return 0, fmt.Errorf("migrate up: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	log.Info("migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return version, nil
}

// Seed runs every seed file. Seeds are written to be re-runnable.
func Seed(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	names, err := sqlFiles("seeds")
	if err != nil {
		return err
	}
	for _, name := range names {
		content, err := files.ReadFile(path.Join("seeds", name))
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply seed %s: %w", name, err)
		}
		log.Info("seed applied", zap.String("file", name))
	}
	return nil
}

func sqlFiles(dir string) ([]string, error) {
	entries, err := fs.ReadDir(files, dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
