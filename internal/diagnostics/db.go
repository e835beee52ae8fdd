// Package diagnostics is a non-core engineering tool: it optionally records
// raw scan samples (RSSI, decoded payload, finder output) from a receiver
// session for offline charting and ad-hoc SQL browsing. None of the four
// core subsystems depend on it; it is wired from cmd/phoenix-diagnostics
// and from cmd/phoenix-receiver's optional -diag-db recording.
package diagnostics

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a sqlite handle holding recorded diagnostic sessions.
type DB struct {
	*sql.DB
}

// Open opens (creating if necessary) a sqlite file at path and migrates its
// schema to the latest version.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: open %s: %w", path, err)
	}
	if path == ":memory:" {
		// An in-memory database is private to one connection; cap the pool
		// at one so migrations and queries all see the same database.
		sqlDB.SetMaxOpenConns(1)
	}
	db := &DB{sqlDB}
	if err := db.migrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrateUp() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("diagnostics: migration source: %w", err)
	}
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("diagnostics: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("diagnostics: migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("diagnostics: migrate up: %w", err)
	}
	return nil
}
