// Package database provides the SQLite journal of moderation activity: setup,
// migrations, models and the data access layer (Store).
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/edgard/phraseguard/migrations"

	_ "modernc.org/sqlite" //revive:disable:blank-imports
)

// journalPragmas are applied to every connection opened by the driver.
var journalPragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

// Open connects to the journal database at path and brings its schema up to
// date. path may already carry driver query parameters, in which case it is
// used unchanged.
func Open(path string, logger *slog.Logger) (*sqlx.DB, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "database")

	db, err := sqlx.Connect("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database %s: %w", path, err)
	}

	// One connection: SQLite has a single writer and the journal is low volume.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	applied, err := migrateUp(db.DB)
	if err != nil {
		Close(db, log)
		return nil, err
	}
	if applied {
		log.Info("Journal schema migrated", "path", path)
	} else {
		log.Debug("Journal schema already current", "path", path)
	}

	log.Info("Journal database ready", "path", path)
	return db, nil
}

// Close closes the pool, logging instead of returning the error since it only
// runs on the way out.
func Close(db *sqlx.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := db.Close(); err != nil {
		logger.Error("Failed to close journal database", "error", err)
		return
	}
	logger.Debug("Journal database closed")
}

// DSN appends the journal pragmas to a plain file path.
func DSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	params := make([]string, 0, len(journalPragmas))
	for _, p := range journalPragmas {
		params = append(params, "_pragma="+p)
	}
	return path + "?" + strings.Join(params, "&")
}

// migrateUp applies the embedded migrations and reports whether any ran.
func migrateUp(db *sql.DB) (bool, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return false, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	target, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return false, fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", target)
	if err != nil {
		return false, fmt.Errorf("failed to create migrator: %w", err)
	}

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return true, nil
}
