// Package database handles database connections and migrations.
package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/tursodatabase/go-libsql"

	"github.com/mkochhar/jobops/internal/database/migrations"
)

// newEmbeddedReplicaConnector wires an embedded-replica libsql connector
// synced against a remote Turso database.
func newEmbeddedReplicaConnector(dbPath, tursoURL, tursoToken string) (*libsql.Connector, error) {
	return libsql.NewEmbeddedReplicaConnector(dbPath, tursoURL,
		libsql.WithAuthToken(tursoToken),
		libsql.WithReadYourWrites(true),
	)
}

// New creates a new database connection using libsql.
// Supports:
//   - Local files: DATABASE_URL="file:path/to/db.sqlite" (no Turso config needed)
//   - Embedded replica: set tursoURL + tursoToken for sync with Turso cloud
//   - Local libsql server: run `turso dev` and use DATABASE_URL="http://127.0.0.1:8080"
func New(dsn, tursoURL, tursoToken string) (*sql.DB, error) {
	var db *sql.DB
	isTurso := tursoURL != "" && tursoToken != ""

	if isTurso {
		dbPath := strings.TrimPrefix(dsn, "file:")
		dbPath = strings.Split(dbPath, "?")[0]

		connector, err := newEmbeddedReplicaConnector(dbPath, tursoURL, tursoToken)
		if err != nil {
			return nil, fmt.Errorf("failed to create Turso connector: %w", err)
		}
		db = sql.OpenDB(connector)
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(10)
	} else {
		var err error
		db, err = sql.Open("libsql", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		maxConns := runtime.NumCPU()
		if maxConns < 4 {
			maxConns = 4
		}
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns / 2)
	}

	pragmas := []struct {
		query string
		name  string
	}{
		{"PRAGMA journal_mode = WAL", "WAL mode"},
		{"PRAGMA busy_timeout = 30000", "busy timeout"},
		{"PRAGMA foreign_keys = ON", "foreign keys"},
		{"PRAGMA synchronous = NORMAL", "synchronous mode"},
		{"PRAGMA temp_store = memory", "temp store"},
	}

	for _, p := range pragmas {
		var result string
		if err := db.QueryRow(p.query).Scan(&result); err != nil {
			if _, execErr := db.Exec(p.query); execErr != nil {
				return nil, fmt.Errorf("failed to set %s: %w", p.name, execErr)
			}
		}
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Migrate runs database migrations.
func Migrate(db *sql.DB) error {
	return MigrateWithLogger(db, nil)
}

// MigrateWithLogger runs database migrations with a custom logger.
func MigrateWithLogger(db *sql.DB, logger *slog.Logger) error {
	return migrations.Run(db, logger)
}

// GetLatestSchemaVersion returns the latest applied migration version.
func GetLatestSchemaVersion(db *sql.DB) (string, error) {
	return migrations.GetLatestVersion(db)
}

// GetMigrationCount returns the total number of applied migrations.
func GetMigrationCount(db *sql.DB) (int, error) {
	return migrations.GetMigrationCount(db)
}

// HasColumn reports whether a table carries the given column, used by the
// SchemaGuard error kind to detect optional features whose migrations have
// not yet been applied.
func HasColumn(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if strings.EqualFold(name, column) {
			return true, nil
		}
	}
	return false, rows.Err()
}
