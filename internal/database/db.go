// Package database persists dispatched mode events and the last known channel
// state in SQLite.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the database connection and provides access to database operations
type DB struct {
	conn *sql.DB
	path string
}

// New opens the database at dbPath, creating the file and its directory when
// missing, and applies pending migrations
func New(dbPath string, walMode bool) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{
		conn: conn,
		path: dbPath,
	}

	if walMode {
		if err := db.configureWAL(); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to configure WAL mode: %w", err)
		}
	}

	if err := db.runMigrations(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Conn returns the underlying database connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the file the database was opened from
func (db *DB) Path() string {
	return db.path
}

// configureWAL switches the journal to write-ahead logging. The recorder
// writes on every event while the CLI may read concurrently.
func (db *DB) configureWAL() error {
	var journalMode string
	if err := db.conn.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("failed to enable WAL mode: got %s instead", journalMode)
	}

	pragmas := []string{
		"PRAGMA wal_autocheckpoint=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.conn.Exec(pragma); err != nil {
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return nil
}
