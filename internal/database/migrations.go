package database

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
)

//go:embed schema/*.sql
var migrationFiles embed.FS

// Migration is one numbered schema file pair: NNN_name.sql and NNN_name.down.sql
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// runMigrations applies every migration newer than the recorded version
func (db *DB) runMigrations() error {
	if _, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			dirty BOOLEAN NOT NULL DEFAULT 0
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	current, err := db.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := db.execMigration(m.Version, m.UpSQL, true); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// SchemaVersion returns the newest cleanly applied migration, 0 for none
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations WHERE dirty = 0").Scan(&version)
	return version, err
}

// execMigration runs one migration inside a transaction. Applying marks the
// version dirty until the SQL succeeded; rolling back deletes the record.
func (db *DB) execMigration(version int, script string, up bool) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if up {
		if _, err := tx.Exec("INSERT INTO schema_migrations (version, dirty) VALUES (?, 1)", version); err != nil {
			return fmt.Errorf("failed to mark migration as dirty: %w", err)
		}
	}

	if _, err := tx.Exec(script); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	if up {
		_, err = tx.Exec("UPDATE schema_migrations SET dirty = 0 WHERE version = ?", version)
	} else {
		_, err = tx.Exec("DELETE FROM schema_migrations WHERE version = ?", version)
	}
	if err != nil {
		return fmt.Errorf("failed to record migration %d: %w", version, err)
	}

	return tx.Commit()
}

// loadMigrations reads the embedded schema directory, sorted by version
func loadMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(migrationFiles, "schema")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema directory: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		prefix, rest, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}

		content, err := fs.ReadFile(migrationFiles, "schema/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", name, err)
		}

		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version}
			byVersion[version] = m
		}

		if base, isDown := strings.CutSuffix(rest, ".down.sql"); isDown {
			m.DownSQL = string(content)
			m.Name = base
		} else {
			m.UpSQL = string(content)
			m.Name = strings.TrimSuffix(rest, ".sql")
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.UpSQL != "" {
			migrations = append(migrations, *m)
		}
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Rollback reverts the newest applied migration
func (db *DB) Rollback() error {
	current, err := db.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	if current == 0 {
		return fmt.Errorf("no migrations to rollback")
	}

	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	for _, m := range migrations {
		if m.Version != current {
			continue
		}
		if m.DownSQL == "" {
			return fmt.Errorf("migration %d has no down SQL", current)
		}
		return db.execMigration(current, m.DownSQL, false)
	}
	return fmt.Errorf("migration %d not found", current)
}
