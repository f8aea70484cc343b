package database

import (
	"path/filepath"
	"testing"
)

// NewTestDB creates a database in a temporary directory and returns it with
// a cleanup function. It is exported for tests of other packages.
func NewTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(dbPath, true)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	}
	return db, cleanup
}
