package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// CreateTestDB opens an empty SQLite database file in a temp directory.
// The database is closed when the test ends.
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(CreateTempDir(t), "test.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Fatalf("Failed to ping test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
