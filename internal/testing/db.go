// Package testing provides testing utilities and helpers for the fundrisk project.
package testing

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"

	"github.com/aristath/fundrisk/internal/database"
)

// NewTestDB creates an isolated in-memory SQLite database for testing.
// Each call gets a unique shared-cache name, so tests never see each other's data.
// Returns the database instance and a cleanup function that closes the connection.
// The cleanup function is idempotent and can be called multiple times safely.
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()
	return NewTestDBWithSchema(t, name, "")
}

// NewTestDBWithSchema creates an isolated in-memory database and applies schema.
func NewTestDBWithSchema(t *testing.T, name string, schema string) (*database.DB, func()) {
	t.Helper()

	db, err := database.New(database.Config{Name: name + "-" + uuid.NewString()})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if schema != "" {
		if err := db.Migrate(schema); err != nil {
			_ = db.Close()
			t.Fatalf("Failed to apply schema for test database %s: %v", name, err)
		}
	}

	closed := false
	return db, func() {
		if closed {
			return
		}
		closed = true
		if err := db.Close(); err != nil {
			// Log error but don't fail test - cleanup should be idempotent
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	}
}

// GetRawConnection returns the underlying *sql.DB for direct queries in tests.
func GetRawConnection(db *database.DB) *sql.DB {
	return db.Conn()
}
