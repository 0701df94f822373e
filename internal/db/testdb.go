package db

import (
	"path/filepath"
	"testing"

	"art_market/internal/config"

	"gorm.io/gorm"
)

// NewTestDB creates a fresh SQLite database in a temp dir with the schema applied.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	cfg := &config.Config{DBDriver: config.DriverSQLite, DBPath: filepath.Join(t.TempDir(), "test.db")}
	database, err := Open(cfg)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	if err := Migrate(database); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return database
}
