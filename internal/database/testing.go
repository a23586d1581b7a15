package database

import (
	"github.com/zfogg/circle/internal/config"
	"gorm.io/gorm"
)

// TB is the subset of testing.TB that NewTestDB reports through
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
	Cleanup(func())
}

// NewTestDB opens a migrated in-memory SQLite database that is closed when
// the test ends. Each call gets an isolated database.
func NewTestDB(t TB) *gorm.DB {
	t.Helper()

	db, err := Open(config.DatabaseConfig{Driver: config.DriverSQLite, SQLitePath: ":memory:"}, false)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := MigrateDB(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
