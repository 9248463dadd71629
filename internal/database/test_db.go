package database

import (
	"path/filepath"
	"testing"

	"license-server/internal/config"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewTestDB opens a migrated sqlite database in a per-test temp directory and
// closes it when the test ends.
func NewTestDB(tb testing.TB) *gorm.DB {
	tb.Helper()

	cfg := config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(tb.TempDir(), "license.db"),
	}
	db, err := Open(cfg, zap.NewNop(), true)
	if err != nil {
		tb.Fatalf("open test database: %v", err)
	}

	tb.Cleanup(func() {
		_ = Close(db)
	})
	return db
}
