package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/teamtask-api/internal/database"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a migrated in-memory SQLite database that is closed when the
// test ends. The pool is pinned to one connection so every query sees the same
// in-memory database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(database.Models()...))
	require.NoError(t, database.AddIndexes(db))

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return db
}
