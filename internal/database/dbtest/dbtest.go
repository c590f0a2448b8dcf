// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"rutas/api/internal/config"
	"rutas/api/internal/database"
)

// Open returns a fresh, fully migrated SQLite database that is closed when
// the test ends.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	db, err := database.Open(context.Background(), config.DatabaseConfig{
		Driver: config.DriverSQLite,
		DSN:    ":memory:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
