package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rutas/api/internal/config"
)

var memoryDB = config.DatabaseConfig{Driver: config.DriverSQLite, DSN: ":memory:"}

func TestOpen_MigratesSchema(t *testing.T) {
	db, err := Open(context.Background(), memoryDB)
	require.NoError(t, err)
	defer db.Close()

	var version int64
	require.NoError(t, db.QueryRow(`SELECT MAX(version_id) FROM goose_db_version`).Scan(&version))
	assert.Equal(t, int64(3), version)

	_, err = db.Exec(`INSERT INTO users (email, password_hash, username) VALUES ('a@x.com', 'h', 'alice')`)
	require.NoError(t, err)

	var (
		role      string
		verified  bool
		suspended bool
	)
	require.NoError(t, db.QueryRow(
		`SELECT role, email_verified, suspended FROM users WHERE email = 'a@x.com'`,
	).Scan(&role, &verified, &suspended))
	assert.Equal(t, "ROLE_USER", role)
	assert.False(t, verified)
	assert.False(t, suspended)
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db, err := Open(context.Background(), memoryDB)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(context.Background(), db, goose.DialectSQLite3))
}

func TestOpen_CreatesSQLiteDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	dsn := "file:" + filepath.Join(dir, "db.sqlite") + "?_pragma=busy_timeout(5000)"

	db, err := Open(context.Background(), config.DatabaseConfig{Driver: config.DriverSQLite, DSN: dsn})
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(dir)
	assert.NoError(t, err)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "mysql", DSN: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestMapError_SQLiteUnique(t *testing.T) {
	db, err := Open(context.Background(), memoryDB)
	require.NoError(t, err)
	defer db.Close()

	insert := `INSERT INTO users (email, password_hash, username) VALUES ('dup@x.com', 'h', 'u')`
	_, err = db.Exec(insert)
	require.NoError(t, err)
	_, err = db.Exec(insert)
	require.Error(t, err)

	assert.ErrorIs(t, MapError(err), ErrUniqueViolation)
}

func TestMapError_PostgresUnique(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	mapped := MapError(err)
	assert.ErrorIs(t, mapped, ErrUniqueViolation)
	assert.Contains(t, mapped.Error(), "users_email_key")
}

func TestMapError_PassThrough(t *testing.T) {
	assert.NoError(t, MapError(nil))

	other := errors.New("connection reset")
	assert.Same(t, other, MapError(other))

	fk := &pgconn.PgError{Code: "23503"}
	assert.NotErrorIs(t, MapError(fk), ErrUniqueViolation)
}

func TestEnsureSQLiteDir_SkipsMemory(t *testing.T) {
	for _, dsn := range []string{":memory:", "file::memory:?cache=shared", ""} {
		assert.NoError(t, ensureSQLiteDir(dsn), dsn)
	}
}
