package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLDSN(t *testing.T) {
	assert.Equal(t, "app:pw@tcp(db:3306)/library?charset=utf8mb4&parseTime=true&loc=UTC",
		MySQLDSN("app", "pw", "db", "3306", "library"))
	assert.Equal(t, "root@tcp(localhost:3306)/library?charset=utf8mb4&parseTime=true&loc=UTC",
		MySQLDSN("root", "", "localhost", "3306", "library"))
}

func TestMigrateSQLiteTwice(t *testing.T) {
	db, err := Open(DriverSQLite, SQLiteDSN(filepath.Join(t.TempDir(), "library.db")))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, DriverSQLite))
	require.NoError(t, Migrate(ctx, db, DriverSQLite))

	for _, table := range []string{"users", "refresh_tokens", "books", "reservations", "borrowings", "notifications"} {
		var name string
		err := db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		assert.NoError(t, err, table)
	}
}
