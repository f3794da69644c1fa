package repository_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-reservation/internal/database"
	"github.com/iliyamo/library-reservation/internal/model"
	"github.com/iliyamo/library-reservation/internal/repository"
)

// openTestDB migrates a fresh SQLite file under the test's temp dir.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, database.SQLiteDSN(filepath.Join(t.TempDir(), "library.db")))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.DriverSQLite))
	return db
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedBook(t *testing.T, db *sql.DB, title, author, genre string) *model.Book {
	t.Helper()
	b := &model.Book{Title: title, Author: author, Genre: genre}
	require.NoError(t, repository.NewBookRepo(db).Create(context.Background(), b))
	return b
}

func seedUser(t *testing.T, db *sql.DB, email string) uint64 {
	t.Helper()
	id, err := repository.NewUserRepo(db).Create(context.Background(), email, "Test User", "password123", model.RoleStudent, 4)
	require.NoError(t, err)
	return id
}
