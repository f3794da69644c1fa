package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-reservation/internal/model"
	"github.com/iliyamo/library-reservation/internal/repository"
)

func TestBookRepo_CreateAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewBookRepo(db)
	ctx := context.Background()

	b := seedBook(t, db, "Dune", "Frank Herbert", "sci-fi")
	assert.NotZero(t, b.ID)
	assert.Equal(t, model.BookAvailable, b.Status)

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, "Frank Herbert", got.Author)
	assert.Equal(t, model.BookAvailable, got.Status)

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBookRepo_ListFilters(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewBookRepo(db)
	ctx := context.Background()

	dune := seedBook(t, db, "Dune", "Frank Herbert", "sci-fi")
	seedBook(t, db, "Emma", "Jane Austen", "classic")
	seedBook(t, db, "Persuasion", "Jane Austen", "classic")
	require.NoError(t, repo.UpdateStatus(ctx, dune.ID, model.BookBorrowed, time.Now()))

	all, err := repo.List(ctx, repository.BookFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Dune", all[0].Title)
	assert.Equal(t, "Persuasion", all[2].Title)

	byAuthor, err := repo.List(ctx, repository.BookFilter{Query: "AUSTEN"})
	require.NoError(t, err)
	assert.Len(t, byAuthor, 2)

	byGenre, err := repo.List(ctx, repository.BookFilter{Genre: "sci-fi"})
	require.NoError(t, err)
	require.Len(t, byGenre, 1)
	assert.Equal(t, dune.ID, byGenre[0].ID)

	available, err := repo.List(ctx, repository.BookFilter{Status: model.BookAvailable})
	require.NoError(t, err)
	assert.Len(t, available, 2)

	page, err := repo.List(ctx, repository.BookFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Emma", page[0].Title)
}

func TestBookRepo_UpdateStatusMissing(t *testing.T) {
	db := openTestDB(t)
	err := repository.NewBookRepo(db).UpdateStatus(context.Background(), 42, model.BookBorrowed, time.Now())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
