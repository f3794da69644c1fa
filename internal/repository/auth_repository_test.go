package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-reservation/internal/model"
	"github.com/iliyamo/library-reservation/internal/repository"
	"github.com/iliyamo/library-reservation/internal/utils"
)

func TestUserRepo(t *testing.T) {
	db := openTestDB(t)
	users := repository.NewUserRepo(db)
	ctx := context.Background()

	id, err := users.Create(ctx, "  Reader@Example.com ", "Ada Reader", "password123", model.RoleStudent, 4)
	require.NoError(t, err)

	u, err := users.GetByEmail(ctx, "READER@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "reader@example.com", u.Email)
	assert.Equal(t, "Ada Reader", u.FullName)
	assert.Equal(t, model.RoleStudent, u.Role)
	assert.True(t, u.IsActive)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, "password123"))

	_, err = users.Create(ctx, "reader@example.com", "Again", "password123", model.RoleStudent, 4)
	assert.ErrorIs(t, err, repository.ErrEmailExists)

	_, err = users.GetByID(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = users.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTokenRepo(t *testing.T) {
	db := openTestDB(t)
	tokens := repository.NewTokenRepo(db)
	ctx := context.Background()

	require.NoError(t, tokens.StoreRefresh(ctx, 5, "hash-a", time.Now().Add(time.Hour)))
	require.NoError(t, tokens.StoreRefresh(ctx, 5, "hash-b", time.Now().Add(time.Hour)))
	require.NoError(t, tokens.StoreRefresh(ctx, 5, "hash-old", time.Now().Add(-time.Hour)))

	uid, err := tokens.ValidateRefresh(ctx, "hash-a")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), uid)

	_, err = tokens.ValidateRefresh(ctx, "hash-old")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = tokens.ValidateRefresh(ctx, "unknown")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, tokens.RevokeByHash(ctx, "hash-a"))
	_, err = tokens.ValidateRefresh(ctx, "hash-a")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, tokens.RevokeAllForUser(ctx, 5))
	_, err = tokens.ValidateRefresh(ctx, "hash-b")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
