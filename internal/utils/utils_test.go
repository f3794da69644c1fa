package utils

import (
    "testing"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
    tok, err := NewAccessToken("secret", 42, "ada@example.com", "ADMIN", 5)
    require.NoError(t, err)

    claims, err := ParseAccessToken("secret", tok.Token)
    require.NoError(t, err)
    id, err := claims.UserID()
    require.NoError(t, err)
    assert.Equal(t, uint64(42), id)
    assert.Equal(t, "ada@example.com", claims.Email)
    assert.Equal(t, "ADMIN", claims.Role)
}

func TestParseAccessToken_Rejects(t *testing.T) {
    tok, err := NewAccessToken("secret", 1, "a@b.c", "STUDENT", 5)
    require.NoError(t, err)
    _, err = ParseAccessToken("other", tok.Token)
    assert.Error(t, err)

    expired, err := NewAccessToken("secret", 1, "a@b.c", "STUDENT", -1)
    require.NoError(t, err)
    _, err = ParseAccessToken("secret", expired.Token)
    assert.ErrorIs(t, err, jwt.ErrTokenExpired)

    _, err = ParseAccessToken("secret", "not.a.jwt")
    assert.Error(t, err)
}

func TestRefreshToken(t *testing.T) {
    a, err := NewRefreshToken(7)
    require.NoError(t, err)
    b, err := NewRefreshToken(7)
    require.NoError(t, err)
    assert.Len(t, a.Raw, 96)
    assert.NotEqual(t, a.Raw, b.Raw)
    assert.Equal(t, HashRefreshRaw(a.Raw), HashRefreshRaw(a.Raw))
    assert.Len(t, HashRefreshRaw(a.Raw), 64)
}

func TestPassword(t *testing.T) {
    hash, err := HashPassword("correct horse", bcrypt.MinCost)
    require.NoError(t, err)
    assert.True(t, VerifyPassword(hash, "correct horse"))
    assert.False(t, VerifyPassword(hash, "wrong"))
}
