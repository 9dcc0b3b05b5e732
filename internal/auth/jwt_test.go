package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lpforge/lpforge/internal/auth"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := auth.IssueToken("secret", "user-1", "owner@example.com", time.Hour)
	require.NoError(t, err)

	userID, err := auth.ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := auth.IssueToken("secret", "user-1", "owner@example.com", time.Hour)
	require.NoError(t, err)

	_, err = auth.ParseToken("other", token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_Expired(t *testing.T) {
	token, err := auth.IssueToken("secret", "user-1", "owner@example.com", -time.Minute)
	require.NoError(t, err)

	_, err = auth.ParseToken("secret", token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := auth.ParseToken("secret", "not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("hunter2hunter2", 4)
	require.NoError(t, err)

	assert.True(t, auth.CheckPassword(hash, "hunter2hunter2"))
	assert.False(t, auth.CheckPassword(hash, "wrong"))
}
