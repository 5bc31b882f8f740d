package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.True(t, CheckPassword("s3cret", hash))
	assert.False(t, CheckPassword("wrong", hash))
	assert.False(t, CheckPassword("s3cret", "not-a-hash"))
}

func TestGenerateSessionTokenIsUnique(t *testing.T) {
	a, err := GenerateSessionToken()
	require.NoError(t, err)
	b, err := GenerateSessionToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestIssueAndParseToken(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := IssueToken(secret, 7, "alice", "sess-1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	claims, err := ParseToken(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "sess-1", claims.ID)
}

func TestParseTokenRejects(t *testing.T) {
	secret := []byte("test-secret")

	expired, err := IssueToken(secret, 1, "bob", "s", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	_, err = ParseToken(secret, expired)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired token")

	valid, err := IssueToken(secret, 1, "bob", "s", time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = ParseToken([]byte("other-secret"), valid)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong key")

	_, err = ParseToken(secret, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken, "malformed")
}

func TestExtractBearer(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	assert.Empty(t, ExtractBearer(r))

	r.Header.Set("Authorization", "Bearer abc.def")
	assert.Equal(t, "abc.def", ExtractBearer(r))

	r.Header.Set("Authorization", "Basic xyz")
	assert.Empty(t, ExtractBearer(r))
}
