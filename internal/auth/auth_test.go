package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fahmycader/metermate-backend/internal/model"
)

func TestTokens_IssueAndVerify(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	user := &model.User{ID: "user-1", Role: model.RoleWorker}

	signed, err := tokens.Issue(user)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, model.RoleWorker, claims.Role)
}

func TestTokens_WrongSecretRejected(t *testing.T) {
	signed, err := NewTokens("secret-a", time.Hour).Issue(&model.User{ID: "u"})
	require.NoError(t, err)

	_, err = NewTokens("secret-b", time.Hour).Verify(signed)
	assert.Error(t, err)
}

func TestTokens_ExpiredRejected(t *testing.T) {
	tokens := NewTokens("test-secret", -time.Minute)
	signed, err := tokens.Issue(&model.User{ID: "u"})
	require.NoError(t, err)

	_, err = tokens.Verify(signed)
	assert.Error(t, err)
}

func TestTokens_GarbageRejected(t *testing.T) {
	_, err := NewTokens("test-secret", time.Hour).Verify("not-a-token")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, CheckPassword(hash, "correct horse battery staple"))
	assert.False(t, CheckPassword(hash, "wrong password"))
	assert.False(t, CheckPassword("not-a-hash", "anything"))
}
