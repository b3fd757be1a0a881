package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessToken_RoundTrip(t *testing.T) {
	token, expires, err := GenerateAccessToken("secret", "admin-1", "sess-1", "admin", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := ParseAccessToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "admin", claims.Role)
}

func TestAccessToken_Rejects(t *testing.T) {
	token, _, err := GenerateAccessToken("secret", "admin-1", "sess-1", "admin", time.Hour)
	require.NoError(t, err)

	_, err = ParseAccessToken(token, "other")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, _, err := GenerateAccessToken("secret", "admin-1", "sess-1", "admin", -time.Minute)
	require.NoError(t, err)
	_, err = ParseAccessToken(expired, "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseAccessToken("not-a-token", "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
