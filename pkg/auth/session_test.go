package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/ingabireol/bizclient/pkg/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "test-user",
		"exp": expiresAt.Unix(),
	})

	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestSessionStartsUnauthenticated(t *testing.T) {
	session := NewSession()

	assert.False(t, session.Authenticated())
	assert.Nil(t, session.User())
}

func TestSessionEstablishAndClear(t *testing.T) {
	session := NewSession()
	user := &domain.User{Username: "olivier"}

	session.Establish(&TokenPair{
		AccessToken:          "opaque-token",
		AccessTokenExpiresAt: time.Now().Add(time.Hour),
	}, user)

	assert.True(t, session.Authenticated())
	require.NotNil(t, session.User())
	assert.Equal(t, "olivier", session.User().Username)

	session.Clear()

	assert.False(t, session.Authenticated())
	assert.Nil(t, session.User())
}

func TestSessionExpiryFromServerTimestamp(t *testing.T) {
	session := NewSession()

	session.Establish(&TokenPair{
		AccessToken:          "opaque-token",
		AccessTokenExpiresAt: time.Now().Add(-time.Minute),
	}, nil)

	assert.False(t, session.Authenticated(), "expired token must not count as authenticated")
}

func TestSessionExpiryFromJWTClaim(t *testing.T) {
	t.Run("live token", func(t *testing.T) {
		session := NewSession()
		session.Establish(&TokenPair{
			AccessToken: signedToken(t, time.Now().Add(time.Hour)),
		}, nil)

		assert.True(t, session.Authenticated())
	})

	t.Run("expired token", func(t *testing.T) {
		session := NewSession()
		session.Establish(&TokenPair{
			AccessToken: signedToken(t, time.Now().Add(-time.Hour)),
		}, nil)

		assert.False(t, session.Authenticated())
	})

	t.Run("opaque token without expiry is trusted", func(t *testing.T) {
		session := NewSession()
		session.Establish(&TokenPair{
			AccessToken: "not-a-jwt",
		}, nil)

		assert.True(t, session.Authenticated())
	})
}

func TestSessionDecorate(t *testing.T) {
	session := NewSession()

	req, err := http.NewRequest(http.MethodGet, "http://localhost/api/v1/customers", nil)
	require.NoError(t, err)

	session.Decorate(req)
	assert.Empty(t, req.Header.Get("Authorization"), "no token, no header")

	session.Establish(&TokenPair{AccessToken: "abc123"}, nil)
	session.Decorate(req)
	assert.Equal(t, "Bearer abc123", req.Header.Get("Authorization"))
}
