package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/ingabireol/bizclient/pkg/auth"
	"github.com/ingabireol/bizclient/pkg/domain"
	"github.com/ingabireol/bizclient/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loginPayload(username string) loginResponse {
	return loginResponse{
		Tokens: auth.TokenPair{
			AccessToken:          "access-" + username,
			RefreshToken:         "refresh-" + username,
			AccessTokenExpiresAt: time.Now().Add(time.Hour),
			TokenType:            "Bearer",
		},
		User: domain.User{
			ID:       uuid.New(),
			Username: username,
			Email:    username + "@example.com",
			Role:     "manager",
			Active:   true,
		},
	}
}

func TestUserGatewayAuthenticate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))

		if creds.Username != "olivier" || creds.Password != "s3cret" {
			writeJSON(t, w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		writeJSON(t, w, http.StatusOK, loginPayload(creds.Username))
	})

	manager := startService(t, mux)
	session := auth.NewSession()
	gateway := NewUserGateway(manager, session, nil)

	t.Run("wrong password", func(t *testing.T) {
		_, err := gateway.Authenticate(context.Background(), "olivier", "wrong")
		require.Error(t, err)
		assert.True(t, errors.IsPermissionError(err))
		assert.False(t, session.Authenticated(), "failed login must not establish a session")
	})

	t.Run("successful login", func(t *testing.T) {
		user, err := gateway.Authenticate(context.Background(), "olivier", "s3cret")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "olivier", user.Username)

		assert.True(t, session.Authenticated())
		require.NotNil(t, session.User())
		assert.Equal(t, "olivier", session.User().Username)
	})
}

func TestUserGatewayOneTimeCodeFlow(t *testing.T) {
	challengeID := uuid.New()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/otp/request", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "olivier@example.com", req.Email)

		writeJSON(t, w, http.StatusOK, map[string]uuid.UUID{"challenge_id": challengeID})
	})
	mux.HandleFunc("/api/v1/auth/otp/verify", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ChallengeID uuid.UUID `json:"challenge_id"`
			Code        string    `json:"code"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if req.ChallengeID != challengeID || req.Code != "482913" {
			writeJSON(t, w, http.StatusUnauthorized, map[string]string{"error": "invalid code"})
			return
		}
		writeJSON(t, w, http.StatusOK, loginPayload("olivier"))
	})

	manager := startService(t, mux)
	session := auth.NewSession()
	gateway := NewUserGateway(manager, session, nil)

	ctx := context.Background()

	gotChallenge, err := gateway.RequestOneTimeCode(ctx, "olivier@example.com")
	require.NoError(t, err)
	assert.Equal(t, challengeID, gotChallenge)

	t.Run("wrong code", func(t *testing.T) {
		_, err := gateway.VerifyOneTimeCode(ctx, gotChallenge, "000000")
		require.Error(t, err)
		assert.True(t, errors.IsPermissionError(err))
		assert.False(t, session.Authenticated())
	})

	t.Run("correct code", func(t *testing.T) {
		user, err := gateway.VerifyOneTimeCode(ctx, gotChallenge, "482913")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.True(t, session.Authenticated())
	})
}

func TestUserGatewayResetPasswordByEmail(t *testing.T) {
	var requested string

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/password-reset", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requested = req.Email
		writeJSON(t, w, http.StatusOK, map[string]bool{"success": true})
	})

	gateway := NewUserGateway(startService(t, mux), nil, nil)

	require.NoError(t, gateway.ResetPasswordByEmail(context.Background(), "olivier@example.com"))
	assert.Equal(t, "olivier@example.com", requested)
}

func TestUserGatewayUsernameExists(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users/username-exists", func(w http.ResponseWriter, r *http.Request) {
		exists := r.URL.Query().Get("username") == "olivier"
		writeJSON(t, w, http.StatusOK, map[string]bool{"exists": exists})
	})

	gateway := NewUserGateway(startService(t, mux), nil, nil)

	taken, err := gateway.UsernameExists(context.Background(), "olivier")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestUserGatewayCreateSendsPassword(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "newhire", req["username"])
		assert.Equal(t, "initial-pass", req["password"])

		writeJSON(t, w, http.StatusOK, domain.User{
			ID:       uuid.New(),
			Username: "newhire",
			Role:     "clerk",
		})
	})

	gateway := NewUserGateway(startService(t, mux), nil, nil)

	created, err := gateway.Create(context.Background(), domain.User{
		Username: "newhire",
		Email:    "newhire@example.com",
		Role:     "clerk",
	}, "initial-pass")
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.NotEqual(t, uuid.Nil, created.ID)
}
