package auth

import (
	"net/http"
	"sync"
	"time"

	"github.com/ingabireol/bizclient/pkg/domain"

	"github.com/golang-jwt/jwt/v5"
)

// TokenPair is the credential material returned by a successful login or
// one-time-code verification.
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// Session holds client-side authentication state. Safe for concurrent use;
// one session is shared by every gateway in the process.
//
// Token signatures are the server's to verify. The session only reads the
// expiry claim, and only to avoid sending calls that are guaranteed to be
// rejected.
type Session struct {
	mu     sync.RWMutex
	tokens *TokenPair
	user   *domain.User
}

func NewSession() *Session {
	return &Session{}
}

// Establish stores the tokens and user of a fresh login.
func (s *Session) Establish(tokens *TokenPair, user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = tokens
	s.user = user
}

// Clear drops all session state (logout).
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = nil
	s.user = nil
}

// User returns the logged-in user, or nil.
func (s *Session) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Authenticated reports whether the session holds a non-expired access token.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.tokens == nil || s.tokens.AccessToken == "" {
		return false
	}

	expiresAt := s.tokens.AccessTokenExpiresAt
	if expiresAt.IsZero() {
		parsed, err := tokenExpiry(s.tokens.AccessToken)
		if err != nil {
			// Opaque token; let the server decide.
			return true
		}
		expiresAt = parsed
	}

	return time.Now().Before(expiresAt)
}

// Decorate attaches the bearer token to an outgoing request, if present.
func (s *Session) Decorate(req *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.tokens != nil && s.tokens.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.tokens.AccessToken)
	}
}

// tokenExpiry extracts the exp claim without verifying the signature.
func tokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, err
	}

	expiresAt, err := claims.GetExpirationTime()
	if err != nil || expiresAt == nil {
		return time.Time{}, jwt.ErrTokenInvalidClaims
	}

	return expiresAt.Time, nil
}
