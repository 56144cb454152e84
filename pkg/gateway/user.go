package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ingabireol/bizclient/pkg/auth"
	"github.com/ingabireol/bizclient/pkg/connection"
	"github.com/ingabireol/bizclient/pkg/directory"
	"github.com/ingabireol/bizclient/pkg/domain"
	"github.com/ingabireol/bizclient/pkg/logging"

	"github.com/google/uuid"
)

// UserGateway is the typed client for the user service, including the
// authentication surface. Successful logins establish the shared session so
// subsequent calls through any gateway carry the bearer token.
type UserGateway struct {
	remote
}

func NewUserGateway(manager *connection.Manager, session *auth.Session, logger logging.Logger) *UserGateway {
	return &UserGateway{
		remote: newRemote(manager, session, logger),
	}
}

type loginResponse struct {
	Tokens auth.TokenPair `json:"tokens"`
	User   domain.User    `json:"user"`
}

// Authenticate performs a username/password login and establishes the session.
func (g *UserGateway) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	body := struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{Username: username, Password: password}

	var result loginResponse
	if err := g.call(ctx, directory.ServiceUser, http.MethodPost, "/api/v1/auth/login", nil, body, &result); err != nil {
		return nil, err
	}

	if g.session != nil {
		tokens := result.Tokens
		g.session.Establish(&tokens, &result.User)
	}

	g.logger.Infof("User %s logged in", result.User.Username)

	return &result.User, nil
}

// RequestOneTimeCode starts the email one-time-code flow. The returned
// challenge ID pairs the eventual code with this request.
func (g *UserGateway) RequestOneTimeCode(ctx context.Context, email string) (uuid.UUID, error) {
	body := struct {
		Email string `json:"email"`
	}{Email: email}

	var result struct {
		ChallengeID uuid.UUID `json:"challenge_id"`
	}
	if err := g.call(ctx, directory.ServiceUser, http.MethodPost, "/api/v1/auth/otp/request", nil, body, &result); err != nil {
		return uuid.Nil, err
	}

	g.logger.Infof("One-time code requested for %s", email)

	return result.ChallengeID, nil
}

// VerifyOneTimeCode completes the email flow and establishes the session.
func (g *UserGateway) VerifyOneTimeCode(ctx context.Context, challengeID uuid.UUID, code string) (*domain.User, error) {
	body := struct {
		ChallengeID uuid.UUID `json:"challenge_id"`
		Code        string    `json:"code"`
	}{ChallengeID: challengeID, Code: code}

	var result loginResponse
	if err := g.call(ctx, directory.ServiceUser, http.MethodPost, "/api/v1/auth/otp/verify", nil, body, &result); err != nil {
		return nil, err
	}

	if g.session != nil {
		tokens := result.Tokens
		g.session.Establish(&tokens, &result.User)
	}

	g.logger.Infof("User %s logged in via one-time code", result.User.Username)

	return &result.User, nil
}

// ResetPasswordByEmail asks the user service to start a password reset.
func (g *UserGateway) ResetPasswordByEmail(ctx context.Context, email string) error {
	body := struct {
		Email string `json:"email"`
	}{Email: email}

	return g.call(ctx, directory.ServiceUser, http.MethodPost, "/api/v1/auth/password-reset", nil, body, nil)
}

func (g *UserGateway) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := url.Values{"username": {username}}

	var user domain.User
	if err := g.call(ctx, directory.ServiceUser, http.MethodGet, "/api/v1/users/by-username", query, nil, &user); err != nil {
		return nil, notFoundAsNil(err)
	}
	return &user, nil
}

func (g *UserGateway) UsernameExists(ctx context.Context, username string) (bool, error) {
	query := url.Values{"username": {username}}
	return g.exists(ctx, directory.ServiceUser, "/api/v1/users/username-exists", query)
}

func (g *UserGateway) Create(ctx context.Context, user domain.User, password string) (*domain.User, error) {
	body := struct {
		domain.User
		Password string `json:"password"`
	}{User: user, Password: password}

	var created domain.User
	if err := g.call(ctx, directory.ServiceUser, http.MethodPost, "/api/v1/users", nil, body, &created); err != nil {
		return nil, err
	}
	g.logger.Infof("Created user %s", created.Username)
	return &created, nil
}

func (g *UserGateway) Update(ctx context.Context, user domain.User) (*domain.User, error) {
	var updated domain.User
	if err := g.call(ctx, directory.ServiceUser, http.MethodPut, "/api/v1/users/"+user.ID.String(), nil, user, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}
