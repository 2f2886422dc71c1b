package kanban

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Nerzal/gocloak/v13"

	"kyri56xcaesar/kanban/internal/authmw"
	"kyri56xcaesar/kanban/internal/models"
)

// lookupFunc loads the local user a verified token refers to. Either field may be
// zero; the id wins when both are set.
type lookupFunc func(ctx context.Context, userID int64, email string) (*models.User, error)

// credentials is where passwords are checked and tokens come from.
type credentials interface {
	hash(password string) (string, error)
	// enrol runs inside the registration transaction once the user row exists.
	enrol(ctx context.Context, u *models.User, password string) error
	login(ctx context.Context, u *models.User, password string) (authmw.TokenPair, error)
	refresh(ctx context.Context, token string, lookup lookupFunc) (*models.User, authmw.TokenPair, error)
}

var errBadCredentials = errors.New("invalid credentials")

// localCredentials keeps bcrypt hashes in the store and issues HS256 tokens.
type localCredentials struct {
	issuer *authmw.JWTIssuer
}

func LocalCredentials(issuer *authmw.JWTIssuer) credentials {
	return &localCredentials{issuer: issuer}
}

func (l *localCredentials) hash(password string) (string, error) {
	return authmw.HashPassword(password)
}

func (l *localCredentials) enrol(context.Context, *models.User, string) error {
	return nil
}

func (l *localCredentials) login(_ context.Context, u *models.User, password string) (authmw.TokenPair, error) {
	if err := authmw.CheckPassword(u.PasswordHash, password); err != nil {
		return authmw.TokenPair{}, errBadCredentials
	}
	return l.issuer.Issue(u)
}

func (l *localCredentials) refresh(ctx context.Context, token string, lookup lookupFunc) (*models.User, authmw.TokenPair, error) {
	claims, err := l.issuer.ParseRefresh(token)
	if err != nil {
		return nil, authmw.TokenPair{}, errBadCredentials
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, authmw.TokenPair{}, errBadCredentials
	}

	u, err := lookup(ctx, id, "")
	if err != nil {
		return nil, authmw.TokenPair{}, err
	}
	pair, err := l.issuer.Issue(u)
	return u, pair, err
}

// keycloakCredentials delegates passwords and tokens to a Keycloak realm. Local rows
// keep a placeholder hash that never matches a bcrypt comparison.
type keycloakCredentials struct {
	kc *authmw.Service
}

const keycloakManaged = "!keycloak"

func KeycloakCredentials(kc *authmw.Service) credentials {
	return &keycloakCredentials{kc: kc}
}

func (k *keycloakCredentials) hash(string) (string, error) {
	return keycloakManaged, nil
}

func (k *keycloakCredentials) enrol(ctx context.Context, u *models.User, password string) error {
	_, err := k.kc.CreateUser(ctx, u.Email, u.Email, password)
	var apiErr *gocloak.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict {
		return fmt.Errorf("%w: %v", errDuplicateIdentity, err)
	}
	return err
}

var errDuplicateIdentity = errors.New("identity already registered")

func (k *keycloakCredentials) login(ctx context.Context, u *models.User, password string) (authmw.TokenPair, error) {
	pair, err := k.kc.Login(ctx, u.Email, password)
	if err != nil {
		if isClientError(err) {
			return authmw.TokenPair{}, errBadCredentials
		}
		return authmw.TokenPair{}, err
	}
	return pair, nil
}

func (k *keycloakCredentials) refresh(ctx context.Context, token string, lookup lookupFunc) (*models.User, authmw.TokenPair, error) {
	pair, err := k.kc.Refresh(ctx, token)
	if err != nil {
		if isClientError(err) {
			return nil, authmw.TokenPair{}, errBadCredentials
		}
		return nil, authmw.TokenPair{}, err
	}

	claims, err := k.kc.KCAuth.Verify(pair.AccessToken)
	if err != nil {
		return nil, authmw.TokenPair{}, errBadCredentials
	}
	u, err := lookup(ctx, 0, models.NormalizeEmail(claims.Email))
	if err != nil {
		return nil, authmw.TokenPair{}, err
	}
	return u, pair, nil
}

// isClientError reports whether Keycloak rejected the request itself, e.g. a wrong
// password or an expired refresh token.
func isClientError(err error) bool {
	var apiErr *gocloak.APIError
	return errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500
}
