package authmw

import (
	"context"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/Nerzal/gocloak/v13"
	"github.com/golang-jwt/jwt/v5"

	"kyri56xcaesar/kanban/internal/models"
)

// AdminRole is the realm or client role that maps to models.RoleAdmin.
const AdminRole = "kanban-admin"

// LookupFunc maps a verified Keycloak identity to the local user.
type LookupFunc func(ctx context.Context, email string) (Principal, error)

// KeycloakAuth verifies RS256 tokens issued by a Keycloak realm.
type KeycloakAuth struct {
	Issuer   string // e.g. http://localhost:8080/realms/myrealm
	Audience string
	ClientID string // for client roles under resource_access[ClientID].roles

	JWKS   *keyfunc.JWKS
	Leeway time.Duration
	Lookup LookupFunc
}

// Build once at startup (don't fetch JWKS on every request)
func NewKeycloakAuth(jwksURL, issuer, audience, clientID string) (*KeycloakAuth, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:  time.Hour,
		RefreshRateLimit: time.Minute * 5,
		RefreshTimeout:   time.Second * 10,
	})
	if err != nil {
		return nil, err
	}

	return &KeycloakAuth{
		Issuer:   issuer,
		Audience: audience,
		ClientID: clientID,
		JWKS:     jwks,
		Leeway:   30 * time.Second,
	}, nil
}

type KCClaims struct {
	jwt.RegisteredClaims

	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	EmailVerified     bool   `json:"email_verified"`

	RealmAccess struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`

	ResourceAccess map[string]struct {
		Roles []string `json:"roles"`
	} `json:"resource_access"`
}

// Verify checks the signature, issuer, audience and expiry of a realm token.
func (a *KeycloakAuth) Verify(tokenStr string) (*KCClaims, error) {
	claims := &KCClaims{}
	opts := []jwt.ParserOption{
		jwt.WithIssuer(a.Issuer),
		jwt.WithLeeway(a.Leeway),
		jwt.WithValidMethods([]string{"RS256"}),
	}
	if a.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.Audience))
	}
	if _, err := jwt.ParseWithClaims(tokenStr, claims, a.JWKS.Keyfunc, opts...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: token has no email", ErrInvalidToken)
	}
	return claims, nil
}

func (a *KeycloakAuth) Authenticate(ctx context.Context, tokenStr string) (Principal, error) {
	claims, err := a.Verify(tokenStr)
	if err != nil {
		return Principal{}, err
	}
	if a.Lookup == nil {
		return Principal{}, fmt.Errorf("keycloak lookup is not configured")
	}

	p, err := a.Lookup(ctx, models.NormalizeEmail(claims.Email))
	if err != nil {
		return Principal{}, err
	}
	if slices.Contains(collectRoles(claims, a.ClientID), AdminRole) {
		p.Role = models.RoleAdmin
	}
	return p, nil
}

// Service talks to the Keycloak admin and token endpoints.
type Service struct {
	Client       *gocloak.GoCloak
	Realm        string
	clientID     string
	clientSecret string

	KCAuth *KeycloakAuth
}

func NewService(baseURL, realm, clientID, issuer, aud, clientSecret string) (*Service, error) {
	client := gocloak.NewClient("http://" + baseURL)

	// the middleware authenticator
	kcAuth, err := NewKeycloakAuth(
		fmt.Sprintf(
			"http://%s/realms/%s/protocol/openid-connect/certs",
			baseURL,
			realm,
		),
		issuer,
		aud,
		clientID,
	)
	if err != nil {
		log.Printf("failed to instantiate the kc authenticator: %v", err)
		return nil, err
	}

	s := &Service{
		Client:       client,
		Realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		KCAuth:       kcAuth,
	}

	if err := s.selfTest(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) selfTest() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token, err := s.Client.LoginClient(ctx, s.clientID, s.clientSecret, s.Realm)
	if err != nil {
		return fmt.Errorf("keycloak auth failed: %w", err)
	}

	if _, err := s.Client.GetRealm(ctx, token.AccessToken, s.Realm); err != nil {
		return fmt.Errorf("keycloak permission check failed: %w", err)
	}
	return nil
}

func (s *Service) Login(ctx context.Context, username, password string) (TokenPair, error) {
	token, err := s.Client.Login(ctx, s.clientID, s.clientSecret, s.Realm, username, password)
	if err != nil {
		return TokenPair{}, err
	}
	return pairOf(token), nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	token, err := s.Client.RefreshToken(ctx, refreshToken, s.clientID, s.clientSecret, s.Realm)
	if err != nil {
		return TokenPair{}, err
	}
	return pairOf(token), nil
}

// CreateUser enrols a realm user with a permanent password and returns its Keycloak id.
func (s *Service) CreateUser(ctx context.Context, username, email, password string) (string, error) {
	admin, err := s.Client.LoginClient(ctx, s.clientID, s.clientSecret, s.Realm)
	if err != nil {
		return "", fmt.Errorf("keycloak auth failed: %w", err)
	}

	user := gocloak.User{
		Username: gocloak.StringP(username),
		Email:    gocloak.StringP(email),
		Enabled:  gocloak.BoolP(true),
		Credentials: &[]gocloak.CredentialRepresentation{
			{
				Type:      gocloak.StringP("password"),
				Value:     gocloak.StringP(password),
				Temporary: gocloak.BoolP(false),
			},
		},
	}
	return s.Client.CreateUser(ctx, admin.AccessToken, s.Realm, user)
}

func pairOf(t *gocloak.JWT) TokenPair {
	return TokenPair{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(t.ExpiresIn) * time.Second),
	}
}

// --- helpers ---

func collectRoles(claims *KCClaims, clientID string) []string {
	out := make([]string, 0, 16)

	// realm roles
	out = append(out, claims.RealmAccess.Roles...)

	// client roles (resource_access)
	if clientID != "" && claims.ResourceAccess != nil {
		if ra, ok := claims.ResourceAccess[clientID]; ok {
			out = append(out, ra.Roles...)
		}
	}

	return uniq(out)
}

func uniq(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
