package authmw

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"kyri56xcaesar/kanban/internal/models"
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// Claims of the locally issued tokens. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims

	Email string          `json:"email"`
	Role  models.UserRole `json:"role"`
	Type  TokenType       `json:"typ"`
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// JWTIssuer signs and verifies HS256 tokens with a shared secret.
type JWTIssuer struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	leeway     time.Duration

	now func() time.Time
}

func NewJWTIssuer(secret, issuer, audience string, accessTTL, refreshTTL time.Duration) (*JWTIssuer, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("jwt secret must be at least 16 bytes")
	}
	return &JWTIssuer{
		secret:     []byte(secret),
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		leeway:     30 * time.Second,
		now:        time.Now,
	}, nil
}

// Issue mints an access and a refresh token for u. Every token carries a fresh id, so
// two pairs issued for the same user in the same second still differ.
func (j *JWTIssuer) Issue(u *models.User) (TokenPair, error) {
	now := j.now()

	access, err := j.sign(u, AccessToken, now, j.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := j.sign(u, RefreshToken, now, j.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: now.Add(j.accessTTL)}, nil
}

func (j *JWTIssuer) sign(u *models.User, typ TokenType, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(u.ID, 10),
			Issuer:    j.issuer,
			Audience:  jwt.ClaimStrings{j.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: u.Email,
		Role:  u.Role,
		Type:  typ,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (j *JWTIssuer) ParseAccess(tokenStr string) (*Claims, error) {
	return j.parse(tokenStr, AccessToken)
}

func (j *JWTIssuer) ParseRefresh(tokenStr string) (*Claims, error) {
	return j.parse(tokenStr, RefreshToken)
}

func (j *JWTIssuer) parse(tokenStr string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (any, error) { return j.secret, nil },
		jwt.WithIssuer(j.issuer),
		jwt.WithAudience(j.audience),
		jwt.WithLeeway(j.leeway),
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Type != want {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, want)
	}
	return claims, nil
}

// UserID returns the numeric subject of the claims.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return id, nil
}

func (j *JWTIssuer) Authenticate(_ context.Context, tokenStr string) (Principal, error) {
	claims, err := j.ParseAccess(tokenStr)
	if err != nil {
		return Principal{}, err
	}
	id, err := claims.UserID()
	if err != nil {
		return Principal{}, err
	}
	return Principal{UserID: id, Email: claims.Email, Role: claims.Role}, nil
}
