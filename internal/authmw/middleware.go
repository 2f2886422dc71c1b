// Package authmw authenticates requests: local HS256 tokens, Keycloak issued RS256
// tokens, and the gin middleware that puts the caller on the request context.
package authmw

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"kyri56xcaesar/kanban/internal/models"
)

var (
	ErrMissingToken = errors.New("missing access token")
	ErrInvalidToken = errors.New("invalid token")
)

// Principal is the authenticated caller.
type Principal struct {
	UserID int64
	Email  string
	Role   models.UserRole
}

// Authenticator turns a bearer token into a Principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Principal, error)
}

const principalKey = "auth.principal"

// RequireAuth rejects requests without a valid access token and stores the caller
// for the handlers.
func RequireAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := extractAccessToken(c)
		if err != nil {
			abort(c, http.StatusUnauthorized, err.Error())
			return
		}

		p, err := a.Authenticate(c.Request.Context(), tokenStr)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireRoles admits callers holding any of the given system roles. It must run after
// RequireAuth.
func RequireRoles(anyOf ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			abort(c, http.StatusUnauthorized, ErrMissingToken.Error())
			return
		}
		if !slices.Contains(anyOf, p.Role) {
			abort(c, http.StatusForbidden, "insufficient role")
			return
		}
		c.Next()
	}
}

func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// --- helpers ---

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":   http.StatusText(status),
		"message": msg,
		"status":  status,
	})
}

func extractAccessToken(c *gin.Context) (string, error) {
	// 1) Authorization: Bearer <token>
	authz := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		if tok := strings.TrimSpace(authz[7:]); tok != "" {
			return tok, nil
		}
	}

	// 2) cookie fallback
	if cookie, err := c.Cookie("access_token"); err == nil && cookie != "" {
		return cookie, nil
	}

	return "", ErrMissingToken
}
