package kanban

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type client struct {
	t      *testing.T
	server http.Handler
	token  string
}

func newTestAPI(t *testing.T) *API {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := newHarness(t)
	cfg := Config{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		AdminEmails:    []string{"admin@example.com"},
	}
	return newAPI(cfg, h.store, LocalCredentials(h.issuer), h.issuer, WithAdminEmails(cfg.AdminEmails...), WithMailer(h.mailer))
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.server.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// signup registers a user and returns a client carrying its access token.
func signup(t *testing.T, api *API, email string) *client {
	t.Helper()
	anon := &client{t: t, server: api.Handler()}
	w := anon.do(http.MethodPost, "/auth/register", gin.H{"email": email, "userName": email, "password": "s3cret-pass"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	res := decode[AuthResult](t, w)
	return &client{t: t, server: api.Handler(), token: res.AccessToken}
}

func TestHTTPBoardFlow(t *testing.T) {
	api := newTestAPI(t)
	alice := signup(t, api, "alice@example.com")
	bob := signup(t, api, "bob@example.com")

	w := alice.do(http.MethodPost, "/boards", gin.H{"name": "roadmap"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	board := decode[map[string]any](t, w)
	boardID := int64(board["id"].(float64))
	assert.Equal(t, fmt.Sprintf("/boards/%d", boardID), w.Header().Get("Location"))

	w = alice.do(http.MethodPost, fmt.Sprintf("/boards/%d/columns", boardID), gin.H{"name": "todo"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	columnID := int64(decode[map[string]any](t, w)["id"].(float64))

	w = alice.do(http.MethodPost, fmt.Sprintf("/columns/%d/taskitems", columnID), gin.H{"title": "ship it"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	task := decode[map[string]any](t, w)
	taskID := int64(task["id"].(float64))
	assert.Equal(t, "ToDo", task["status"])

	w = alice.do(http.MethodPost, fmt.Sprintf("/taskitems/%d/status", taskID), gin.H{"status": "done"})
	assert.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = alice.do(http.MethodPost, fmt.Sprintf("/taskitems/%d/move", taskID), gin.H{"position": 0})
	assert.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	t.Run("non member gets forbidden with an error body", func(t *testing.T) {
		w := bob.do(http.MethodGet, fmt.Sprintf("/boards/%d", boardID), nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		body := decode[map[string]any](t, w)
		assert.Equal(t, "Forbidden", body["error"])
		assert.Equal(t, float64(http.StatusForbidden), body["status"])
		assert.NotEmpty(t, body["message"])
	})

	t.Run("owner role on add member is a bad request", func(t *testing.T) {
		w := alice.do(http.MethodPost, fmt.Sprintf("/boards/%d/users", boardID), gin.H{"email": "bob@example.com", "role": "Owner"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("add member then list", func(t *testing.T) {
		w := alice.do(http.MethodPost, fmt.Sprintf("/boards/%d/users", boardID), gin.H{"email": "bob@example.com", "role": "Viewer"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = bob.do(http.MethodGet, fmt.Sprintf("/boards/%d/users", boardID), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[[]Member](t, w), 2)

		w = alice.do(http.MethodPost, fmt.Sprintf("/boards/%d/users", boardID), gin.H{"email": "bob@example.com", "role": "Viewer"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("status codes", func(t *testing.T) {
		tests := []struct {
			name   string
			c      *client
			method string
			path   string
			body   any
			want   int
		}{
			{"missing board", alice, http.MethodGet, "/boards/9999", nil, http.StatusNotFound},
			{"invalid id", alice, http.MethodGet, "/boards/abc", nil, http.StatusBadRequest},
			{"malformed body", alice, http.MethodPost, "/boards", "not an object", http.StatusBadRequest},
			{"no token", &client{t: t, server: api.Handler()}, http.MethodGet, "/boards", nil, http.StatusUnauthorized},
			{"admin only", alice, http.MethodGet, "/users", nil, http.StatusForbidden},
			{"viewer cannot edit", bob, http.MethodPost, fmt.Sprintf("/boards/%d/columns", boardID), gin.H{"name": "x"}, http.StatusForbidden},
			{"bad status", alice, http.MethodPost, fmt.Sprintf("/taskitems/%d/status", taskID), gin.H{"status": "nope"}, http.StatusBadRequest},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := tt.c.do(tt.method, tt.path, tt.body)
				assert.Equal(t, tt.want, w.Code, w.Body.String())
			})
		}
	})

	t.Run("delete board", func(t *testing.T) {
		w := alice.do(http.MethodDelete, fmt.Sprintf("/boards/%d", boardID), nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestHTTPAuth(t *testing.T) {
	api := newTestAPI(t)
	anon := &client{t: t, server: api.Handler()}
	signup(t, api, "carol@example.com")

	w := anon.do(http.MethodPost, "/auth/login", gin.H{"email": "carol@example.com", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[AuthResult](t, w)
	assert.Equal(t, "carol@example.com", login.Email)

	w = anon.do(http.MethodPost, "/auth/refresh", gin.H{"refreshToken": login.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, login.RefreshToken, decode[AuthResult](t, w).RefreshToken)

	w = anon.do(http.MethodPost, "/auth/login", gin.H{"email": "carol@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = anon.do(http.MethodPost, "/auth/register", gin.H{"email": "carol@example.com", "userName": "c", "password": "s3cret-pass"})
	assert.Equal(t, http.StatusConflict, w.Code)

	admin := signup(t, api, "admin@example.com")
	w = admin.do(http.MethodGet, "/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 2)
}

func TestHTTPHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)
	anon := &client{t: t, server: api.Handler()}

	w := anon.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// a rejected pipeline request shows up in the rejection counter
	alice := signup(t, api, "alice@example.com")
	alice.do(http.MethodGet, "/boards/9999", nil)

	w = anon.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "kanban_http_requests_total")
	assert.Contains(t, w.Body.String(), `kanban_pipeline_rejections_total{operation="GetBoard",stage="entity_existence"} 1`)
}
