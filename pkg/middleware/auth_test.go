package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func fakeResolve(_ context.Context, credential string) (string, string, error) {
	switch credential {
	case "user-token":
		return "u1", "user", nil
	case "admin-token":
		return "a1", "admin", nil
	default:
		return "", "", errors.New("bad token")
	}
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?token=q", nil)
	req.Header.Set("Authorization", "Bearer b")
	req.Header.Set("x-auth-token", "x")
	assert.Equal(t, "q", TokenFromRequest(req))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer b")
	req.Header.Set("x-auth-token", "x")
	assert.Equal(t, "b", TokenFromRequest(req))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Basic zzz")
	req.Header.Set("x-auth-token", "x")
	assert.Equal(t, "x", TokenFromRequest(req))

	assert.Equal(t, "", TokenFromRequest(httptest.NewRequest(http.MethodGet, "/x", nil)))
}

func TestRequireAuthAndRole(t *testing.T) {
	m := NewAuthMiddleware(fakeResolve)
	r := gin.New()
	r.GET("/me", m.RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c)+":"+GetRole(c))
	})
	r.GET("/admin", m.RequireAuth(), RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		path   string
		token  string
		status int
		body   string
	}{
		{"no token", "/me", "", http.StatusUnauthorized, ""},
		{"bad token", "/me", "nope", http.StatusUnauthorized, ""},
		{"user", "/me", "user-token", http.StatusOK, "u1:user"},
		{"user on admin route", "/admin", "user-token", http.StatusForbidden, ""},
		{"admin on admin route", "/admin", "admin-token", http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestHTTPMiddleware(t *testing.T) {
	m := NewAuthMiddleware(fakeResolve)
	h := m.HTTP("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	cases := map[string]int{
		"":            http.StatusUnauthorized,
		"garbage":     http.StatusUnauthorized,
		"user-token":  http.StatusForbidden,
		"admin-token": http.StatusOK,
	}
	for token, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/presence", nil)
		if token != "" {
			req.Header.Set("x-auth-token", token)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, "token %q", token)
	}
}
