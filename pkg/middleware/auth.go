package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SavioJohny/delivery-website/pkg/log"
	"github.com/SavioJohny/delivery-website/pkg/response"
)

const (
	UserIDKey       = log.FieldUserID
	RoleKey         = log.FieldRole
	QueryTokenKey   = "token"
	AuthHeaderKey   = "Authorization"
	BearerPrefix    = "Bearer "
	AuthTokenHeader = "x-auth-token"
)

// ResolveFunc verifies a credential and returns the caller's id and role.
type ResolveFunc func(ctx context.Context, credential string) (userID, role string, err error)

// AuthMiddleware authenticates REST callers with the same credentials the
// WebSocket handshake accepts.
type AuthMiddleware struct {
	resolve ResolveFunc
}

func NewAuthMiddleware(resolve ResolveFunc) *AuthMiddleware {
	return &AuthMiddleware{resolve: resolve}
}

// TokenFromRequest returns the first non-empty credential from the token
// query parameter, an Authorization bearer header or x-auth-token.
func TokenFromRequest(r *http.Request) string {
	if t := strings.TrimSpace(r.URL.Query().Get(QueryTokenKey)); t != "" {
		return t
	}
	if h := r.Header.Get(AuthHeaderKey); strings.HasPrefix(h, BearerPrefix) {
		if t := strings.TrimSpace(strings.TrimPrefix(h, BearerPrefix)); t != "" {
			return t
		}
	}
	return strings.TrimSpace(r.Header.Get(AuthTokenHeader))
}

// RequireAuth rejects requests without a valid credential and stores the
// caller in the gin context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c.Request)
		if token == "" {
			response.Unauthorized(c, "missing credential")
			return
		}

		userID, role, err := m.resolve(c.Request.Context(), token)
		if err != nil {
			response.Unauthorized(c, "invalid credential")
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(RoleKey, role)
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) != role {
			response.Forbidden(c, "insufficient role")
			return
		}
		c.Next()
	}
}

// HTTP is RequireAuth plus an optional role check for net/http handlers.
func (m *AuthMiddleware) HTTP(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				response.WriteError(w, http.StatusUnauthorized, response.CodeUnauthorized, "missing credential")
				return
			}
			_, role, err := m.resolve(r.Context(), token)
			if err != nil {
				response.WriteError(w, http.StatusUnauthorized, response.CodeUnauthorized, "invalid credential")
				return
			}
			if requiredRole != "" && role != requiredRole {
				response.WriteError(w, http.StatusForbidden, response.CodeForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

func GetRole(c *gin.Context) string {
	return c.GetString(RoleKey)
}
