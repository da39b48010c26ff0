package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/SavioJohny/delivery-website/internal/domain"
	"github.com/SavioJohny/delivery-website/pkg/jwt"
	"github.com/SavioJohny/delivery-website/pkg/middleware"
)

var ErrMissingCredential = errors.New("no credential supplied")

// Resolver turns a connection credential into an Identity.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (domain.Identity, error)
}

// TokenVerifier is the subset of jwt.Manager the resolver needs.
type TokenVerifier interface {
	Validate(token string) (*jwt.Claims, error)
}

// JWTResolver verifies HS256 tokens issued by the account service.
type JWTResolver struct {
	verifier    TokenVerifier
	requireRole bool
}

// NewJWTResolver creates a resolver. With requireRole a token without a role
// claim is rejected instead of being treated as an end user.
func NewJWTResolver(verifier TokenVerifier, requireRole bool) *JWTResolver {
	return &JWTResolver{verifier: verifier, requireRole: requireRole}
}

func (r *JWTResolver) Resolve(ctx context.Context, credential string) (domain.Identity, error) {
	if credential == "" {
		return domain.Identity{}, fmt.Errorf("%w: %w", domain.ErrAuthentication, ErrMissingCredential)
	}

	claims, err := r.verifier.Validate(credential)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %w", domain.ErrAuthentication, err)
	}

	role := domain.Role(claims.Role())
	switch {
	case role == "" && !r.requireRole:
		role = domain.RoleUser
	case !role.Valid():
		return domain.Identity{}, fmt.Errorf("%w: unknown role %q", domain.ErrAuthentication, claims.Role())
	}

	return domain.Identity{UserID: claims.UserID(), Role: role}, nil
}

// MiddlewareFunc adapts r to the REST auth middleware.
func MiddlewareFunc(r Resolver) middleware.ResolveFunc {
	return func(ctx context.Context, credential string) (string, string, error) {
		id, err := r.Resolve(ctx, credential)
		if err != nil {
			return "", "", err
		}
		return id.UserID, string(id.Role), nil
	}
}
