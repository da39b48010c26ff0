package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingUser  = errors.New("token carries no user id")
	ErrEmptySecret  = errors.New("jwt secret must not be empty")
)

// UserClaim is the "user" object issued by the account service. Older
// tokens carry the id as "_id", newer ones as "id".
type UserClaim struct {
	ObjectID string `json:"_id,omitempty"`
	ID       string `json:"id,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Claims represents JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	User *UserClaim `json:"user,omitempty"`
}

// UserID returns "_id" when present, otherwise "id".
func (c *Claims) UserID() string {
	if c.User == nil {
		return ""
	}
	if c.User.ObjectID != "" {
		return c.User.ObjectID
	}
	return c.User.ID
}

// Role returns the role claim as issued, possibly empty.
func (c *Claims) Role() string {
	if c.User == nil {
		return ""
	}
	return c.User.Role
}

// Manager signs and verifies HS256 tokens with a shared secret.
type Manager struct {
	secret   []byte
	duration time.Duration
	issuer   string
}

// NewManager creates a new JWT manager. A zero duration issues tokens
// without an expiry.
func NewManager(secret string, duration time.Duration, issuer string) (*Manager, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Manager{
		secret:   []byte(secret),
		duration: duration,
		issuer:   issuer,
	}, nil
}

// Generate issues a token for userID/role. The relay only verifies tokens;
// this exists for tooling and tests.
func (m *Manager) Generate(userID, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   m.issuer,
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(now),
		},
		User: &UserClaim{ID: userID, Role: role},
	}
	if m.duration > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.duration))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate verifies the signature and expiry and returns the claims. A token
// without a user id is rejected with ErrMissingUser.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID() == "" {
		return nil, ErrMissingUser
	}

	return claims, nil
}
