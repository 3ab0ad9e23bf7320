// Package auth resolves bearer tokens to user identities at handshake
// time. The lobby core consumes this as an external capability and never
// issues tokens itself.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/dkeye/Lobby/internal/domain"
)

var (
	// ErrTokenExpired indicates that the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidToken indicates that the token is invalid
	ErrInvalidToken = errors.New("invalid token")
)

// Claims represents JWT claims
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens against a shared HMAC secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify resolves a raw token (with or without the "Bearer " prefix) to a
// user identity, or fails before any connection state is created.
func (v *Verifier) Verify(raw string) (*domain.User, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	user, err := domain.NewUser(domain.UserID(claims.UserID), claims.Username, claims.Avatar)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}
	return user, nil
}

// GenerateToken signs a token for a user. Kept for local development and
// tests; production tokens come from the main application.
func (v *Verifier) GenerateToken(user *domain.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   string(user.ID),
		Username: user.Username,
		Avatar:   user.Avatar,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   string(user.ID),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
