// Package session issues and verifies the bearer tokens that carry a
// types.Session across HTTP requests, and tracks revoked tokens.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clikanban/kanban/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrRevoked is returned by Verify for a token that was signed out.
var ErrRevoked = errors.New("token revoked")

// Claims are the JWT claims of a session token.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Session rebuilds the session the token was issued for.
func (c Claims) Session() types.Session {
	return types.Session{UserID: c.Subject, Username: c.Username, Role: types.Role(c.Role)}
}

// Issuer signs and verifies HS256 session tokens.
type Issuer struct {
	secret  []byte
	ttl     time.Duration
	revoker Revoker
}

// NewIssuer constructs an Issuer. A nil revoker keeps revocations in memory.
func NewIssuer(secret string, ttl time.Duration, revoker Revoker) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if revoker == nil {
		revoker = NewMemoryRevoker()
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, revoker: revoker}, nil
}

// Issue signs a token for sess.
func (i *Issuer) Issue(sess types.Session) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   sess.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Username: sess.Username,
		Role:     string(sess.Role),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify parses tokenString and rejects it if it is expired, malformed or
// revoked.
func (i *Issuer) Verify(ctx context.Context, tokenString string) (Claims, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return i.secret, nil
	})
	if err != nil {
		return Claims{}, err
	}
	if !token.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, errors.New("missing subject")
	}
	revoked, err := i.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Claims{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return Claims{}, ErrRevoked
	}
	return claims, nil
}

// Revoke signs the token out until it would have expired anyway.
func (i *Issuer) Revoke(ctx context.Context, claims Claims) error {
	ttl := i.ttl
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	return i.revoker.Revoke(ctx, claims.ID, ttl)
}
