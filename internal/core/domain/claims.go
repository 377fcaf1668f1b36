package domain

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of a session token decoded WITHOUT signature
// verification. It is a hint for display (expiry, identity) and for
// skipping a pointless profile fetch on startup. It must never gate a
// security decision.
type Claims struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Roles       []string  `json:"roles,omitempty"`
	Permissions []string  `json:"permissions,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
	IssuedAt    time.Time `json:"issued_at,omitempty"`
}

// tokenClaims is the JWT shape issued by the backend.
type tokenClaims struct {
	UserID      string   `json:"user_id"`
	Email       string   `json:"email"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// DecodeClaims reads the payload of a JWT-shaped token. Opaque tokens
// return ErrTokenOpaque.
func DecodeClaims(token string) (*Claims, error) {
	var tc tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &tc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenOpaque, err)
	}

	c := &Claims{
		UserID:      tc.UserID,
		Email:       tc.Email,
		Roles:       tc.Roles,
		Permissions: tc.Permissions,
	}
	if c.UserID == "" {
		c.UserID = tc.Subject
	}
	if tc.ExpiresAt != nil {
		c.ExpiresAt = tc.ExpiresAt.Time
	}
	if tc.IssuedAt != nil {
		c.IssuedAt = tc.IssuedAt.Time
	}
	return c, nil
}

// ErrTokenOpaque is returned by DecodeClaims for tokens without a
// readable payload.
var ErrTokenOpaque = NewDomainError("CB-TOKN-4000", "token payload not readable")

// Expired reports whether the hinted expiry has passed. Tokens without an
// expiry never report expired.
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// ExpiresIn returns the time left until expiry, or zero.
func (c *Claims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt.IsZero() || !now.Before(c.ExpiresAt) {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}
