package devserver

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yndnr/calbook-go/internal/core/domain"
	"github.com/yndnr/calbook-go/pkg/token"
)

// accessClaims is the access token payload. Its shape is what
// domain.DecodeClaims reads on the client.
type accessClaims struct {
	UserID      string   `json:"user_id"`
	Email       string   `json:"email"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

var errTokenInvalid = errors.New("token invalid")

// signer issues and verifies HS256 access tokens.
type signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func (s *signer) sign(u *domain.User) (string, error) {
	now := s.now()
	jti, err := token.Random(12)
	if err != nil {
		return "", err
	}
	claims := accessClaims{
		UserID:      u.ID,
		Email:       u.Email,
		Roles:       u.RoleNames(),
		Permissions: u.PermissionCodenames(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   u.ID,
			Issuer:    "calbook-devserver",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *signer) verify(raw string) (*accessClaims, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errTokenInvalid, err)
	}
	return &claims, nil
}
