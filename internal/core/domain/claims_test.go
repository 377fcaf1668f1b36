package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any-key"))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestDecodeClaims(t *testing.T) {
	exp := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	tok := signedToken(t, jwt.MapClaims{
		"user_id":     "u1",
		"email":       "ada@example.com",
		"roles":       []string{"Organizer"},
		"permissions": []string{"can_manage_events"},
		"exp":         exp.Unix(),
		"iat":         exp.Add(-time.Hour).Unix(),
	})

	c, err := DecodeClaims(tok)
	if err != nil {
		t.Fatalf("DecodeClaims() error = %v", err)
	}
	if c.UserID != "u1" || c.Email != "ada@example.com" {
		t.Errorf("identity = %q %q", c.UserID, c.Email)
	}
	if len(c.Roles) != 1 || c.Permissions[0] != "can_manage_events" {
		t.Errorf("roles/permissions = %v %v", c.Roles, c.Permissions)
	}
	if !c.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", c.ExpiresAt, exp)
	}

	if c.Expired(exp.Add(-time.Minute)) {
		t.Error("Expired() before exp")
	}
	if !c.Expired(exp) {
		t.Error("Expired() at exp should be true")
	}
	if got := c.ExpiresIn(exp.Add(-time.Minute)); got != time.Minute {
		t.Errorf("ExpiresIn() = %v", got)
	}
	if got := c.ExpiresIn(exp.Add(time.Minute)); got != 0 {
		t.Errorf("ExpiresIn() after exp = %v", got)
	}
}

func TestDecodeClaims_SubjectFallback(t *testing.T) {
	c, err := DecodeClaims(signedToken(t, jwt.MapClaims{"sub": "u9"}))
	if err != nil {
		t.Fatal(err)
	}
	if c.UserID != "u9" {
		t.Errorf("UserID = %q, want u9", c.UserID)
	}
	if c.Expired(time.Now()) {
		t.Error("token without exp should never report expired")
	}
}

func TestDecodeClaims_Opaque(t *testing.T) {
	for _, tok := range []string{"", "9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b", "a.b.c"} {
		if _, err := DecodeClaims(tok); !errors.Is(err, ErrTokenOpaque) {
			t.Errorf("DecodeClaims(%q) error = %v, want ErrTokenOpaque", tok, err)
		}
	}
}
