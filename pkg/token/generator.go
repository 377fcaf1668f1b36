package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

// Prefix marks the kind of an opaque token.
type Prefix string

const (
	PrefixRefresh      Prefix = "cbrt_"
	PrefixVerification Prefix = "cbvt_"
	PrefixReset        Prefix = "cbpr_"
)

// Prefixes lists every known prefix.
var Prefixes = []Prefix{PrefixRefresh, PrefixVerification, PrefixReset}

// DefaultLength is the number of random bytes in a token body.
const DefaultLength = 32

// Generate returns a new token of the given kind.
func Generate(prefix Prefix) (string, error) {
	body, err := Random(DefaultLength)
	if err != nil {
		return "", err
	}
	return string(prefix) + body, nil
}

// Random returns n random bytes, Base64 RawURL encoded.
func Random(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HasPrefix reports whether tok is of the given kind and has a body.
func HasPrefix(tok string, prefix Prefix) bool {
	return len(tok) > len(prefix) && strings.HasPrefix(tok, string(prefix))
}

// KindOf returns the prefix of tok, or "" when it has none.
func KindOf(tok string) Prefix {
	for _, p := range Prefixes {
		if HasPrefix(tok, p) {
			return p
		}
	}
	return ""
}
