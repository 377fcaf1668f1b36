package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Hash returns the hex SHA-256 digest of tok.
func Hash(tok string) string {
	h := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(h[:])
}

// Verify reports whether tok hashes to expectedHash, in constant time.
func Verify(tok, expectedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(Hash(tok)), []byte(expectedHash)) == 1
}
