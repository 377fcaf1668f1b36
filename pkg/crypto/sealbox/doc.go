// Package sealbox seals small secrets (session tokens, cached profiles)
// before they are written to disk or to a shared cache.
//
// A Box derives its AEAD key from a per-install secret with HKDF-SHA256
// and picks the cipher by architecture:
//
//   - AES-256-GCM on amd64 and arm64, where Go uses hardware AES
//   - ChaCha20-Poly1305 everywhere else
//
// Sealed values carry a one-byte cipher tag followed by the nonce, so a
// value sealed on one machine opens on any other holding the same secret.
// The additional data binds a value to its storage key; moving a sealed
// token under a different key makes Open fail.
//
// Usage:
//
//	secret, err := sealbox.LoadOrCreateSecret(filepath.Join(stateDir, "secret.key"))
//	box, err := sealbox.New(secret)
//	sealed, err := box.Seal([]byte(token), []byte("auth_token"))
//	plain, err := box.Open(sealed, []byte("auth_token"))
package sealbox
