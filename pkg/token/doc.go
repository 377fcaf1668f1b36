// Package token generates and hashes the opaque tokens calbook hands out
// besides its JWTs.
//
// Token format:
//
//   - Prefix: a kind marker such as cbrt_ (refresh) or cbpr_ (password reset)
//   - Body: Base64 RawURL encoding of 32 random bytes (43 characters)
//
// Holders store only Hash(token), a hex SHA-256 digest, and compare with
// Verify, which runs in constant time. The prefixes let log redaction spot
// a token by its value alone.
package token
