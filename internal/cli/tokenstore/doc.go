// Package tokenstore persists the session credential of calbook-cli.
//
// A Store hands out the bearer token, the refresh token and the cached
// user profile. The Dual implementation keeps two copies:
//
//   - a cookie-jar file in the state directory (primary, wins on reads)
//   - a durable key-value backend (Badger on disk, or a shared Redis)
//
// Writes go to both copies and Remove clears every key from both. Values
// are sealed with pkg/crypto/sealbox before they reach a backend.
package tokenstore
