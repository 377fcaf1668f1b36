// Package service provides the client-side session services for calbook.
//
// This package contains:
//
//   - AuthService: the authentication state machine. It owns the session
//     state (token, user, MFA and password-expiry flags), runs every
//     credential operation against the backend, and publishes each
//     transition to subscribers.
//
// State is explicitly constructed and injected. Sign-out re-initializes it
// instead of mutating it in place, and every operation is fenced by a
// generation so a stale result can never overwrite a newer state.
package service
