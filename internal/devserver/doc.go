// Package devserver is an in-memory implementation of the calbook backend
// auth and integration endpoints, for local development and for end-to-end
// tests of the CLI.
//
// Seeded accounts all use the password in SeedPassword:
//
//	organizer@example.com   plain login
//	mfa@example.com         login requires a one-time code
//	grace@example.com       expired password, grace login allowed
//	expired@example.com     expired password, no grace login
//	suspended@example.com   suspended account
//
// One-time codes, verification tokens and reset tokens are never sent
// anywhere. They can be read back from GET /dev/mfa/otp?device_id=... and
// GET /dev/mail?email=... .
//
// With GraceViaError set, grace@example.com is answered with the
// password_expired error and no token. POST /api/v1/users/force-password-change/
// then takes email and old_password in place of a bearer token.
//
// It is not a production backend: state lives in memory and is lost on
// restart.
package devserver
