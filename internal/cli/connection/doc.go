// Package connection is the API gateway of calbook-cli.
//
// A single HTTPClient carries every backend call. It decorates requests
// (token, timezone, request id, device id) and enforces one response
// policy:
//
//   - 401: one silent refresh and one resend, else sign out and go to /login
//   - 403, 429, 5xx and transport failures: a notification, then the error
//
// Every failure reaches the caller as an *APIError.
package connection
