// Package domain defines the session data model of calbook.
//
// Models are plain values without IO dependencies:
//
//   - User: profile with account status, roles and permissions
//   - Claims: the unverified token payload, a display hint only
//   - Integrations: calendar, video and webhook links plus health
//   - Errors: structured error codes (CB-<AREA>-<NNNN>)
package domain
