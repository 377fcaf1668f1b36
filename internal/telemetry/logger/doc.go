// Package logger provides structured logging for calbook.
//
// It wraps log/slog and adds:
//
//   - JSON or text output with a runtime-adjustable level
//   - Redaction of credentials (bearer tokens, refresh tokens, passwords)
//   - Request ID propagation through context.Context
//
// The CLI logs to stderr at warn level unless --verbose is given; the
// development backend logs JSON at info level.
package logger
