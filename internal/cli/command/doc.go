// Package command defines the calbook-cli commands.
//
// Commands are built with urfave/cli/v2 and grouped by concern:
//
//   - root.go: the App, global flags and the shared environment
//   - auth.go: login, register, logout, status, whoami, verify-email
//   - account.go: profile, password and mfa groups
//   - integrations.go: integration listing and health
//   - config.go, debug.go: local configuration and client metrics
//   - shell.go: the interactive shell
//
// Every command that shows a page declares a route. Its Before hook runs
// the route guard, and a redirect is reported as a RedirectError naming
// the command to run instead.
package command
