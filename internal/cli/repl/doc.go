// Package repl provides the interactive shell of calbook-cli.
//
//   - repl.go: the read loop, built-ins and argument splitting
//   - completer.go: command path completion (a line ending in "?")
//   - history.go: history persistence
package repl
