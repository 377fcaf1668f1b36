// Package guard decides which route the CLI may show for a session state.
//
// Protected and Public are pure functions of a service.State. Router keeps
// the current route, re-evaluates it on every navigation and every state
// change, and serves as the gateway's connection.Navigator.
package guard
