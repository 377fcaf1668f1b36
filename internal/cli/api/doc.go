// Package api holds the typed calls to the calbook backend.
//
// Every call goes through connection.HTTPClient, so request decoration and
// the response policy apply. Request types validate themselves before any
// network call, and backend failures come back as domain errors that still
// wrap the *connection.APIError they came from.
package api
