// Package metric provides Prometheus metrics for the calbook client.
//
// The registry is owned by the HTTP gateway rather than the global default
// registry, so tests and multiple clients in one process do not collide.
package metric
