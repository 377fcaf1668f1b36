// Package cmap provides a string-keyed map sharded over several mutexes.
//
// The devserver keeps its per-client rate limiters and open MFA
// challenges in one: requests for different keys rarely share a lock.
//
//	m := cmap.New[*rate.Limiter](16)
//	lim := m.GetOrCreate(ip, func() *rate.Limiter { return rate.NewLimiter(5, 10) })
package cmap
