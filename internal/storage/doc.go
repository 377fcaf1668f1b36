// Package storage provides the embedded key-value engine used for durable
// client state (tokens, cached profile).
//
// The engine is Badger v3 tuned for a small, single-user footprint: tiny
// memtables, no block cache, and value-log GC on close instead of a
// background loop.
package storage
