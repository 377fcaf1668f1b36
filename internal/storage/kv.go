package storage

import (
	"context"
	"errors"
	"time"
)

// Common errors
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("kv engine closed")
)

// KVEngine is the embedded key-value storage contract.
//
// Implementations must be safe for concurrent use and durable across
// process restarts.
type KVEngine interface {
	// Get returns ErrKeyNotFound if the key is absent or expired.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set stores a value. A ttl of zero means no expiry.
	Set(ctx context.Context, key, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key []byte) error

	// Close flushes and releases the engine.
	Close() error
}

// KVConfig configures an embedded KV engine.
type KVConfig struct {
	// Dir is the storage directory.
	Dir string

	// SyncWrites fsyncs after each write. Tokens are small and written
	// rarely, so the default is true.
	SyncWrites bool

	// GCDiscardRatio is passed to value-log GC on close.
	// Default: 0.5
	GCDiscardRatio float64
}

// DefaultKVConfig returns the default KV configuration.
func DefaultKVConfig(dir string) KVConfig {
	return KVConfig{
		Dir:            dir,
		SyncWrites:     true,
		GCDiscardRatio: 0.5,
	}
}
