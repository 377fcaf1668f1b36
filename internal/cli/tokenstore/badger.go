package tokenstore

import (
	"context"
	"errors"
	"time"

	"github.com/yndnr/calbook-go/internal/storage"
)

// Badger is a Backend on top of the embedded KV engine. Keys are prefixed
// with the profile name so several servers can share one state dir.
type Badger struct {
	engine storage.KVEngine
	prefix string
}

var _ Backend = (*Badger)(nil)

// NewBadger wraps engine. The backend takes ownership and closes it.
func NewBadger(engine storage.KVEngine, profile string) *Badger {
	return &Badger{engine: engine, prefix: namespace(profile) + "/"}
}

func (b *Badger) Load(key string) ([]byte, bool, error) {
	v, err := b.engine.Get(context.Background(), []byte(b.prefix+key))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (b *Badger) Save(key string, value []byte, ttl time.Duration) error {
	return b.engine.Set(context.Background(), []byte(b.prefix+key), value, ttl)
}

func (b *Badger) Delete(key string) error {
	return b.engine.Delete(context.Background(), []byte(b.prefix+key))
}

func (b *Badger) Close() error {
	return b.engine.Close()
}

func namespace(profile string) string {
	if profile == "" {
		return "default"
	}
	return profile
}
