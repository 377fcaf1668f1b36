package tokenstore

import (
	"fmt"
	"time"

	"github.com/yndnr/calbook-go/pkg/crypto/sealbox"
)

// Sealed encrypts values before handing them to the wrapped backend.
// The storage key is bound as additional data.
type Sealed struct {
	inner Backend
	box   *sealbox.Box
}

var _ Backend = (*Sealed)(nil)

// NewSealed wraps inner with box.
func NewSealed(inner Backend, box *sealbox.Box) *Sealed {
	return &Sealed{inner: inner, box: box}
}

func (s *Sealed) Load(key string) ([]byte, bool, error) {
	sealed, ok, err := s.inner.Load(key)
	if err != nil || !ok {
		return nil, ok, err
	}
	plain, err := s.box.Open(sealed, []byte(key))
	if err != nil {
		return nil, false, fmt.Errorf("open %s: %w", key, err)
	}
	return plain, true, nil
}

func (s *Sealed) Save(key string, value []byte, ttl time.Duration) error {
	sealed, err := s.box.Seal(value, []byte(key))
	if err != nil {
		return fmt.Errorf("seal %s: %w", key, err)
	}
	return s.inner.Save(key, sealed, ttl)
}

func (s *Sealed) Delete(key string) error {
	return s.inner.Delete(key)
}

func (s *Sealed) Close() error {
	return s.inner.Close()
}
