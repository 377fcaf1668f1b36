package tokenstore

import (
	"errors"
	"time"

	"github.com/yndnr/calbook-go/internal/telemetry/logger"
)

// Storage keys.
const (
	KeyAuthToken    = "auth_token"
	KeyRefreshToken = "refresh_token"
	KeyAuthUser     = "auth_user"
)

// Store is the token storage contract used by the gateway and the auth
// service. Getters report absence with ok=false; backend faults are logged
// and read as absent.
type Store interface {
	Get() (string, bool)
	Set(token string) error
	Remove() error

	RefreshToken() (string, bool)
	SetRefreshToken(token string) error

	CachedUser() ([]byte, bool)
	SetCachedUser(data []byte) error

	Close() error
}

// Backend is one physical location for stored values.
type Backend interface {
	// Load returns ok=false when the key is absent or expired.
	Load(key string) (value []byte, ok bool, err error)

	// Save stores value under key. A ttl of zero means no expiry.
	Save(key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	Close() error
}

// Dual stores every value in a primary (cookie) backend and a durable
// backend. Reads resolve primary first; when both hold a value the
// primary wins. An empty value counts as absent, so an emptied cookie
// falls back to the durable copy.
type Dual struct {
	primary Backend
	durable Backend
	ttl     time.Duration
	logger  logger.Logger
}

var _ Store = (*Dual)(nil)

// Option configures a Dual store.
type Option func(*Dual)

// WithTTL sets the lifetime of stored tokens. Zero keeps them until removed.
func WithTTL(ttl time.Duration) Option {
	return func(d *Dual) { d.ttl = ttl }
}

// WithLogger sets the logger used for backend faults.
func WithLogger(l logger.Logger) Option {
	return func(d *Dual) { d.logger = l }
}

// NewDual creates a Dual store. durable may be nil, in which case the
// store has a single location.
func NewDual(primary, durable Backend, opts ...Option) *Dual {
	d := &Dual{
		primary: primary,
		durable: durable,
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewMemoryStore returns an ephemeral single-location store.
func NewMemoryStore() *Dual {
	return NewDual(NewMemory(), nil)
}

// Get returns the bearer token.
func (d *Dual) Get() (string, bool) {
	v, ok := d.load(KeyAuthToken)
	return string(v), ok
}

// Set stores the bearer token in every backend. An empty token removes it.
func (d *Dual) Set(token string) error {
	if token == "" {
		return d.delete(KeyAuthToken)
	}
	return d.save(KeyAuthToken, []byte(token))
}

// Remove clears the bearer token, the refresh token and the cached user
// from every backend.
func (d *Dual) Remove() error {
	return errors.Join(
		d.delete(KeyAuthToken),
		d.delete(KeyRefreshToken),
		d.delete(KeyAuthUser),
	)
}

// RefreshToken returns the stored refresh credential.
func (d *Dual) RefreshToken() (string, bool) {
	v, ok := d.load(KeyRefreshToken)
	return string(v), ok
}

// SetRefreshToken stores the refresh credential. Empty removes it.
func (d *Dual) SetRefreshToken(token string) error {
	if token == "" {
		return d.delete(KeyRefreshToken)
	}
	return d.save(KeyRefreshToken, []byte(token))
}

// CachedUser returns the cached profile blob.
func (d *Dual) CachedUser() ([]byte, bool) {
	return d.load(KeyAuthUser)
}

// SetCachedUser stores the profile blob. Nil removes it.
func (d *Dual) SetCachedUser(data []byte) error {
	if data == nil {
		return d.delete(KeyAuthUser)
	}
	return d.save(KeyAuthUser, data)
}

// Close closes both backends.
func (d *Dual) Close() error {
	var errs []error
	for _, b := range d.backends() {
		errs = append(errs, b.Close())
	}
	return errors.Join(errs...)
}

func (d *Dual) backends() []Backend {
	if d.durable == nil {
		return []Backend{d.primary}
	}
	return []Backend{d.primary, d.durable}
}

func (d *Dual) load(key string) ([]byte, bool) {
	for i, b := range d.backends() {
		v, ok, err := b.Load(key)
		if err != nil {
			d.logger.Warn("token store read failed", "key", key, "backend", i, "error", err)
			continue
		}
		if ok && len(v) > 0 {
			return v, true
		}
	}
	return nil, false
}

func (d *Dual) save(key string, value []byte) error {
	var errs []error
	for i, b := range d.backends() {
		if err := b.Save(key, value, d.ttl); err != nil {
			d.logger.Warn("token store write failed", "key", key, "backend", i, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dual) delete(key string) error {
	var errs []error
	for i, b := range d.backends() {
		if err := b.Delete(key); err != nil {
			d.logger.Warn("token store delete failed", "key", key, "backend", i, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
