package devserver

import (
	"errors"
	"log/slog"
	"time"
)

// Config configures a Server.
type Config struct {
	// Secret signs access tokens (HS256). A random one is generated when
	// empty.
	Secret []byte `koanf:"secret"`

	// AccessTTL is the access token lifetime. Short values make refresh
	// flows easy to exercise.
	AccessTTL time.Duration `koanf:"access_ttl"`

	// RefreshTTL is the refresh token lifetime.
	RefreshTTL time.Duration `koanf:"refresh_ttl"`

	// OTPTTL is how long an MFA challenge stays open.
	OTPTTL time.Duration `koanf:"otp_ttl"`

	// StaticMFACode, when set, is accepted for every MFA device in
	// addition to the challenge code.
	StaticMFACode string `koanf:"static_mfa_code"`

	// RequestsPerSecond limits requests per client IP. Zero disables it.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`

	// MaxFailedLogins locks an email out for LockoutDuration after that
	// many consecutive failures. Zero disables lockout.
	MaxFailedLogins int           `koanf:"max_failed_logins"`
	LockoutDuration time.Duration `koanf:"lockout_duration"`

	// BcryptCost is the cost for stored password hashes. Tests use
	// bcrypt.MinCost.
	BcryptCost int `koanf:"bcrypt_cost"`

	// GraceViaError answers logins inside the grace period with the
	// password_expired error envelope and no token. The client then
	// changes the password with its email and current password.
	GraceViaError bool `koanf:"grace_via_error"`

	// Seed adds the seeded accounts on start.
	Seed bool `koanf:"seed"`

	Logger *slog.Logger     `koanf:"-"`
	Now    func() time.Time `koanf:"-"`
}

// DefaultConfig returns the configuration used by calbook-devserver.
func DefaultConfig() Config {
	return Config{
		AccessTTL:       5 * time.Minute,
		RefreshTTL:      24 * time.Hour,
		OTPTTL:          5 * time.Minute,
		StaticMFACode:   "123456",
		Burst:           10,
		MaxFailedLogins: 5,
		LockoutDuration: 30 * time.Second,
		BcryptCost:      10,
		Seed:            true,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.AccessTTL <= 0 {
		return errors.New("access token ttl must be positive")
	}
	if c.RefreshTTL < c.AccessTTL {
		return errors.New("refresh token ttl must not be shorter than access token ttl")
	}
	if c.OTPTTL <= 0 {
		return errors.New("otp ttl must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("requests per second must not be negative")
	}
	if c.MaxFailedLogins > 0 && c.LockoutDuration <= 0 {
		return errors.New("lockout duration must be positive when lockout is enabled")
	}
	if len(c.Secret) > 0 && len(c.Secret) < 32 {
		return errors.New("secret must be at least 32 bytes")
	}
	return nil
}
