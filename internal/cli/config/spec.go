package config

import "time"

// CLIConfig is the configuration of calbook-cli.
type CLIConfig struct {
	// Server is the backend base URL.
	Server string `koanf:"server" json:"server"`

	// Output is the default output format: table, json or yaml.
	Output string `koanf:"output" json:"output"`

	// Timezone is sent as X-Timezone. Empty means the system zone.
	Timezone string `koanf:"timezone" json:"timezone"`

	// StateDir holds tokens, the sealing key, history and the device id.
	StateDir string `koanf:"state_dir" json:"state_dir"`

	// Profile namespaces stored credentials so several accounts can be
	// signed in side by side.
	Profile string `koanf:"profile" json:"profile"`

	TokenStore     string        `koanf:"token_store" json:"token_store"`         // dual | memory
	DurableBackend string        `koanf:"durable_backend" json:"durable_backend"` // badger | redis
	TokenTTL       time.Duration `koanf:"token_ttl" json:"token_ttl"`

	Redis RedisSection `koanf:"redis" json:"redis"`

	// MaxRPS throttles outgoing requests; 0 disables throttling.
	MaxRPS  float64       `koanf:"max_rps" json:"max_rps"`
	Burst   int           `koanf:"burst" json:"burst"`
	Timeout time.Duration `koanf:"timeout" json:"timeout"`

	TLS TLSSection `koanf:"tls" json:"tls"`

	LogLevel string `koanf:"log_level" json:"log_level"`

	// File is the configuration file that was read, if any.
	File string `koanf:"-" json:"-"`
}

// RedisSection configures the shared durable token backend.
type RedisSection struct {
	Addr     string `koanf:"addr" json:"addr"`
	Password string `koanf:"password" json:"password"`
	DB       int    `koanf:"db" json:"db"`
}

// TLSSection configures trust for the backend.
type TLSSection struct {
	// CAFile is an extra PEM bundle trusted on top of the system roots.
	CAFile string `koanf:"ca_file" json:"ca_file"`
}
