package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultServer   = "http://localhost:8000"
	DefaultOutput   = "table"
	DefaultProfile  = "default"
	DefaultMaxRPS   = 10.0
	DefaultBurst    = 20
	DefaultTimeout  = 30 * time.Second
	DefaultTokenTTL = 30 * 24 * time.Hour
	DefaultLogLevel = "warn"

	dirName  = ".calbook"
	fileName = "cli.yaml"
)

// DefaultDir returns ~/.calbook, or .calbook when there is no home.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return dirName
	}
	return filepath.Join(home, dirName)
}

// DefaultConfigPath returns ~/.calbook/cli.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDir(), fileName)
}

// Default returns the default configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server:         DefaultServer,
		Output:         DefaultOutput,
		StateDir:       DefaultDir(),
		Profile:        DefaultProfile,
		TokenStore:     "dual",
		DurableBackend: "badger",
		TokenTTL:       DefaultTokenTTL,
		Redis:          RedisSection{Addr: "localhost:6379"},
		MaxRPS:         DefaultMaxRPS,
		Burst:          DefaultBurst,
		Timeout:        DefaultTimeout,
		LogLevel:       DefaultLogLevel,
	}
}

// defaultValues is Default as a koanf map.
func defaultValues() map[string]any {
	d := Default()
	return map[string]any{
		"server":          d.Server,
		"output":          d.Output,
		"state_dir":       d.StateDir,
		"profile":         d.Profile,
		"token_store":     d.TokenStore,
		"durable_backend": d.DurableBackend,
		"token_ttl":       d.TokenTTL,
		"redis.addr":      d.Redis.Addr,
		"redis.db":        d.Redis.DB,
		"max_rps":         d.MaxRPS,
		"burst":           d.Burst,
		"timeout":         d.Timeout,
		"log_level":       d.LogLevel,
	}
}

// HistoryPath is where the shell keeps its history.
func (c *CLIConfig) HistoryPath() string {
	return filepath.Join(c.StateDir, "history")
}

// DeviceIDPath is where the installation id is kept.
func (c *CLIConfig) DeviceIDPath() string {
	return filepath.Join(c.StateDir, "device_id")
}
