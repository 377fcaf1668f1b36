package devserver

import (
	"fmt"

	"github.com/yndnr/calbook-go/internal/infra/confloader"
)

// EnvPrefix is the environment variable prefix of calbook-devserver.
const EnvPrefix = "CALBOOK_DEVSERVER_"

// Settings is everything calbook-devserver reads from its file, the
// environment and its flags.
type Settings struct {
	Addr     string `koanf:"addr"`
	LogLevel string `koanf:"log_level"`
	Config   `koanf:",squash"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{Addr: ":8000", LogLevel: "info", Config: DefaultConfig()}
}

// LoadSettings merges the defaults, the YAML file at path (if any),
// CALBOOK_DEVSERVER_* variables and overrides, then validates the result.
// Durations are written like "5m" or "24h".
func LoadSettings(path string, overrides map[string]any) (Settings, error) {
	opts := []confloader.Option{
		confloader.WithEnvPrefix(EnvPrefix),
		confloader.WithOverrides(overrides),
	}
	if path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}

	s := DefaultSettings()
	if err := confloader.NewLoader(opts...).Load(&s); err != nil {
		return Settings{}, err
	}
	if err := s.Config.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}
