package config

import (
	"fmt"
	"strings"

	"github.com/yndnr/calbook-go/internal/infra/confloader"
)

// LoadOptions selects the sources of Load.
type LoadOptions struct {
	// Path is the configuration file. Empty means DefaultConfigPath,
	// which may be missing; an explicit path must exist.
	Path string

	// Overrides are flag values set on the command line, keyed like the
	// file (e.g. "server", "redis.addr").
	Overrides map[string]any
}

// Load merges defaults, the file, CALBOOK_* variables and overrides.
func Load(opts LoadOptions) (*CLIConfig, error) {
	fileOpt := confloader.WithOptionalConfigFile(DefaultConfigPath())
	if opts.Path != "" {
		fileOpt = confloader.WithConfigFile(opts.Path)
	}

	l := confloader.NewLoader(
		fileOpt,
		confloader.WithDefaults(defaultValues()),
		confloader.WithOverrides(opts.Overrides),
	)

	var cfg CLIConfig
	if err := l.Load(&cfg); err != nil {
		return nil, fmt.Errorf("load cli config: %w", err)
	}
	if l.FileLoaded() {
		cfg.File = l.FilePath()
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *CLIConfig) normalize() {
	c.Server = strings.TrimRight(strings.TrimSpace(c.Server), "/")
	c.Output = strings.ToLower(strings.TrimSpace(c.Output))
	c.TokenStore = strings.ToLower(c.TokenStore)
	c.DurableBackend = strings.ToLower(c.DurableBackend)
	if c.Profile == "" {
		c.Profile = DefaultProfile
	}
}
