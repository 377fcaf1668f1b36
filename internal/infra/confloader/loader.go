package confloader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the environment variable prefix.
const DefaultEnvPrefix = "CALBOOK_"

// sectionSeparator splits an environment name into key sections.
const sectionSeparator = "__"

// Loader loads configuration from layered sources.
type Loader struct {
	k            *koanf.Koanf
	envPrefix    string
	filePath     string
	fileOptional bool
	defaults     map[string]any
	overrides    map[string]any
	fileLoaded   bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix. Empty disables
// environment loading.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets a YAML file that must exist.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
		l.fileOptional = false
	}
}

// WithOptionalConfigFile sets a YAML file that is skipped when missing.
func WithOptionalConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
		l.fileOptional = true
	}
}

// WithDefaults sets the lowest-priority values.
func WithDefaults(values map[string]any) Option {
	return func(l *Loader) {
		l.defaults = values
	}
}

// WithOverrides sets the highest-priority values, typically flags that
// were set explicitly.
func WithOverrides(values map[string]any) Option {
	return func(l *Loader) {
		l.overrides = values
	}
}

// NewLoader creates a loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads every source in priority order and unmarshals into target,
// using koanf struct tags.
func (l *Loader) Load(target any) error {
	if len(l.defaults) > 0 {
		if err := l.LoadMap(l.defaults); err != nil {
			return fmt.Errorf("load defaults: %w", err)
		}
	}
	if err := l.loadConfigFile(); err != nil {
		return err
	}
	if err := l.LoadEnv(); err != nil {
		return err
	}
	if len(l.overrides) > 0 {
		if err := l.LoadMap(l.overrides); err != nil {
			return fmt.Errorf("load overrides: %w", err)
		}
	}
	if err := l.Unmarshal(target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

func (l *Loader) loadConfigFile() error {
	if l.filePath == "" {
		return nil
	}
	if l.fileOptional {
		if _, err := os.Stat(l.filePath); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
	}
	if err := l.LoadFile(l.filePath); err != nil {
		return fmt.Errorf("load config file: %w", err)
	}
	l.fileLoaded = true
	return nil
}

// LoadFile merges a YAML file.
func (l *Loader) LoadFile(path string) error {
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}
	return nil
}

// LoadEnv merges environment variables carrying the prefix.
func (l *Loader) LoadEnv() error {
	if l.envPrefix == "" {
		return nil
	}
	provider := env.Provider(l.envPrefix, ".", func(s string) string {
		return EnvKey(l.envPrefix, s)
	})
	if err := l.k.Load(provider, nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// EnvKey converts an environment variable name to a configuration key.
func EnvKey(prefix, name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, prefix))
	return strings.ReplaceAll(name, sectionSeparator, ".")
}

// LoadMap merges a map of dotted keys or nested maps.
func (l *Loader) LoadMap(data map[string]any) error {
	if err := l.k.Load(mapProvider(data), nil); err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	return nil
}

// Unmarshal decodes everything loaded so far into target.
func (l *Loader) Unmarshal(target any) error {
	return l.k.Unmarshal("", target)
}

// FileLoaded reports whether the configuration file was read.
func (l *Loader) FileLoaded() bool {
	return l.fileLoaded
}

// FilePath returns the configured file path.
func (l *Loader) FilePath() string {
	return l.filePath
}

// String returns a value by dotted key.
func (l *Loader) String(key string) string {
	return l.k.String(key)
}

// All returns the merged configuration as a flat map.
func (l *Loader) All() map[string]any {
	return l.k.All()
}
