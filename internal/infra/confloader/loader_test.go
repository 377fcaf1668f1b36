package confloader

import (
	"os"
	"path/filepath"
	"testing"
)

type testConfig struct {
	Server   string  `koanf:"server"`
	StateDir string  `koanf:"state_dir"`
	MaxRPS   float64 `koanf:"max_rps"`
	Redis    struct {
		Addr string `koanf:"addr"`
		DB   int    `koanf:"db"`
	} `koanf:"redis"`
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"CALBOOK_SERVER":       "server",
		"CALBOOK_STATE_DIR":    "state_dir",
		"CALBOOK_REDIS__ADDR":  "redis.addr",
		"CALBOOK_TLS__CA_FILE": "tls.ca_file",
	}
	for in, want := range tests {
		if got := EnvKey(DefaultEnvPrefix, in); got != want {
			t.Errorf("EnvKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeFile(t, `
server: https://api.example.com
state_dir: /tmp/calbook
redis:
  addr: localhost:6379
  db: 2
`)
	var cfg testConfig
	l := NewLoader(WithConfigFile(path), WithEnvPrefix(""))
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server != "https://api.example.com" || cfg.StateDir != "/tmp/calbook" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 2 {
		t.Errorf("redis = %+v", cfg.Redis)
	}
	if !l.FileLoaded() {
		t.Error("FileLoaded() = false")
	}
}

func TestLoader_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.yaml")

	var cfg testConfig
	if err := NewLoader(WithConfigFile(missing)).Load(&cfg); err == nil {
		t.Error("required missing file: want error")
	}

	l := NewLoader(WithOptionalConfigFile(missing), WithDefaults(map[string]any{"server": "http://localhost:8000"}))
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("optional missing file: %v", err)
	}
	if l.FileLoaded() {
		t.Error("FileLoaded() = true for a missing file")
	}
	if cfg.Server != "http://localhost:8000" {
		t.Errorf("default not applied: %q", cfg.Server)
	}
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := writeFile(t, "server: [unclosed")
	var cfg testConfig
	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err == nil {
		t.Error("want parse error")
	}
}

func TestLoader_Priority(t *testing.T) {
	path := writeFile(t, `
server: http://file
state_dir: /from/file
max_rps: 5
redis:
  addr: file:6379
`)
	t.Setenv("CALBOOK_STATE_DIR", "/from/env")
	t.Setenv("CALBOOK_REDIS__ADDR", "env:6379")
	t.Setenv("CALBOOK_SERVER", "http://env")

	var cfg testConfig
	l := NewLoader(
		WithConfigFile(path),
		WithDefaults(map[string]any{"server": "http://default", "max_rps": 10.0, "redis.db": 3}),
		WithOverrides(map[string]any{"server": "http://flag"}),
	)
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server != "http://flag" {
		t.Errorf("server = %q, flag should win", cfg.Server)
	}
	if cfg.StateDir != "/from/env" {
		t.Errorf("state_dir = %q, env should beat file", cfg.StateDir)
	}
	if cfg.Redis.Addr != "env:6379" {
		t.Errorf("redis.addr = %q", cfg.Redis.Addr)
	}
	if cfg.MaxRPS != 5 {
		t.Errorf("max_rps = %v, file should beat default", cfg.MaxRPS)
	}
	if cfg.Redis.DB != 3 {
		t.Errorf("redis.db = %d, dotted default should apply", cfg.Redis.DB)
	}
}

func TestLoader_All(t *testing.T) {
	l := NewLoader(WithEnvPrefix(""), WithDefaults(map[string]any{"redis.addr": "x", "server": "y"}))
	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatal(err)
	}
	all := l.All()
	if all["redis.addr"] != "x" || l.String("server") != "y" {
		t.Errorf("All() = %v", all)
	}
}

func TestMapProvider_Read(t *testing.T) {
	got, err := mapProvider{"a.b.c": 1, "a.d": 2, "e": 3}.Read()
	if err != nil {
		t.Fatal(err)
	}
	a, ok := got["a"].(map[string]any)
	if !ok {
		t.Fatalf("a not nested: %v", got)
	}
	if a["d"] != 2 || a["b"].(map[string]any)["c"] != 1 || got["e"] != 3 {
		t.Errorf("Read() = %v", got)
	}
	if _, err := (mapProvider{}).ReadBytes(); err == nil {
		t.Error("ReadBytes: want error")
	}
}
