package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/yndnr/calbook-go/internal/cli/output"
	"github.com/yndnr/calbook-go/internal/cli/tokenstore"
	"github.com/yndnr/calbook-go/internal/infra/tlsroots"
)

// Verify checks the configuration and reports every problem found.
func Verify(cfg *CLIConfig) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if err := verifyServer(cfg.Server); err != nil {
		errs = append(errs, err)
	}
	if _, err := output.ParseFormat(cfg.Output); err != nil {
		add("output: %v", err)
	}
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil || cfg.Timezone == "Local" {
			add("timezone: unknown zone %q", cfg.Timezone)
		}
	}

	switch cfg.TokenStore {
	case tokenstore.KindDual:
		if cfg.StateDir == "" {
			add("state_dir is required for the dual token store")
		}
		switch cfg.DurableBackend {
		case tokenstore.DurableBadger:
		case tokenstore.DurableRedis:
			if cfg.Redis.Addr == "" {
				add("redis.addr is required when durable_backend is redis")
			}
		default:
			add("durable_backend: want badger or redis, got %q", cfg.DurableBackend)
		}
	case tokenstore.KindMemory:
	default:
		add("token_store: want dual or memory, got %q", cfg.TokenStore)
	}

	if cfg.Redis.DB < 0 {
		add("redis.db must not be negative")
	}
	if cfg.MaxRPS < 0 {
		add("max_rps must not be negative")
	}
	if cfg.Burst < 0 {
		add("burst must not be negative")
	}
	if cfg.Timeout <= 0 {
		add("timeout must be positive")
	}
	if cfg.TokenTTL < 0 {
		add("token_ttl must not be negative")
	}
	if cfg.TLS.CAFile != "" {
		bundle, err := tlsroots.LoadBundle(cfg.TLS.CAFile)
		if err != nil {
			add("tls.ca_file: %v", err)
		} else {
			for _, c := range bundle.Expired(time.Now()) {
				add("tls.ca_file: certificate %q is not valid now (valid %s to %s)",
					c.Subject.CommonName, c.NotBefore.Format(time.DateOnly), c.NotAfter.Format(time.DateOnly))
			}
		}
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		add("log_level: want debug, info, warn or error, got %q", cfg.LogLevel)
	}

	return errors.Join(errs...)
}

func verifyServer(server string) error {
	if server == "" {
		return errors.New("server is required")
	}
	raw := server
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server: scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("server: missing host in %q", server)
	}
	return nil
}
