package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/yndnr/calbook-go/internal/devserver"
	"github.com/yndnr/calbook-go/internal/infra/buildinfo"
	"github.com/yndnr/calbook-go/internal/infra/shutdown"
	"github.com/yndnr/calbook-go/internal/telemetry/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"addr":            "addr",
	"log-level":       "log_level",
	"access-ttl":      "access_ttl",
	"refresh-ttl":     "refresh_ttl",
	"rps":             "requests_per_second",
	"burst":           "burst",
	"mfa-code":        "static_mfa_code",
	"grace-via-error": "grace_via_error",
}

func run() error {
	defaults := devserver.DefaultSettings()
	var (
		configFile  = flag.String("config", "", "YAML configuration file")
		_           = flag.String("addr", defaults.Addr, "Listen address")
		_           = flag.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
		_           = flag.Duration("access-ttl", defaults.AccessTTL, "Access token lifetime")
		_           = flag.Duration("refresh-ttl", defaults.RefreshTTL, "Refresh token lifetime")
		_           = flag.Float64("rps", 0, "Requests per second per client IP (0 disables the limit)")
		_           = flag.Int("burst", defaults.Burst, "Burst size for -rps")
		_           = flag.String("mfa-code", defaults.StaticMFACode, "Code accepted for every MFA device (empty disables it)")
		_           = flag.Bool("grace-via-error", false, "Answer grace-period logins with the password_expired error and no token")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("calbook-devserver %s\n", buildinfo.String())
		return nil
	}

	// Flags set on the command line win over the file and the environment.
	overrides := make(map[string]any)
	flag.Visit(func(f *flag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			overrides[key] = f.Value.String()
		}
	})
	settings, err := devserver.LoadSettings(*configFile, overrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  settings.LogLevel,
		Format: "json",
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	cfg := settings.Config
	cfg.Logger = logger.Slog(log)

	srv, err := devserver.New(cfg)
	if err != nil {
		return err
	}

	h := shutdown.NewHandler(10 * time.Second)
	h.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down devserver")
		return srv.Shutdown(ctx)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe(settings.Addr)
		cancel()
	}()

	log.Info("devserver started",
		"version", buildinfo.Version,
		"accounts", []string{devserver.SeedOrganizer, devserver.SeedMFA, devserver.SeedGrace, devserver.SeedExpired, devserver.SeedSuspended})

	if _, err := h.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	select {
	case err := <-serveErr:
		return err
	default:
	}
	log.Info("devserver stopped")
	return nil
}
