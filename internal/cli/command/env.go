package command

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/yndnr/calbook-go/internal/cli/api"
	"github.com/yndnr/calbook-go/internal/cli/config"
	"github.com/yndnr/calbook-go/internal/cli/connection"
	"github.com/yndnr/calbook-go/internal/cli/guard"
	"github.com/yndnr/calbook-go/internal/cli/notify"
	"github.com/yndnr/calbook-go/internal/cli/tokenstore"
	"github.com/yndnr/calbook-go/internal/core/service"
	"github.com/yndnr/calbook-go/internal/telemetry/logger"
	"github.com/yndnr/calbook-go/internal/telemetry/metric"
)

// Env is everything a command needs to talk to the backend. One Env
// serves a single command run, or a whole shell session.
type Env struct {
	Config  *config.CLIConfig
	Logger  logger.Logger
	Tokens  tokenstore.Store
	Metrics *metric.ClientMetrics
	HTTP    *connection.HTTPClient
	API     *api.Client
	Auth    *service.AuthService
	Router  *guard.Router
}

// EnvOptions are the process-level inputs of NewEnv.
type EnvOptions struct {
	// Stderr receives logs and notifications.
	Stderr io.Writer
	// Color enables ANSI colors in notifications.
	Color bool
	// Verbose forces debug logging.
	Verbose bool
	// Ephemeral keeps tokens in memory and uses a throwaway device id.
	Ephemeral bool
	// Notifier replaces the terminal notifier.
	Notifier notify.Notifier
}

// NewEnv wires the token store, gateway, API client, auth service and
// router, then restores any persisted session.
func NewEnv(ctx context.Context, cfg *config.CLIConfig, opts EnvOptions) (*Env, error) {
	// 1. Logger
	logCfg := logger.CLIConfig(opts.Verbose)
	if !opts.Verbose && cfg.LogLevel != "" {
		logCfg.Level = cfg.LogLevel
	}
	if opts.Stderr != nil {
		logCfg.Output = opts.Stderr
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	// 2. Token store
	kind := cfg.TokenStore
	if opts.Ephemeral {
		kind = tokenstore.KindMemory
	}
	tokens, err := tokenstore.Open(ctx, tokenstore.OpenOptions{
		Kind:     kind,
		Durable:  cfg.DurableBackend,
		StateDir: cfg.StateDir,
		Profile:  cfg.Profile,
		Redis: tokenstore.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Timeout:  cfg.Timeout,
		},
		TTL:    cfg.TokenTTL,
		Logger: log.With("component", "tokenstore"),
	})
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}

	env := &Env{Config: cfg, Logger: log, Tokens: tokens, Metrics: metric.NewClientMetrics()}
	if err := env.connect(ctx, opts); err != nil {
		_ = tokens.Close()
		return nil, err
	}
	return env, nil
}

func (e *Env) connect(ctx context.Context, opts EnvOptions) error {
	notifier := opts.Notifier
	if notifier == nil {
		w := opts.Stderr
		if w == nil {
			w = io.Discard
		}
		notifier = notify.NewTerminal(w, opts.Color)
	}

	deviceID := uuid.NewString()
	if !opts.Ephemeral {
		id, err := connection.LoadOrCreateDeviceID(e.Config.DeviceIDPath())
		if err != nil {
			return fmt.Errorf("device id: %w", err)
		}
		deviceID = id
	}

	h, err := connection.NewHTTPClient(connection.Options{
		Server:   e.Config.Server,
		Tokens:   e.Tokens,
		Notifier: notifier,
		Timezone: e.Config.Timezone,
		DeviceID: deviceID,
		Timeout:  e.Config.Timeout,
		MaxRPS:   e.Config.MaxRPS,
		Burst:    e.Config.Burst,
		CAFile:   e.Config.TLS.CAFile,
		Metrics:  e.Metrics,
		Logger:   e.Logger.With("component", "gateway"),
	})
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}
	e.HTTP = h
	e.API = api.New(h)
	e.Auth = service.NewAuthService(e.API, e.Tokens, &service.AuthServiceConfig{
		Logger: e.Logger.With("component", "auth"),
	})
	h.SetRefreshFunc(e.API.Refresh)
	h.SetHooks(connection.Hooks{
		OnTokenRefreshed: e.Auth.OnTokenRefreshed,
		OnAuthLost:       e.Auth.OnAuthLost,
	})

	st := e.Auth.Hydrate(ctx)
	e.Router = guard.NewRouter(e.Auth, guard.AfterLogin(st),
		guard.WithLogger(e.Logger.With("component", "router")),
	)
	h.SetNavigator(e.Router)
	e.Logger.Debug("session restored", "phase", st.Phase, "route", e.Router.Current())
	return nil
}

// Location is the zone used for displayed times.
func (e *Env) Location() *time.Location {
	loc, err := time.LoadLocation(e.HTTP.Timezone())
	if err != nil {
		return time.Local
	}
	return loc
}

// Close releases the router subscription and the token store.
func (e *Env) Close() error {
	if e.Router != nil {
		e.Router.Close()
	}
	return e.Tokens.Close()
}
