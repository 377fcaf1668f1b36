package tokenstore

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/yndnr/calbook-go/internal/storage"
	"github.com/yndnr/calbook-go/internal/telemetry/logger"
	"github.com/yndnr/calbook-go/pkg/crypto/sealbox"
)

// Store kinds and durable backends accepted by Open.
const (
	KindDual   = "dual"
	KindMemory = "memory"

	DurableBadger = "badger"
	DurableRedis  = "redis"
)

// OpenOptions selects and configures a Store.
type OpenOptions struct {
	Kind     string // dual | memory
	Durable  string // badger | redis
	StateDir string
	Profile  string
	Redis    RedisConfig
	TTL      time.Duration
	Logger   logger.Logger
}

// Open builds the Store described by opts. For the dual kind, both
// backends are sealed with a box keyed from <state_dir>/secret.key.
func Open(ctx context.Context, opts OpenOptions) (Store, error) {
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}

	switch opts.Kind {
	case KindMemory:
		return NewMemoryStore(), nil
	case KindDual, "":
	default:
		return nil, fmt.Errorf("unknown token store %q", opts.Kind)
	}

	if opts.StateDir == "" {
		return nil, fmt.Errorf("token store: state dir is required")
	}

	secret, err := sealbox.LoadOrCreateSecret(filepath.Join(opts.StateDir, "secret.key"))
	if err != nil {
		return nil, err
	}
	box, err := sealbox.New(secret)
	if err != nil {
		return nil, err
	}

	var durable Backend
	switch opts.Durable {
	case DurableBadger, "":
		engine, err := storage.NewBadgerEngine(
			storage.DefaultKVConfig(filepath.Join(opts.StateDir, "data")),
			logger.Slog(opts.Logger),
		)
		if err != nil {
			return nil, fmt.Errorf("open durable store: %w", err)
		}
		durable = NewBadger(engine, opts.Profile)
	case DurableRedis:
		redisCfg := opts.Redis
		redisCfg.Profile = opts.Profile
		r, err := NewRedis(ctx, redisCfg)
		if err != nil {
			return nil, err
		}
		durable = r
	default:
		return nil, fmt.Errorf("unknown durable backend %q", opts.Durable)
	}

	cookies := NewCookieFile(filepath.Join(opts.StateDir, "cookies-"+namespace(opts.Profile)+".txt"))

	opts.Logger.Debug("token store opened",
		"durable", opts.Durable,
		"cipher", box.Type().String(),
		"cookie_jar", cookies.Path(),
	)

	return NewDual(
		NewSealed(cookies, box),
		NewSealed(durable, box),
		WithTTL(opts.TTL),
		WithLogger(opts.Logger),
	), nil
}
