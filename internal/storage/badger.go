package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
)

// BadgerEngine is a KVEngine on an embedded Badger database. It is tuned
// for a handful of small values: one small memtable, no compression, no
// block or index cache, and 1 MiB value-log files.
type BadgerEngine struct {
	db     *badger.DB
	cfg    KVConfig
	logger *slog.Logger
	closed atomic.Bool
}

var _ KVEngine = (*BadgerEngine)(nil)

// NewBadgerEngine opens or creates the database in cfg.Dir.
func NewBadgerEngine(cfg KVConfig, logger *slog.Logger) (*BadgerEngine, error) {
	if cfg.Dir == "" {
		return nil, errors.New("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.GCDiscardRatio <= 0 || cfg.GCDiscardRatio >= 1 {
		cfg.GCDiscardRatio = 0.5
	}

	opts := badger.DefaultOptions(cfg.Dir).
		WithLogger(badgerLogger{logger}).
		WithSyncWrites(cfg.SyncWrites).
		WithNumMemtables(1).
		WithMemTableSize(1 << 20).
		// Must stay below 15% of the memtable or Open rejects the options.
		WithValueThreshold(1 << 10).
		WithNumLevelZeroTables(1).
		WithNumLevelZeroTablesStall(2).
		WithValueLogFileSize(1 << 20).
		// Compressed tables require a block cache.
		WithCompression(options.None).
		WithBlockCacheSize(0).
		WithIndexCacheSize(0).
		WithDetectConflicts(false)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", cfg.Dir, err)
	}
	logger.Debug("token database opened", "dir", cfg.Dir)
	return &BadgerEngine{db: db, cfg: cfg, logger: logger}, nil
}

func (e *BadgerEngine) Get(_ context.Context, key []byte) ([]byte, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	var value []byte
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrKeyNotFound
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	return value, err
}

func (e *BadgerEngine) Set(_ context.Context, key, value []byte, ttl time.Duration) error {
	entry := badger.NewEntry(key, value)
	if ttl > 0 {
		entry = entry.WithTTL(ttl)
	}
	return e.update(func(txn *badger.Txn) error { return txn.SetEntry(entry) })
}

func (e *BadgerEngine) Delete(_ context.Context, key []byte) error {
	return e.update(func(txn *badger.Txn) error { return txn.Delete(key) })
}

func (e *BadgerEngine) update(fn func(*badger.Txn) error) error {
	if e.closed.Load() {
		return ErrClosed
	}
	return e.db.Update(fn)
}

// Close compacts the value log until Badger reports nothing to rewrite,
// then closes the database. Only the first call has an effect.
func (e *BadgerEngine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	rounds := 0
	for e.db.RunValueLogGC(e.cfg.GCDiscardRatio) == nil {
		rounds++
	}
	if err := e.db.Close(); err != nil {
		return fmt.Errorf("badger: close: %w", err)
	}
	e.logger.Debug("token database closed", "gc_rounds", rounds)
	return nil
}

// badgerLogger routes Badger's printf logging into slog. Its info output
// is startup noise, so it goes to debug.
type badgerLogger struct{ l *slog.Logger }

func (b badgerLogger) Errorf(f string, args ...any)   { b.l.Error(fmt.Sprintf(f, args...)) }
func (b badgerLogger) Warningf(f string, args ...any) { b.l.Warn(fmt.Sprintf(f, args...)) }
func (b badgerLogger) Infof(f string, args ...any)    { b.l.Debug(fmt.Sprintf(f, args...)) }
func (b badgerLogger) Debugf(f string, args ...any)   { b.l.Debug(fmt.Sprintf(f, args...)) }
