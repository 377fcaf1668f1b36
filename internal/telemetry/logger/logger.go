package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger is the logging surface shared by the client and the devserver.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger
}

// Config holds logger configuration.
type Config struct {
	// Level is one of debug, info, warn or error.
	Level string
	// Format is json or text.
	Format string
	// Output defaults to os.Stderr.
	Output    io.Writer
	AddSource bool
}

// DefaultConfig is the JSON-at-info setup of the devserver.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", Output: os.Stderr}
}

// CLIConfig keeps the client quiet unless verbose is set: warnings and
// errors only, as text on stderr.
func CLIConfig(verbose bool) Config {
	cfg := Config{Level: "warn", Format: "text", Output: os.Stderr}
	if verbose {
		cfg.Level = "debug"
	}
	return cfg
}

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

func parseLevel(level string) slog.Level {
	if l, ok := levels[strings.ToLower(level)]; ok {
		return l
	}
	return slog.LevelInfo
}

// level is shared by every logger New returns so SetLevel reaches all of
// them at once.
var level = new(slog.LevelVar)

// SetLevel changes the level of every logger built by New. Unknown names
// mean info.
func SetLevel(name string) {
	level.Set(parseLevel(name))
}

// GetLevel reports the current level name.
func GetLevel() string {
	return strings.ToLower(level.Level().String())
}

// New builds a logger writing to cfg.Output. Secrets in attribute values
// are masked before they reach the handler.
func New(cfg Config) (Logger, error) {
	SetLevel(cfg.Level)

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}

	var h slog.Handler = slog.NewJSONHandler(out, opts)
	if f := strings.ToLower(cfg.Format); f == "text" || f == "console" {
		h = slog.NewTextHandler(out, opts)
	}
	return FromSlog(slog.New(h)), nil
}

// Discard returns a logger that drops everything.
func Discard() Logger {
	return FromSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// FromSlog wraps an existing *slog.Logger.
func FromSlog(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return &slogLogger{logger: l, ctx: context.Background()}
}

// Slog exposes the underlying *slog.Logger for libraries that want one.
func Slog(l Logger) *slog.Logger {
	if sl, ok := l.(*slogLogger); ok {
		return sl.logger
	}
	return slog.Default()
}

type slogLogger struct {
	logger *slog.Logger
	ctx    context.Context
}

func (l *slogLogger) Debug(msg string, args ...any) { l.logger.DebugContext(l.ctx, msg, args...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.logger.InfoContext(l.ctx, msg, args...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.logger.WarnContext(l.ctx, msg, args...) }
func (l *slogLogger) Error(msg string, args ...any) { l.logger.ErrorContext(l.ctx, msg, args...) }

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...), ctx: l.ctx}
}

func (l *slogLogger) WithContext(ctx context.Context) Logger {
	return &slogLogger{logger: l.logger, ctx: ctx}
}

var fallback atomic.Pointer[slogLogger]

func init() {
	l, _ := New(DefaultConfig())
	fallback.Store(l.(*slogLogger))
}

// SetDefault replaces the logger FromContext falls back to.
func SetDefault(l Logger) {
	if sl, ok := l.(*slogLogger); ok {
		fallback.Store(sl)
	}
}

// Default returns the fallback logger.
func Default() Logger {
	return fallback.Load()
}
