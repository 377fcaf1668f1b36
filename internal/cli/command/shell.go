package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/calbook-go/internal/cli/config"
	"github.com/yndnr/calbook-go/internal/cli/repl"
	"github.com/yndnr/calbook-go/internal/cli/tokenstore"
	"github.com/yndnr/calbook-go/internal/infra/confloader"
	"github.com/yndnr/calbook-go/internal/infra/shutdown"
	"github.com/yndnr/calbook-go/internal/telemetry/logger"
)

// shellSession is the state shared by the lines of one shell.
type shellSession struct {
	env       *Env
	inFile    *os.File
	overrides map[string]any

	// reloaded holds a configuration read by the file watcher. It is
	// applied before the next line runs.
	reloaded atomic.Pointer[config.CLIConfig]

	// lastMFA is the device enrolled by the last mfa setup.
	lastMFA string
}

func (r *runner) shellCommand() *cli.Command {
	return &cli.Command{
		Name:   "shell",
		Usage:  "Start an interactive shell",
		Action: r.runShell,
	}
}

func (r *runner) runShell(c *cli.Context) error {
	if r.shell != nil {
		return errors.New("already in the shell")
	}
	env, err := r.environment(c)
	if err != nil {
		return err
	}
	session := &shellSession{env: env, inFile: r.inFile, overrides: overrides(c)}

	historyPath := env.Config.HistoryPath()
	if env.Config.TokenStore == tokenstore.KindMemory {
		historyPath = ""
	}
	history := repl.NewHistory(historyPath, repl.DefaultHistorySize)
	if err := history.Load(); err != nil {
		env.Logger.Warn("load shell history", "error", err)
	}

	h := shutdown.NewHandler(2 * time.Second)
	h.OnShutdown(func(context.Context) error { return history.Save() })
	if stop := r.watchConfig(session); stop != nil {
		h.OnShutdown(func(context.Context) error { return stop() })
	}

	ctx, cancel := context.WithCancel(ctxOf(c))
	defer cancel()
	go func() {
		if sig, _ := h.Wait(ctx); sig != nil {
			fmt.Fprintln(r.errOut)
			os.Exit(130)
		}
	}()

	fmt.Fprintf(r.out, "calbook shell. Type `help` for commands, `<prefix>?` to complete, `exit` to leave.\n")
	shell := repl.New(repl.Config{
		In:        r.in,
		Out:       r.out,
		Err:       r.errOut,
		Exec:      r.shellExec(session),
		Prompt:    func() string { return fmt.Sprintf("calbook:%s> ", env.Router.Current()) },
		History:   history,
		Completer: repl.NewCompleter(append(repl.CommandPaths(r.commands()), "help")),
		Logger:    env.Logger.With("component", "shell"),
	})
	runErr := shell.Run(ctx)
	return errors.Join(runErr, h.Shutdown())
}

// shellExec runs one line through a fresh App bound to the shared Env.
func (r *runner) shellExec(s *shellSession) repl.ExecFunc {
	return func(ctx context.Context, args []string) error {
		if cfg := s.reloaded.Swap(nil); cfg != nil {
			s.apply(cfg)
		}
		app := App(
			WithIO(r.in, r.out, r.errOut),
			WithEnv(s.env),
			inShell(s),
		)
		return app.RunContext(ctx, append([]string{AppName}, args...))
	}
}

// watchConfig reloads the configuration file when it changes. It returns
// the function that stops watching, or nil when there is no file.
func (r *runner) watchConfig(s *shellSession) func() error {
	file := s.env.Config.File
	if file == "" {
		return nil
	}
	log := s.env.Logger.With("component", "config")
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		log.Warn("config watcher unavailable", "error", err)
		return nil
	}
	if err := w.Watch(file); err != nil {
		_ = w.Stop()
		return nil
	}
	w.OnChange(func(path string) {
		cfg, err := config.Load(config.LoadOptions{Path: path, Overrides: s.overrides})
		if err != nil {
			log.Warn("reload config", "error", err)
			return
		}
		if err := config.Verify(cfg); err != nil {
			log.Warn("reloaded config is invalid, keeping the current one", "error", err)
			return
		}
		s.env.HTTP.SetTimezone(cfg.Timezone)
		s.env.HTTP.SetRateLimit(cfg.MaxRPS, cfg.Burst)
		s.reloaded.Store(cfg)
		log.Info("config reloaded", "file", path)
	})
	w.StartAsync()
	return w.Stop
}

// apply copies the settings that may change while the shell runs. The
// server, state dir and token store stay as the shell started. A new log
// level takes effect for every logger of the process.
func (s *shellSession) apply(cfg *config.CLIConfig) {
	cur := s.env.Config
	cur.Output = cfg.Output
	cur.Timezone = cfg.Timezone
	cur.MaxRPS = cfg.MaxRPS
	cur.Burst = cfg.Burst
	if cfg.LogLevel != "" && cfg.LogLevel != cur.LogLevel {
		cur.LogLevel = cfg.LogLevel
		logger.SetLevel(cfg.LogLevel)
	}
}
