package command

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/calbook-go/internal/cli/config"
	"github.com/yndnr/calbook-go/internal/cli/output"
	"github.com/yndnr/calbook-go/internal/cli/tokenstore"
	"github.com/yndnr/calbook-go/internal/infra/buildinfo"
)

// AppName is the executable name used in help and hints.
const AppName = "calbook-cli"

// Option configures App.
type Option func(*runner)

// WithIO replaces stdin, stdout and stderr.
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(r *runner) {
		r.in = bufferedReader(in)
		r.inFile, _ = in.(*os.File)
		r.out = out
		r.errOut = errOut
	}
}

// WithEnv runs every command against env. The caller keeps ownership and
// closes it.
func WithEnv(env *Env) Option {
	return func(r *runner) {
		r.env = env
		r.cfg = env.Config
	}
}

// WithEnvOptions sets the options used when the App creates its own Env.
func WithEnvOptions(opts EnvOptions) Option {
	return func(r *runner) { r.envOpts = opts }
}

// inShell marks an App that runs a shell line.
func inShell(s *shellSession) Option {
	return func(r *runner) {
		r.shell = s
		r.inFile = s.inFile
	}
}

// runner holds the state of one App.
type runner struct {
	in     *bufio.Reader
	inFile *os.File
	out    io.Writer
	errOut io.Writer

	cfg     *config.CLIConfig
	env     *Env
	ownsEnv bool
	envOpts EnvOptions
	shell   *shellSession
	verbose bool
}

func bufferedReader(in io.Reader) *bufio.Reader {
	if b, ok := in.(*bufio.Reader); ok {
		return b
	}
	return bufio.NewReader(in)
}

// App creates the CLI application.
func App(opts ...Option) *cli.App {
	r := &runner{
		in:     bufio.NewReader(os.Stdin),
		inFile: os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r.app()
}

func (r *runner) app() *cli.App {
	return &cli.App{
		Name:                 AppName,
		Usage:                "Sign in to calbook and manage your account",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		Commands:             r.commands(),
		Reader:               r.in,
		Writer:               r.out,
		ErrWriter:            r.errOut,
		EnableBashCompletion: true,
		Before:               r.before,
		After:                r.after,
		ExitErrHandler:       func(*cli.Context, error) {},
	}
}

func (r *runner) commands() []*cli.Command {
	return []*cli.Command{
		r.loginCommand(),
		r.registerCommand(),
		r.logoutCommand(),
		r.statusCommand(),
		r.whoamiCommand(),
		r.verifyEmailCommand(),
		r.profileCommand(),
		r.passwordCommand(),
		r.mfaCommand(),
		r.integrationsCommand(),
		r.configCommand(),
		r.debugCommand(),
		r.shellCommand(),
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Configuration file (default ~/.calbook/cli.yaml)",
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Backend base URL (e.g., http://localhost:8000)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.StringFlag{
			Name:  "profile",
			Usage: "Credential profile to use",
		},
		&cli.StringFlag{
			Name:  "timezone",
			Usage: "IANA zone sent to the backend and used for times",
		},
		&cli.StringFlag{
			Name:  "state-dir",
			Usage: "Directory for tokens, history and the device id",
		},
		&cli.BoolFlag{
			Name:  "ephemeral",
			Usage: "Keep the session in memory only",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable verbose output",
		},
	}
}

// flagKeys maps string flags to configuration keys.
var flagKeys = map[string]string{
	"server":    "server",
	"output":    "output",
	"profile":   "profile",
	"timezone":  "timezone",
	"state-dir": "state_dir",
}

// overrides returns the configuration values set by flags.
func overrides(c *cli.Context) map[string]any {
	o := make(map[string]any)
	for flag, key := range flagKeys {
		if c.IsSet(flag) {
			o[key] = c.String(flag)
		}
	}
	if c.Bool("ephemeral") {
		o["token_store"] = tokenstore.KindMemory
	}
	if c.Bool("verbose") {
		o["log_level"] = "debug"
	}
	return o
}

func (r *runner) before(c *cli.Context) error {
	r.verbose = c.Bool("verbose")
	if r.cfg != nil {
		return nil
	}
	cfg, err := config.Load(config.LoadOptions{
		Path:      c.String("config"),
		Overrides: overrides(c),
	})
	if err != nil {
		return err
	}
	r.cfg = cfg
	return nil
}

func (r *runner) after(*cli.Context) error {
	if r.env == nil || !r.ownsEnv {
		return nil
	}
	err := r.env.Close()
	r.env = nil
	return err
}

// environment returns the Env, creating it on first use.
func (r *runner) environment(c *cli.Context) (*Env, error) {
	if r.env != nil {
		return r.env, nil
	}
	opts := r.envOpts
	if opts.Stderr == nil {
		opts.Stderr = r.errOut
		opts.Color = isTerminal(r.errOut)
	}
	opts.Verbose = opts.Verbose || r.verbose
	opts.Ephemeral = opts.Ephemeral || c.Bool("ephemeral")

	env, err := NewEnv(ctxOf(c), r.cfg, opts)
	if err != nil {
		return nil, err
	}
	r.env = env
	r.ownsEnv = true
	return env, nil
}

// formatter returns the output formatter chosen by --output or the
// configuration.
func (r *runner) formatter(c *cli.Context) (output.Formatter, output.Format, error) {
	name := r.cfg.Output
	if c.IsSet("output") {
		name = c.String("output")
	}
	format, err := output.ParseFormat(name)
	if err != nil {
		return nil, "", err
	}
	opts := output.Options{Wide: c.Bool("wide")}
	if r.env != nil {
		opts.Location = r.env.Location()
	}
	return output.NewFormatter(format, opts), format, nil
}

// render writes data in the chosen format.
func (r *runner) render(c *cli.Context, data any) error {
	f, _, err := r.formatter(c)
	if err != nil {
		return err
	}
	return f.Format(r.out, data)
}

// structured reports whether the output is json or yaml. Messages meant
// for people go to stderr then, keeping stdout parseable.
func (r *runner) structured(c *cli.Context) bool {
	_, format, err := r.formatter(c)
	return err == nil && format != output.FormatTable
}

func ctxOf(c *cli.Context) context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && output.IsTerminal(f)
}
