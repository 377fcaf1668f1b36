package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/calbook-go/internal/cli/config"
	"github.com/yndnr/calbook-go/internal/cli/output"
)

// configCommand returns the config subcommand group.
func (r *runner) configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Local configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: r.configShow,
			},
			{
				Name:   "validate",
				Usage:  "Check the effective configuration",
				Action: r.configValidate,
			},
			{
				Name:   "path",
				Usage:  "Print the configuration file path",
				Action: r.configPath,
			},
		},
	}
}

// configView is the configuration as shown to people: durations are
// written the way the file takes them.
type configView struct {
	File           string  `json:"file,omitempty"`
	Server         string  `json:"server"`
	Output         string  `json:"output"`
	Timezone       string  `json:"timezone,omitempty"`
	StateDir       string  `json:"state_dir"`
	Profile        string  `json:"profile"`
	TokenStore     string  `json:"token_store"`
	DurableBackend string  `json:"durable_backend"`
	TokenTTL       string  `json:"token_ttl"`
	RedisAddr      string  `json:"redis_addr,omitempty"`
	RedisPassword  string  `json:"redis_password,omitempty"`
	RedisDB        int     `json:"redis_db"`
	MaxRPS         float64 `json:"max_rps"`
	Burst          int     `json:"burst"`
	Timeout        string  `json:"timeout"`
	CAFile         string  `json:"ca_file,omitempty"`
	LogLevel       string  `json:"log_level"`
}

func newConfigView(cfg *config.CLIConfig) configView {
	s := config.Sanitize(cfg)
	return configView{
		File:           s.File,
		Server:         s.Server,
		Output:         s.Output,
		Timezone:       s.Timezone,
		StateDir:       s.StateDir,
		Profile:        s.Profile,
		TokenStore:     s.TokenStore,
		DurableBackend: s.DurableBackend,
		TokenTTL:       s.TokenTTL.String(),
		RedisAddr:      s.Redis.Addr,
		RedisPassword:  s.Redis.Password,
		RedisDB:        s.Redis.DB,
		MaxRPS:         s.MaxRPS,
		Burst:          s.Burst,
		Timeout:        s.Timeout.String(),
		CAFile:         s.TLS.CAFile,
		LogLevel:       s.LogLevel,
	}
}

func (r *runner) configShow(c *cli.Context) error {
	view := newConfigView(r.cfg)
	if r.structured(c) {
		return r.render(c, view)
	}
	return output.NewFormatter(output.FormatYAML, output.Options{}).Format(r.out, view)
}

func (r *runner) configValidate(c *cli.Context) error {
	if err := config.Verify(r.cfg); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}
	source := r.cfg.File
	if source == "" {
		source = "defaults"
	}
	r.say(c, "Configuration is valid (%s).", source)
	return nil
}

func (r *runner) configPath(c *cli.Context) error {
	path := r.cfg.File
	if path == "" {
		path = config.DefaultConfigPath()
		if c.IsSet("config") {
			path = c.String("config")
		}
	}
	fmt.Fprintln(r.out, path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(r.errOut, "(file does not exist; defaults apply)")
	}
	return nil
}
