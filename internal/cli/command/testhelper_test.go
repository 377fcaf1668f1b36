package command

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yndnr/calbook-go/internal/devserver"
)

// harness runs calbook-cli against an in-process devserver with its own
// state directory and configuration file.
type harness struct {
	t        *testing.T
	backend  *devserver.Server
	url      string
	stateDir string
	cfgPath  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, nil)
}

// newHarnessWith lets mutate adjust the devserver configuration.
func newHarnessWith(t *testing.T, mutate func(*devserver.Config)) *harness {
	t.Helper()
	cfg := devserver.DefaultConfig()
	cfg.BcryptCost = bcrypt.MinCost
	cfg.MaxFailedLogins = 0
	if mutate != nil {
		mutate(&cfg)
	}
	backend, err := devserver.New(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(backend.Handler())
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cli.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("output: table\n"), 0o600))

	return &harness{
		t:        t,
		backend:  backend,
		url:      ts.URL,
		stateDir: filepath.Join(dir, "state"),
		cfgPath:  cfgPath,
	}
}

// result is the outcome of one invocation.
type result struct {
	out    string
	errOut string
	err    error
}

// run invokes the CLI once with input as stdin.
func (h *harness) run(input string, args ...string) result {
	h.t.Helper()
	var out, errOut bytes.Buffer
	app := App(WithIO(strings.NewReader(input), &out, &errOut))
	argv := append([]string{
		AppName,
		"--server", h.url,
		"--state-dir", h.stateDir,
		"--config", h.cfgPath,
	}, args...)
	err := app.Run(argv)
	return result{out: out.String(), errOut: errOut.String(), err: err}
}

// mustRun invokes the CLI and fails the test on an error.
func (h *harness) mustRun(input string, args ...string) result {
	h.t.Helper()
	res := h.run(input, args...)
	require.NoError(h.t, res.err, "calbook-cli %s\nstdout:\n%s\nstderr:\n%s",
		strings.Join(args, " "), res.out, res.errOut)
	return res
}

// login signs email in with the seed password.
func (h *harness) login(email string) result {
	h.t.Helper()
	return h.loginAs(email, devserver.SeedPassword)
}

func (h *harness) loginAs(email, password string) result {
	h.t.Helper()
	return h.mustRun("", "login", "--email", email, "--password", password)
}

// lastMail returns the token of the newest message of kind sent to email.
func (h *harness) lastMail(email, kind string) string {
	h.t.Helper()
	var token string
	for _, m := range h.backend.Mail(email) {
		if m.Kind == kind {
			token = m.Token
		}
	}
	require.NotEmpty(h.t, token, "no %s mail for %s", kind, email)
	return token
}
