package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/yndnr/calbook-go/internal/cli/guard"
	"github.com/yndnr/calbook-go/internal/cli/output"
	"github.com/yndnr/calbook-go/internal/core/service"
)

// RedirectError reports that a route guard turned a command away.
type RedirectError struct {
	Route    guard.Route
	Redirect guard.Route
	Reason   guard.Reason
	Hint     string
}

func (e *RedirectError) Error() string {
	return e.Hint
}

// require returns a Before hook that guards route.
func (r *runner) require(route guard.Route) cli.BeforeFunc {
	return func(c *cli.Context) error {
		env, err := r.environment(c)
		if err != nil {
			return err
		}
		_, d := env.Router.Go(route)
		if d.Allowed() {
			return nil
		}
		return &RedirectError{
			Route:    route,
			Redirect: d.Redirect,
			Reason:   d.Reason,
			Hint:     r.hint(d, env.Auth.State()),
		}
	}
}

// hint tells the user what to run to reach a route the guard allows.
func (r *runner) hint(d guard.Decision, st service.State) string {
	switch {
	case d.Reason == guard.ReasonMFAPending || d.Redirect == guard.RouteMFA:
		return "verification pending: run " + r.cmd("mfa verify CODE")
	case d.Redirect == guard.RouteForcePasswordChange:
		return "password expired: run " + r.cmd("password force")
	case d.Redirect == guard.RouteResetPassword:
		return "password expired: run " + r.cmd("password reset EMAIL")
	case d.Reason == guard.ReasonSignedIn:
		who := "another account"
		if st.User != nil {
			who = st.User.Email
		}
		return fmt.Sprintf("already signed in as %s: run %s first", who, r.cmd("logout"))
	case d.Redirect == guard.RouteLogin:
		return "login required: run " + r.cmd("login")
	}
	return fmt.Sprintf("not available here (go to %s)", d.Redirect)
}

// cmd quotes a command line the way the user types it.
func (r *runner) cmd(line string) string {
	if r.shell != nil {
		return "`" + line + "`"
	}
	return "`" + AppName + " " + line + "`"
}

// say prints a message for people. With structured output it goes to
// stderr.
func (r *runner) say(c *cli.Context, format string, args ...any) {
	w := r.out
	if r.structured(c) {
		w = r.errOut
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// busy runs fn behind a spinner when stderr is a terminal.
func busy[T any](r *runner, c *cli.Context, message string, fn func(ctx context.Context) (T, error)) (T, error) {
	if !isTerminal(r.errOut) {
		return fn(ctxOf(c))
	}
	s := output.NewSpinner(r.errOut, message)
	s.Start()
	v, err := fn(ctxOf(c))
	s.Stop()
	return v, err
}

// errNoInput is returned when a prompt hits the end of input.
var errNoInput = errors.New("no input")

// line prompts for one line. A flag value wins over the prompt.
func (r *runner) line(c *cli.Context, flag, label string) (string, error) {
	if flag != "" && c.IsSet(flag) {
		return strings.TrimSpace(c.String(flag)), nil
	}
	fmt.Fprintf(r.errOut, "%s: ", label)
	s, err := r.in.ReadString('\n')
	switch {
	case err == io.EOF && s == "":
		return "", fmt.Errorf("%s: %w", strings.ToLower(label), errNoInput)
	case err != nil && err != io.EOF:
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// secret prompts for a password without echo when stdin is a terminal.
func (r *runner) secret(c *cli.Context, flag, label string) (string, error) {
	if flag != "" && c.IsSet(flag) {
		return c.String(flag), nil
	}
	if r.inFile != nil && term.IsTerminal(int(r.inFile.Fd())) {
		fmt.Fprintf(r.errOut, "%s: ", label)
		b, err := term.ReadPassword(int(r.inFile.Fd()))
		fmt.Fprintln(r.errOut)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return r.line(c, "", label)
}

// newPassword prompts for a new password and its confirmation.
func (r *runner) newPassword(c *cli.Context, flag string) (string, string, error) {
	if c.IsSet(flag) {
		pw := c.String(flag)
		return pw, pw, nil
	}
	pw, err := r.secret(c, "", "New password")
	if err != nil {
		return "", "", err
	}
	confirm, err := r.secret(c, "", "Confirm new password")
	if err != nil {
		return "", "", err
	}
	return pw, confirm, nil
}

// confirm asks a yes/no question. Anything but y or yes is no.
func (r *runner) confirm(question string) bool {
	fmt.Fprintf(r.errOut, "%s [y/N]: ", question)
	s, _ := r.in.ReadString('\n')
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "y" || s == "yes"
}
