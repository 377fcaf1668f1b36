package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/calbook-go/internal/cli/api"
	"github.com/yndnr/calbook-go/internal/cli/guard"
	"github.com/yndnr/calbook-go/internal/core/domain"
	"github.com/yndnr/calbook-go/internal/core/service"
)

func (r *runner) loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Account email"},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password (prompted when omitted)"},
			&cli.StringFlag{Name: "mfa-code", Usage: "One-time code for accounts with MFA"},
			&cli.StringFlag{Name: "new-password", Usage: "Replacement for a password that expired in its grace period"},
		},
		Before: r.require(guard.RouteLogin),
		Action: r.login,
	}
}

func (r *runner) login(c *cli.Context) error {
	env := r.env
	email, err := r.line(c, "email", "Email")
	if err != nil {
		return err
	}
	password, err := r.secret(c, "password", "Password")
	if err != nil {
		return err
	}

	req := api.LoginRequest{Email: email, Password: password, MFACode: c.String("mfa-code")}
	st, err := busy(r, c, "Signing in", func(ctx context.Context) (service.State, error) {
		return env.Auth.Login(ctx, req)
	})
	if err != nil {
		return err
	}

	if st.MFARequired && r.shell == nil {
		// The challenge lives in this process only, so finish it now.
		code, err := r.line(c, "", "Verification code")
		if err != nil {
			return fmt.Errorf("verification required: rerun with --mfa-code: %w", err)
		}
		st, err = busy(r, c, "Verifying", func(ctx context.Context) (service.State, error) {
			return env.Auth.VerifyMFA(ctx, code)
		})
		if err != nil {
			return err
		}
	}

	if st.PasswordExpired && st.GraceLoginAllowed && !st.HasSession() && r.shell == nil {
		// No grace token was issued, so the change has to happen now.
		r.say(c, "Your password has expired. Choose a new one to continue.")
		pw, confirm, err := r.newPassword(c, "new-password")
		if err != nil {
			return fmt.Errorf("password expired: rerun with --new-password: %w", err)
		}
		change := api.ForcePasswordChangeRequest{OldPassword: password, NewPassword: pw, NewPasswordConfirm: confirm}
		st, err = busy(r, c, "Changing password", func(ctx context.Context) (service.State, error) {
			return env.Auth.ForcePasswordChange(ctx, change)
		})
		if err != nil {
			return err
		}
		r.say(c, "Password changed.")
	}
	return r.signedIn(c, st)
}

// signedIn reports the outcome of a credential exchange and moves to the
// route that follows it.
func (r *runner) signedIn(c *cli.Context, st service.State) error {
	r.env.Router.Go(guard.AfterLogin(st))

	switch st.Phase {
	case service.PhaseAuthenticated:
		if st.User == nil {
			r.say(c, "Signed in.")
			return nil
		}
		r.say(c, "Signed in as %s <%s>.", st.User.FullName(), st.User.Email)
		if !st.User.IsEmailVerified {
			r.say(c, "Your email is not verified yet. Run %s with the token from your inbox.", r.cmd("verify-email TOKEN"))
		}
	case service.PhaseMFAPending:
		r.say(c, "A verification code was sent. Run %s to finish signing in.", r.cmd("mfa verify CODE"))
	case service.PhasePasswordExpired:
		if !st.GraceLoginAllowed {
			return fmt.Errorf("password expired: run %s", r.cmd("password reset EMAIL"))
		}
		r.say(c, "Your password has expired. Run %s to choose a new one.", r.cmd("password force"))
	}
	return nil
}

func (r *runner) registerCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Account email"},
			&cli.StringFlag{Name: "first-name", Usage: "First name"},
			&cli.StringFlag{Name: "last-name", Usage: "Last name"},
			&cli.StringFlag{Name: "username", Usage: "Username (optional)"},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password (prompted when omitted)"},
			&cli.BoolFlag{Name: "accept-terms", Usage: "Accept the terms of service"},
		},
		Before: r.require(guard.RouteRegister),
		Action: r.register,
	}
}

func (r *runner) register(c *cli.Context) error {
	env := r.env
	email, err := r.line(c, "email", "Email")
	if err != nil {
		return err
	}
	first, err := r.line(c, "first-name", "First name")
	if err != nil {
		return err
	}
	last, err := r.line(c, "last-name", "Last name")
	if err != nil {
		return err
	}
	password, confirm, err := r.newPassword(c, "password")
	if err != nil {
		return err
	}
	terms := c.Bool("accept-terms") || r.confirm("Accept the terms of service?")

	req := api.RegisterRequest{
		Email:           email,
		Username:        c.String("username"),
		FirstName:       first,
		LastName:        last,
		Password:        password,
		PasswordConfirm: confirm,
		Timezone:        env.HTTP.Timezone(),
		TermsAccepted:   terms,
	}
	st, err := busy(r, c, "Creating account", func(ctx context.Context) (service.State, error) {
		return env.Auth.Register(ctx, req)
	})
	if err != nil {
		return err
	}
	r.say(c, "Account created.")
	return r.signedIn(c, st)
}

func (r *runner) logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Sign out and forget the stored session",
		Action: func(c *cli.Context) error {
			env, err := r.environment(c)
			if err != nil {
				return err
			}
			if !env.Auth.State().HasSession() {
				if _, ok := env.Tokens.Get(); !ok {
					r.say(c, "Not signed in.")
					return nil
				}
			}
			env.Auth.Logout(ctxOf(c))
			env.Router.Go(guard.RouteLogin)
			r.say(c, "Signed out.")
			return nil
		},
	}
}

// statusView is what status shows.
type statusView struct {
	Phase           service.Phase `json:"phase"`
	Route           guard.Route   `json:"route"`
	Server          string        `json:"server"`
	Profile         string        `json:"profile"`
	Email           string        `json:"email,omitempty"`
	AccountStatus   string        `json:"account_status,omitempty"`
	MFAEnabled      bool          `json:"mfa_enabled"`
	PasswordExpired bool          `json:"password_expired"`
	TokenExpires    *time.Time    `json:"token_expires,omitempty"`
	Timezone        string        `json:"timezone"`
	Error           string        `json:"error,omitempty" table:"wide"`
}

func (r *runner) statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the session state",
		Action: func(c *cli.Context) error {
			env, err := r.environment(c)
			if err != nil {
				return err
			}
			st := env.Auth.State()
			view := statusView{
				Phase:           st.Phase,
				Route:           env.Router.Current(),
				Server:          env.HTTP.BaseURL(),
				Profile:         env.Config.Profile,
				PasswordExpired: st.PasswordExpired,
				Timezone:        env.HTTP.Timezone(),
				Error:           st.Error,
			}
			if st.User != nil {
				view.Email = st.User.Email
				view.AccountStatus = string(st.User.AccountStatus)
				view.MFAEnabled = st.User.IsMFAEnabled
			}
			if claims, err := domain.DecodeClaims(st.Token); err == nil && !claims.ExpiresAt.IsZero() {
				exp := claims.ExpiresAt
				view.TokenExpires = &exp
			}
			return r.render(c, view)
		},
	}
}

// userView is a user as shown by whoami and profile show.
type userView struct {
	ID            string   `json:"id" table:"wide"`
	Email         string   `json:"email"`
	Name          string   `json:"name"`
	Username      string   `json:"username,omitempty"`
	Timezone      string   `json:"timezone,omitempty"`
	AccountStatus string   `json:"account_status"`
	EmailVerified bool     `json:"email_verified"`
	MFAEnabled    bool     `json:"mfa_enabled"`
	Roles         []string `json:"roles"`
	Permissions   []string `json:"permissions" table:"wide"`
}

func newUserView(u *domain.User) userView {
	return userView{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.FullName(),
		Username:      u.Username,
		Timezone:      u.Timezone,
		AccountStatus: string(u.AccountStatus),
		EmailVerified: u.IsEmailVerified,
		MFAEnabled:    u.IsMFAEnabled,
		Roles:         u.RoleNames(),
		Permissions:   u.PermissionCodenames(),
	}
}

func (r *runner) whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:   "whoami",
		Usage:  "Show the signed-in user",
		Before: r.require(guard.RouteDashboard),
		Action: func(c *cli.Context) error {
			st := r.env.Auth.State()
			if st.User == nil {
				var err error
				if st, err = r.env.Auth.RefreshProfile(ctxOf(c)); err != nil {
					return err
				}
			}
			if st.User == nil {
				return domain.ErrNotAuthenticated
			}
			if r.structured(c) {
				return r.render(c, newUserView(st.User))
			}
			fmt.Fprintf(r.out, "%s <%s>\n", st.User.FullName(), st.User.Email)
			return nil
		},
	}
}

func (r *runner) verifyEmailCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify-email",
		Usage:     "Confirm an email address with the token from the message",
		ArgsUsage: "TOKEN",
		Before:    r.require(guard.RouteVerifyEmail),
		Action: func(c *cli.Context) error {
			token := c.Args().First()
			if token == "" {
				return domain.ErrMissingArgument.WithDetails("verification token")
			}
			if _, err := busy(r, c, "Verifying email", func(ctx context.Context) (service.State, error) {
				return r.env.Auth.VerifyEmail(ctx, token)
			}); err != nil {
				return err
			}
			r.say(c, "Email verified.")
			return nil
		},
	}
}
