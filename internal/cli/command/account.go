package command

import (
	"context"
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/calbook-go/internal/cli/api"
	"github.com/yndnr/calbook-go/internal/cli/guard"
	"github.com/yndnr/calbook-go/internal/core/domain"
	"github.com/yndnr/calbook-go/internal/core/service"
)

// ============================================================================
// profile
// ============================================================================

func (r *runner) profileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Show or edit your profile",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the profile",
				Before: r.require(guard.RouteProfile),
				Action: r.profileShow,
			},
			{
				Name:  "update",
				Usage: "Change profile fields",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "first-name", Usage: "First name"},
					&cli.StringFlag{Name: "last-name", Usage: "Last name"},
					&cli.StringFlag{Name: "username", Usage: "Username"},
					&cli.StringFlag{Name: "timezone", Usage: "IANA zone, e.g. Europe/Berlin"},
				},
				Before: r.require(guard.RouteProfile + "/edit"),
				Action: r.profileUpdate,
			},
		},
	}
}

func (r *runner) profileShow(c *cli.Context) error {
	st, err := busy(r, c, "Loading profile", func(ctx context.Context) (service.State, error) {
		return r.env.Auth.RefreshProfile(ctx)
	})
	if err != nil {
		return err
	}
	if st.User == nil {
		return domain.ErrNotAuthenticated
	}
	return r.render(c, newUserView(st.User))
}

func (r *runner) profileUpdate(c *cli.Context) error {
	var req api.ProfileUpdate
	set := func(flag string) *string {
		if !c.IsSet(flag) {
			return nil
		}
		v := c.String(flag)
		return &v
	}
	req.FirstName = set("first-name")
	req.LastName = set("last-name")
	req.Username = set("username")
	// The local --timezone shadows the global flag of the same name.
	req.Timezone = set("timezone")

	st, err := busy(r, c, "Saving profile", func(ctx context.Context) (service.State, error) {
		return r.env.Auth.UpdateProfile(ctx, req)
	})
	if err != nil {
		return err
	}
	r.say(c, "Profile updated.")
	if st.User != nil && r.structured(c) {
		return r.render(c, newUserView(st.User))
	}
	return nil
}

// ============================================================================
// password
// ============================================================================

func (r *runner) passwordCommand() *cli.Command {
	return &cli.Command{
		Name:  "password",
		Usage: "Change, replace or reset your password",
		Subcommands: []*cli.Command{
			{
				Name:  "change",
				Usage: "Change the password of the signed-in account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "old", Usage: "Current password (prompted when omitted)"},
					&cli.StringFlag{Name: "new", Usage: "New password (prompted when omitted)"},
				},
				Before: r.require(guard.RoutePasswordChange),
				Action: r.passwordChange,
			},
			{
				Name:  "force",
				Usage: "Replace an expired password during the grace period",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "old", Usage: "Current password, needed when the grace login issued no token"},
					&cli.StringFlag{Name: "new", Usage: "New password (prompted when omitted)"},
				},
				Before: r.require(guard.RouteForcePasswordChange),
				Action: r.passwordForce,
			},
			{
				Name:      "reset",
				Usage:     "Email a password reset link",
				ArgsUsage: "EMAIL",
				Before:    r.require(guard.RouteResetPassword),
				Action:    r.passwordReset,
			},
			{
				Name:      "confirm",
				Usage:     "Set a new password with the emailed reset token",
				ArgsUsage: "TOKEN",
				Flags:     []cli.Flag{&cli.StringFlag{Name: "new", Usage: "New password (prompted when omitted)"}},
				Before:    r.require(guard.RouteResetPassword),
				Action:    r.passwordConfirm,
			},
		},
	}
}

func (r *runner) passwordChange(c *cli.Context) error {
	old, err := r.secret(c, "old", "Current password")
	if err != nil {
		return err
	}
	pw, confirm, err := r.newPassword(c, "new")
	if err != nil {
		return err
	}
	req := api.ChangePasswordRequest{OldPassword: old, NewPassword: pw, NewPasswordConfirm: confirm}
	if _, err := busy(r, c, "Changing password", func(ctx context.Context) (service.State, error) {
		return r.env.Auth.ChangePassword(ctx, req)
	}); err != nil {
		return err
	}
	r.say(c, "Password changed.")
	return nil
}

func (r *runner) passwordForce(c *cli.Context) error {
	var req api.ForcePasswordChangeRequest
	if !r.env.Auth.State().HasSession() {
		old, err := r.secret(c, "old", "Current password")
		if err != nil {
			return err
		}
		req.OldPassword = old
	}
	pw, confirm, err := r.newPassword(c, "new")
	if err != nil {
		return err
	}
	req.NewPassword, req.NewPasswordConfirm = pw, confirm
	st, err := busy(r, c, "Changing password", func(ctx context.Context) (service.State, error) {
		return r.env.Auth.ForcePasswordChange(ctx, req)
	})
	if err != nil {
		return err
	}
	r.say(c, "Password changed.")
	return r.signedIn(c, st)
}

func (r *runner) passwordReset(c *cli.Context) error {
	email := c.Args().First()
	if email == "" {
		var err error
		if email, err = r.line(c, "", "Email"); err != nil {
			return err
		}
	}
	msg, err := busy(r, c, "Requesting reset", func(ctx context.Context) (string, error) {
		return r.env.Auth.RequestPasswordReset(ctx, email)
	})
	if err != nil {
		return err
	}
	if msg == "" {
		msg = "If the address has an account, a reset link is on its way."
	}
	r.say(c, "%s", msg)
	r.say(c, "Then run %s.", r.cmd("password confirm TOKEN"))
	return nil
}

func (r *runner) passwordConfirm(c *cli.Context) error {
	token := c.Args().First()
	if token == "" {
		return domain.ErrMissingArgument.WithDetails("reset token")
	}
	pw, confirm, err := r.newPassword(c, "new")
	if err != nil {
		return err
	}
	req := api.PasswordResetConfirm{Token: token, NewPassword: pw, NewPasswordConfirm: confirm}
	msg, err := busy(r, c, "Resetting password", func(ctx context.Context) (string, error) {
		return r.env.Auth.ConfirmPasswordReset(ctx, req)
	})
	if err != nil {
		return err
	}
	if msg == "" {
		msg = "Password reset."
	}
	r.say(c, "%s", msg)
	r.say(c, "Sign in with %s.", r.cmd("login"))
	return nil
}

// ============================================================================
// mfa
// ============================================================================

func (r *runner) mfaCommand() *cli.Command {
	return &cli.Command{
		Name:  "mfa",
		Usage: "Finish an MFA sign-in or manage second factors",
		Subcommands: []*cli.Command{
			{
				Name:      "verify",
				Usage:     "Enter the one-time code of a pending sign-in",
				ArgsUsage: "CODE",
				Before:    r.require(guard.RouteMFA),
				Action:    r.mfaVerify,
			},
			{
				Name:  "setup",
				Usage: "Enroll a new device",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Value: api.MFADeviceTOTP, Usage: "Device type: totp or sms"},
					&cli.StringFlag{Name: "phone", Usage: "Phone number in E.164 form for sms"},
				},
				Before: r.require(guard.RouteMFASettings + "/setup"),
				Action: r.mfaSetup,
			},
			{
				Name:      "confirm",
				Usage:     "Activate an enrolled device with a code from it",
				ArgsUsage: "CODE",
				Flags:     []cli.Flag{&cli.StringFlag{Name: "device", Usage: "Device id printed by setup"}},
				Before:    r.require(guard.RouteMFASettings + "/setup"),
				Action:    r.mfaConfirm,
			},
			{
				Name:   "disable",
				Usage:  "Turn MFA off",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Current password (prompted when omitted)"}},
				Before: r.require(guard.RouteMFASettings),
				Action: r.mfaDisable,
			},
		},
	}
}

func (r *runner) mfaVerify(c *cli.Context) error {
	code := c.Args().First()
	if code == "" {
		var err error
		if code, err = r.line(c, "", "Verification code"); err != nil {
			return err
		}
	}
	st, err := busy(r, c, "Verifying", func(ctx context.Context) (service.State, error) {
		return r.env.Auth.VerifyMFA(ctx, code)
	})
	if err != nil {
		if domain.IsDomainError(err, domain.ErrMFAInvalidCode.Code) {
			return errors.Join(err, errors.New("try again with "+r.cmd("mfa verify CODE")))
		}
		return err
	}
	return r.signedIn(c, st)
}

// mfaSetupView is the enrollment result.
type mfaSetupView struct {
	DeviceID        string   `json:"device_id"`
	Secret          string   `json:"secret,omitempty"`
	ProvisioningURI string   `json:"provisioning_uri,omitempty" table:"wide"`
	BackupCodes     []string `json:"backup_codes,omitempty"`
	Message         string   `json:"message,omitempty"`
}

func (r *runner) mfaSetup(c *cli.Context) error {
	req := api.MFASetupRequest{DeviceType: c.String("type"), PhoneNumber: c.String("phone")}
	resp, err := busy(r, c, "Enrolling device", func(ctx context.Context) (*api.MFASetupResponse, error) {
		return r.env.Auth.SetupMFA(ctx, req)
	})
	if err != nil {
		return err
	}
	if r.shell != nil {
		r.shell.lastMFA = resp.DeviceID
	}
	if err := r.render(c, mfaSetupView(*resp)); err != nil {
		return err
	}
	r.say(c, "Activate it with %s.", r.cmd("mfa confirm --device "+resp.DeviceID+" CODE"))
	return nil
}

func (r *runner) mfaConfirm(c *cli.Context) error {
	code := c.Args().First()
	if code == "" {
		return domain.ErrMissingArgument.WithDetails("code")
	}
	device := c.String("device")
	if device == "" && r.shell != nil {
		device = r.shell.lastMFA
	}
	if device == "" {
		return domain.ErrMissingArgument.WithDetails("--device (printed by mfa setup)")
	}
	req := api.MFACodeRequest{DeviceID: device, Code: code}
	if _, err := busy(r, c, "Activating device", func(ctx context.Context) (service.State, error) {
		return r.env.Auth.ConfirmMFASetup(ctx, req)
	}); err != nil {
		return err
	}
	if r.shell != nil {
		r.shell.lastMFA = ""
	}
	r.say(c, "MFA enabled.")
	return nil
}

func (r *runner) mfaDisable(c *cli.Context) error {
	password, err := r.secret(c, "password", "Current password")
	if err != nil {
		return err
	}
	req := api.MFADisableRequest{Password: password}
	if _, err := busy(r, c, "Disabling MFA", func(ctx context.Context) (service.State, error) {
		return r.env.Auth.DisableMFA(ctx, req)
	}); err != nil {
		return err
	}
	r.say(c, "MFA disabled.")
	return nil
}
