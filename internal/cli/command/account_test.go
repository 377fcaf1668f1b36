package command

import (
	"encoding/json"
	"os"
	"testing"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/calbook-go/internal/cli/guard"
	"github.com/yndnr/calbook-go/internal/core/domain"
	"github.com/yndnr/calbook-go/internal/devserver"
)

func TestProfile_ShowAndUpdate(t *testing.T) {
	h := newHarness(t)
	h.login(devserver.SeedOrganizer)

	res := h.mustRun("", "profile", "show")
	assert.Contains(t, res.out, devserver.SeedOrganizer)

	res = h.mustRun("", "profile", "update", "--first-name", "Mary Ann", "--timezone", "Europe/Berlin")
	assert.Contains(t, res.out, "Profile updated.")

	res = h.mustRun("", "-o", "json", "profile", "show")
	var u userView
	require.NoError(t, json.Unmarshal([]byte(res.out), &u))
	assert.Equal(t, "Mary Ann Example", u.Name)
	assert.Equal(t, "Europe/Berlin", u.Timezone)

	res = h.run("", "profile", "update")
	require.Error(t, res.err)
	assert.True(t, domain.IsDomainError(res.err, domain.ErrMissingArgument.Code))

	res = h.run("", "profile", "update", "--timezone", "Mars/Olympus")
	require.Error(t, res.err)
}

func TestProfile_RequiresLogin(t *testing.T) {
	h := newHarness(t)
	res := h.run("", "profile", "show")
	var redirect *RedirectError
	require.ErrorAs(t, res.err, &redirect)
	assert.Equal(t, guard.RouteProfile, redirect.Route)
	assert.Equal(t, guard.ReasonNotSignedIn, redirect.Reason)
}

func TestPassword_Change(t *testing.T) {
	h := newHarness(t)
	h.login(devserver.SeedOrganizer)

	res := h.mustRun("", "password", "change", "--old", devserver.SeedPassword, "--new", "fresh-start-42")
	assert.Contains(t, res.out, "Password changed.")

	// The session continues with the replaced token.
	h.mustRun("", "whoami")

	h.mustRun("", "logout")
	res = h.run("", "login", "-e", devserver.SeedOrganizer, "-p", devserver.SeedPassword)
	require.Error(t, res.err)
	h.mustRun("", "login", "-e", devserver.SeedOrganizer, "-p", "fresh-start-42")
}

func TestPassword_ChangePrompted(t *testing.T) {
	h := newHarness(t)
	h.login(devserver.SeedOrganizer)

	input := devserver.SeedPassword + "\nfresh-start-42\nsomething-else-42\n"
	res := h.run(input, "password", "change")
	require.Error(t, res.err)
	assert.Contains(t, res.errOut, "Confirm new password: ")

	input = devserver.SeedPassword + "\nfresh-start-42\nfresh-start-42\n"
	res = h.mustRun(input, "password", "change")
	assert.Contains(t, res.out, "Password changed.")
}

func TestPassword_ResetAndConfirm(t *testing.T) {
	h := newHarness(t)

	res := h.mustRun("", "password", "reset", devserver.SeedExpired)
	assert.Contains(t, res.out, "password reset link has been sent")
	assert.Contains(t, res.out, "password confirm TOKEN")

	token := h.lastMail(devserver.SeedExpired, devserver.MailPasswordReset)
	res = h.mustRun("", "password", "confirm", token, "--new", "fresh-start-42")
	assert.Contains(t, res.out, "calbook-cli login")

	// The reset also clears the expired status.
	res = h.loginAs(devserver.SeedExpired, "fresh-start-42")
	assert.Contains(t, res.out, "Signed in as Eli Example")

	res = h.run("", "password", "confirm")
	require.Error(t, res.err)
}

func TestPassword_ConfirmBadToken(t *testing.T) {
	h := newHarness(t)
	res := h.run("", "password", "confirm", "not-a-token", "--new", "fresh-start-42")
	require.Error(t, res.err)
}

func TestMFA_SetupConfirmDisable(t *testing.T) {
	h := newHarness(t)
	h.login(devserver.SeedOrganizer)

	res := h.mustRun("", "-o", "json", "mfa", "setup")
	var setup mfaSetupView
	require.NoError(t, json.Unmarshal([]byte(res.out), &setup))
	require.NotEmpty(t, setup.DeviceID)
	assert.NotEmpty(t, setup.Secret)
	assert.Contains(t, res.errOut, "mfa confirm --device "+setup.DeviceID)

	res = h.run("", "mfa", "confirm", "123456")
	require.Error(t, res.err, "the device id is required outside the shell")

	res = h.mustRun("", "mfa", "confirm", "--device", setup.DeviceID, "123456")
	assert.Contains(t, res.out, "MFA enabled.")

	res = h.mustRun("", "-o", "json", "profile", "show")
	var u userView
	require.NoError(t, json.Unmarshal([]byte(res.out), &u))
	assert.True(t, u.MFAEnabled)

	res = h.mustRun("", "mfa", "disable", "-p", devserver.SeedPassword)
	assert.Contains(t, res.out, "MFA disabled.")

	h.mustRun("", "logout")
	res = h.login(devserver.SeedOrganizer)
	assert.Contains(t, res.out, "Signed in as")
}

func TestMFA_VerifyWithoutChallenge(t *testing.T) {
	h := newHarness(t)
	res := h.run("", "mfa", "verify", "123456")
	var redirect *RedirectError
	require.ErrorAs(t, res.err, &redirect)
	assert.Equal(t, guard.RouteMFA, redirect.Route)
}

func TestIntegrations(t *testing.T) {
	h := newHarness(t)
	h.login(devserver.SeedOrganizer)

	res := h.mustRun("", "integrations", "list")
	for _, want := range []string{"google", "outlook", "zoom", "CRM", "token expired"} {
		assert.Contains(t, res.out, want)
	}

	res = h.mustRun("", "-o", "json", "int", "list")
	var in domain.Integrations
	require.NoError(t, json.Unmarshal([]byte(res.out), &in))
	assert.Len(t, in.Calendars, 2)
	assert.Len(t, in.Video, 1)
	assert.Len(t, in.Webhooks, 1)

	res = h.mustRun("", "int", "health")
	assert.Contains(t, res.out, "Overall: "+domain.HealthDegraded)

	res = h.mustRun("", "-o", "json", "int", "health")
	var report domain.HealthReport
	require.NoError(t, json.Unmarshal([]byte(res.out), &report))
	assert.Equal(t, domain.HealthDegraded, report.OverallHealth)
	assert.Equal(t, devserver.SeedOrganizer, report.OrganizerEmail)
}

func TestConfigCommands(t *testing.T) {
	h := newHarness(t)

	res := h.mustRun("", "config", "path")
	assert.Equal(t, h.cfgPath+"\n", res.out)

	res = h.mustRun("", "config", "show")
	assert.Contains(t, res.out, "server: "+h.url)
	assert.Contains(t, res.out, "state_dir: "+h.stateDir)
	assert.Contains(t, res.out, "output: table")

	res = h.mustRun("", "config", "validate")
	assert.Contains(t, res.out, "Configuration is valid ("+h.cfgPath+").")

	require.NoError(t, os.WriteFile(h.cfgPath, []byte("output: table\ntoken_store: sqlite\n"), 0o600))
	res = h.run("", "config", "validate")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "invalid configuration")
}
