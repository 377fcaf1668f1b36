package devserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yndnr/calbook-go/internal/core/domain"
	"github.com/yndnr/calbook-go/pkg/token"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	srv   *Server
	ts    *httptest.Server
	clock *fakeClock
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	cfg := DefaultConfig()
	cfg.BcryptCost = bcrypt.MinCost
	cfg.StaticMFACode = ""
	cfg.Now = clock.Now
	if mutate != nil {
		mutate(&cfg)
	}
	srv, err := New(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &harness{srv: srv, ts: ts, clock: clock}
}

type reply struct {
	status int
	header http.Header
	body   map[string]any
	raw    []byte
}

func (h *harness) do(t *testing.T, method, path, token string, body any) reply {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, h.ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	resp, err := h.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw bytes.Buffer
	_, _ = raw.ReadFrom(resp.Body)
	out := reply{status: resp.StatusCode, header: resp.Header, raw: raw.Bytes()}
	_ = json.Unmarshal(raw.Bytes(), &out.body)
	return out
}

func (h *harness) login(t *testing.T, email string) reply {
	t.Helper()
	return h.do(t, http.MethodPost, "/api/v1/users/login/", "", map[string]string{
		"email": email, "password": SeedPassword,
	})
}

func TestLogin_Plain(t *testing.T) {
	h := newHarness(t, nil)

	r := h.login(t, SeedOrganizer)
	require.Equal(t, http.StatusOK, r.status, string(r.raw))
	refresh, _ := r.body["refresh_token"].(string)
	assert.Equal(t, token.PrefixRefresh, token.KindOf(refresh))
	assert.NotEmpty(t, r.header.Get("X-Request-ID"))

	h.srv.store.mu.Lock()
	_, rawKept := h.srv.store.refresh[refresh]
	_, hashKept := h.srv.store.refresh[token.Hash(refresh)]
	h.srv.store.mu.Unlock()
	assert.False(t, rawKept, "refresh token stored in the clear")
	assert.True(t, hashKept)

	claims, err := domain.DecodeClaims(r.body["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, SeedOrganizer, claims.Email)
	assert.Equal(t, []string{"organizer"}, claims.Roles)
	assert.Contains(t, claims.Permissions, "can_manage_integrations")
	assert.Equal(t, h.clock.Now().Add(5*time.Minute).Unix(), claims.ExpiresAt.Unix())
}

func TestLogin_BadCredentials(t *testing.T) {
	h := newHarness(t, nil)

	r := h.do(t, http.MethodPost, "/api/v1/users/login/", "", map[string]string{
		"email": SeedOrganizer, "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, r.status)
	assert.Equal(t, "invalid_credentials", r.body["code"])

	r = h.do(t, http.MethodPost, "/api/v1/users/login/", "", map[string]string{
		"email": "nobody@example.com", "password": "whatever1",
	})
	assert.Equal(t, http.StatusUnauthorized, r.status)

	r = h.do(t, http.MethodPost, "/api/v1/users/login/", "", map[string]string{"email": SeedOrganizer})
	assert.Equal(t, http.StatusBadRequest, r.status)
}

func TestLogin_Lockout(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.MaxFailedLogins = 2
		c.LockoutDuration = 30 * time.Second
	})
	bad := map[string]string{"email": SeedOrganizer, "password": "wrong-password"}

	h.do(t, http.MethodPost, "/api/v1/users/login/", "", bad)
	h.do(t, http.MethodPost, "/api/v1/users/login/", "", bad)

	r := h.login(t, SeedOrganizer)
	assert.Equal(t, http.StatusTooManyRequests, r.status)
	assert.Equal(t, "30", r.header.Get("Retry-After"))
	assert.Equal(t, "throttled", r.body["code"])

	h.clock.Advance(31 * time.Second)
	r = h.login(t, SeedOrganizer)
	assert.Equal(t, http.StatusOK, r.status)
}

func TestLogin_MFAChallenge(t *testing.T) {
	h := newHarness(t, nil)

	r := h.login(t, SeedMFA)
	require.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, "mfa_required", r.body["code"])
	deviceID, _ := r.body["device_id"].(string)
	require.NotEmpty(t, deviceID)
	assert.Nil(t, r.body["token"])

	code, ok := h.srv.OTP(deviceID)
	require.True(t, ok)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	r = h.do(t, http.MethodPost, "/api/v1/users/mfa/verify/", "", map[string]string{"device_id": deviceID, "code": wrong})
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, "invalid_mfa_code", r.body["code"])

	r = h.do(t, http.MethodPost, "/api/v1/users/mfa/verify/", "", map[string]string{"device_id": deviceID, "code": code})
	require.Equal(t, http.StatusOK, r.status, string(r.raw))
	assert.NotEmpty(t, r.body["token"])

	// The challenge is single use.
	r = h.do(t, http.MethodPost, "/api/v1/users/mfa/verify/", "", map[string]string{"device_id": deviceID, "code": code})
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, "mfa_not_pending", r.body["code"])
}

func TestLogin_MFAChallengeExpires(t *testing.T) {
	h := newHarness(t, nil)

	r := h.login(t, SeedMFA)
	deviceID := r.body["device_id"].(string)
	code, _ := h.srv.OTP(deviceID)

	h.clock.Advance(6 * time.Minute)
	r = h.do(t, http.MethodPost, "/api/v1/users/mfa/verify/", "", map[string]string{"device_id": deviceID, "code": code})
	assert.Equal(t, "mfa_not_pending", r.body["code"])
}

func TestLogin_StaticMFACode(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.StaticMFACode = "123456" })

	r := h.do(t, http.MethodPost, "/api/v1/users/login/", "", map[string]string{
		"email": SeedMFA, "password": SeedPassword, "mfa_code": "123456",
	})
	assert.Equal(t, http.StatusOK, r.status)
	assert.NotEmpty(t, r.body["token"])
}

func TestLogin_PasswordExpired(t *testing.T) {
	h := newHarness(t, nil)

	r := h.login(t, SeedExpired)
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, "password_expired", r.body["code"])
	assert.Nil(t, r.body["grace_login_allowed"])
	assert.Nil(t, r.body["token"])
}

func TestLogin_GraceThenForceChange(t *testing.T) {
	h := newHarness(t, nil)

	r := h.login(t, SeedGrace)
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, "password_expired", r.body["code"])
	assert.Equal(t, true, r.body["grace_login_allowed"])
	token := r.body["token"].(string)

	r = h.do(t, http.MethodGet, "/api/v1/users/profile/", token, nil)
	assert.Equal(t, http.StatusOK, r.status)

	r = h.do(t, http.MethodGet, "/api/v1/integrations/calendar/", token, nil)
	assert.Equal(t, http.StatusForbidden, r.status)
	assert.Equal(t, "password_expired", r.body["code"])

	r = h.do(t, http.MethodPost, "/api/v1/users/force-password-change/", token, map[string]string{
		"new_password": "brand-new-pass", "new_password_confirm": "brand-new-pass",
	})
	require.Equal(t, http.StatusOK, r.status, string(r.raw))
	fresh := r.body["token"].(string)
	user := r.body["user"].(map[string]any)
	assert.Equal(t, string(domain.AccountActive), user["account_status"])

	// The grace token is revoked.
	r = h.do(t, http.MethodGet, "/api/v1/users/profile/", token, nil)
	assert.Equal(t, http.StatusUnauthorized, r.status)

	r = h.do(t, http.MethodGet, "/api/v1/integrations/calendar/", fresh, nil)
	assert.Equal(t, http.StatusOK, r.status)
}

func TestLogin_GraceViaErrorThenForceChange(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.GraceViaError = true })

	r := h.login(t, SeedGrace)
	require.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, "password_expired", r.body["code"])
	assert.Equal(t, true, r.body["grace_login_allowed"])
	assert.Nil(t, r.body["token"])

	change := func(email, old string) reply {
		return h.do(t, http.MethodPost, "/api/v1/users/force-password-change/", "", map[string]string{
			"email": email, "old_password": old,
			"new_password": "brand-new-pass", "new_password_confirm": "brand-new-pass",
		})
	}

	r = change("", "")
	assert.Equal(t, http.StatusUnauthorized, r.status)

	r = change(SeedGrace, "wrong-password")
	assert.Equal(t, http.StatusUnauthorized, r.status)

	r = change(SeedOrganizer, SeedPassword)
	assert.Equal(t, http.StatusBadRequest, r.status, "an active account has nothing to change")

	r = change(SeedExpired, SeedPassword)
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, "password_expired", r.body["code"])
	assert.Nil(t, r.body["grace_login_allowed"])

	r = change(SeedGrace, SeedPassword)
	require.Equal(t, http.StatusOK, r.status, string(r.raw))
	fresh := r.body["token"].(string)
	user := r.body["user"].(map[string]any)
	assert.Equal(t, string(domain.AccountActive), user["account_status"])

	r = h.do(t, http.MethodGet, "/api/v1/integrations/calendar/", fresh, nil)
	assert.Equal(t, http.StatusOK, r.status)

	r = h.do(t, http.MethodPost, "/api/v1/users/login/", "", map[string]string{
		"email": SeedGrace, "password": "brand-new-pass",
	})
	assert.Equal(t, http.StatusOK, r.status)
	assert.Nil(t, r.body["code"])
}

func TestLogin_Suspended(t *testing.T) {
	h := newHarness(t, nil)

	r := h.login(t, SeedSuspended)
	assert.Equal(t, http.StatusForbidden, r.status)
	assert.Equal(t, "account_suspended", r.body["code"])
}

func TestRefresh_Rotates(t *testing.T) {
	h := newHarness(t, nil)
	refresh := h.login(t, SeedOrganizer).body["refresh_token"].(string)

	r := h.do(t, http.MethodPost, "/api/v1/users/token/refresh/", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, r.status)
	assert.NotEmpty(t, r.body["token"])
	assert.NotEqual(t, refresh, r.body["refresh_token"])

	r = h.do(t, http.MethodPost, "/api/v1/users/token/refresh/", "", map[string]string{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, r.status)
	assert.Equal(t, "token_not_valid", r.body["code"])
}

func TestAccessTokenExpiry(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.AccessTTL = time.Minute })
	token := h.login(t, SeedOrganizer).body["token"].(string)

	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/api/v1/users/profile/", token, nil).status)

	h.clock.Advance(2 * time.Minute)
	r := h.do(t, http.MethodGet, "/api/v1/users/profile/", token, nil)
	assert.Equal(t, http.StatusUnauthorized, r.status)
	assert.Equal(t, "token_not_valid", r.body["code"])
}

func TestProfile_Unauthenticated(t *testing.T) {
	h := newHarness(t, nil)

	r := h.do(t, http.MethodGet, "/api/v1/users/profile/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, r.status)
	assert.Equal(t, "not_authenticated", r.body["code"])

	r = h.do(t, http.MethodGet, "/api/v1/users/profile/", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, r.status)
}

func TestProfile_Update(t *testing.T) {
	h := newHarness(t, nil)
	token := h.login(t, SeedOrganizer).body["token"].(string)

	r := h.do(t, http.MethodPatch, "/api/v1/users/profile/", token, map[string]string{
		"first_name": "Liv", "timezone": "Europe/Berlin",
	})
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, "Liv", r.body["first_name"])
	assert.Equal(t, "Example", r.body["last_name"])
	assert.Equal(t, "Europe/Berlin", r.body["timezone"])

	r = h.do(t, http.MethodPatch, "/api/v1/users/profile/", token, map[string]string{"timezone": "Mars/Olympus"})
	assert.Equal(t, http.StatusBadRequest, r.status)
}

func TestLogout_RevokesSession(t *testing.T) {
	h := newHarness(t, nil)
	login := h.login(t, SeedOrganizer)
	token := login.body["token"].(string)
	refresh := login.body["refresh_token"].(string)

	r := h.do(t, http.MethodPost, "/api/v1/users/logout/", token, map[string]string{"refresh_token": refresh})
	assert.Equal(t, http.StatusOK, r.status)

	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/api/v1/users/profile/", token, nil).status)
	r = h.do(t, http.MethodPost, "/api/v1/users/token/refresh/", "", map[string]string{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, r.status)

	// Logging out again still succeeds.
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/v1/users/logout/", token, nil).status)
}

func TestRegisterAndVerifyEmail(t *testing.T) {
	h := newHarness(t, nil)
	body := map[string]any{
		"email": "new@example.com", "first_name": "New", "last_name": "User",
		"password": "long-enough-1", "password_confirm": "long-enough-1", "terms_accepted": true,
	}

	r := h.do(t, http.MethodPost, "/api/v1/users/register/", "", body)
	require.Equal(t, http.StatusCreated, r.status, string(r.raw))
	user := r.body["user"].(map[string]any)
	assert.Equal(t, string(domain.AccountPendingVerification), user["account_status"])
	assert.Equal(t, false, user["is_email_verified"])
	token := r.body["token"].(string)

	r = h.do(t, http.MethodPost, "/api/v1/users/register/", "", body)
	assert.Equal(t, http.StatusConflict, r.status)
	assert.Equal(t, "duplicate_email", r.body["code"])

	mail := h.srv.Mail("new@example.com")
	require.Len(t, mail, 1)
	assert.Equal(t, MailVerification, mail[0].Kind)

	r = h.do(t, http.MethodPost, "/api/v1/users/verify-email/", "", map[string]string{"token": "nope"})
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, "invalid_verification", r.body["code"])

	r = h.do(t, http.MethodPost, "/api/v1/users/verify-email/", "", map[string]string{"token": mail[0].Token})
	assert.Equal(t, http.StatusOK, r.status)

	r = h.do(t, http.MethodGet, "/api/v1/users/profile/", token, nil)
	assert.Equal(t, true, r.body["is_email_verified"])
	assert.Equal(t, string(domain.AccountActive), r.body["account_status"])
}

func TestRegister_Validation(t *testing.T) {
	h := newHarness(t, nil)

	cases := []struct {
		name string
		body map[string]any
		code string
	}{
		{"mismatch", map[string]any{"email": "a@example.com", "password": "long-enough-1", "password_confirm": "other-value-1", "terms_accepted": true}, "password_mismatch"},
		{"short", map[string]any{"email": "a@example.com", "password": "short", "password_confirm": "short", "terms_accepted": true}, "password_too_weak"},
		{"numeric", map[string]any{"email": "a@example.com", "password": "1234567890", "password_confirm": "1234567890", "terms_accepted": true}, "password_too_weak"},
		{"terms", map[string]any{"email": "a@example.com", "password": "long-enough-1", "password_confirm": "long-enough-1"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := h.do(t, http.MethodPost, "/api/v1/users/register/", "", tc.body)
			assert.Equal(t, http.StatusBadRequest, r.status)
			if tc.code != "" {
				assert.Equal(t, tc.code, r.body["code"])
			}
		})
	}
}

func TestPasswordReset(t *testing.T) {
	h := newHarness(t, nil)

	r := h.do(t, http.MethodPost, "/api/v1/users/request-password-reset/", "", map[string]string{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusOK, r.status)
	assert.Empty(t, h.srv.Mail("ghost@example.com"))

	r = h.do(t, http.MethodPost, "/api/v1/users/request-password-reset/", "", map[string]string{"email": SeedExpired})
	require.Equal(t, http.StatusOK, r.status)
	mail := h.srv.Mail(SeedExpired)
	require.Len(t, mail, 1)
	assert.Equal(t, MailPasswordReset, mail[0].Kind)
	assert.Equal(t, token.PrefixReset, token.KindOf(mail[0].Token))

	r = h.do(t, http.MethodPost, "/api/v1/users/confirm-password-reset/", "", map[string]string{
		"token": mail[0].Token, "new_password": "fresh-password", "new_password_confirm": "fresh-password",
	})
	require.Equal(t, http.StatusOK, r.status, string(r.raw))

	r = h.do(t, http.MethodPost, "/api/v1/users/login/", "", map[string]string{"email": SeedExpired, "password": "fresh-password"})
	assert.Equal(t, http.StatusOK, r.status)
	assert.Nil(t, r.body["code"])

	r = h.do(t, http.MethodPost, "/api/v1/users/confirm-password-reset/", "", map[string]string{
		"token": mail[0].Token, "new_password": "fresh-password", "new_password_confirm": "fresh-password",
	})
	assert.Equal(t, "invalid_reset_token", r.body["code"])
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t, nil)
	token := h.login(t, SeedOrganizer).body["token"].(string)

	r := h.do(t, http.MethodPost, "/api/v1/users/change-password/", token, map[string]string{
		"old_password": "not-it", "new_password": "another-pass", "new_password_confirm": "another-pass",
	})
	assert.Equal(t, http.StatusBadRequest, r.status)

	r = h.do(t, http.MethodPost, "/api/v1/users/change-password/", token, map[string]string{
		"old_password": SeedPassword, "new_password": "another-pass", "new_password_confirm": "another-pass",
	})
	require.Equal(t, http.StatusOK, r.status)
	assert.NotEqual(t, token, r.body["token"])

	r = h.do(t, http.MethodPost, "/api/v1/users/login/", "", map[string]string{"email": SeedOrganizer, "password": "another-pass"})
	assert.Equal(t, http.StatusOK, r.status)
}

func TestMFAEnrollment(t *testing.T) {
	h := newHarness(t, nil)
	token := h.login(t, SeedOrganizer).body["token"].(string)

	r := h.do(t, http.MethodPost, "/api/v1/users/mfa/setup/", token, map[string]string{"device_type": "sms", "phone_number": "12345"})
	assert.Equal(t, http.StatusBadRequest, r.status)

	r = h.do(t, http.MethodPost, "/api/v1/users/mfa/setup/", token, map[string]string{"device_type": "totp"})
	require.Equal(t, http.StatusOK, r.status, string(r.raw))
	deviceID := r.body["device_id"].(string)
	assert.Contains(t, r.body["provisioning_uri"], "otpauth://totp/")
	assert.Len(t, r.body["backup_codes"], 8)

	code, ok := h.srv.OTP(deviceID)
	require.True(t, ok)
	r = h.do(t, http.MethodPost, "/api/v1/users/mfa/setup/verify/", token, map[string]string{"device_id": deviceID, "code": code})
	require.Equal(t, http.StatusOK, r.status)

	r = h.login(t, SeedOrganizer)
	assert.Equal(t, "mfa_required", r.body["code"])
	assert.Equal(t, deviceID, r.body["device_id"])

	r = h.do(t, http.MethodPost, "/api/v1/users/mfa/disable/", token, map[string]string{"password": SeedPassword})
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, http.StatusOK, h.login(t, SeedOrganizer).status)
}

func TestIntegrations(t *testing.T) {
	h := newHarness(t, nil)
	token := h.login(t, SeedOrganizer).body["token"].(string)

	r := h.do(t, http.MethodGet, "/api/v1/integrations/calendar/", token, nil)
	require.Equal(t, http.StatusOK, r.status)
	var calendars []domain.CalendarIntegration
	require.NoError(t, json.Unmarshal(r.raw, &calendars))
	assert.Len(t, calendars, 2)

	r = h.do(t, http.MethodGet, "/api/v1/integrations/health/", token, nil)
	require.Equal(t, http.StatusOK, r.status)
	var report domain.HealthReport
	require.NoError(t, json.Unmarshal(r.raw, &report))
	assert.Equal(t, domain.HealthDegraded, report.OverallHealth)
	assert.Equal(t, SeedOrganizer, report.OrganizerEmail)
	assert.Len(t, report.Video, 1)
}

func TestThrottle(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.RequestsPerSecond = 0.5
		c.Burst = 1
	})

	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/health/", "", nil).status)
	r := h.do(t, http.MethodGet, "/health/", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, r.status)
	assert.NotEmpty(t, r.header.Get("Retry-After"))
	assert.Equal(t, "throttled", r.body["code"])
}

func TestDevEndpoints(t *testing.T) {
	h := newHarness(t, nil)

	r := h.login(t, SeedMFA)
	deviceID := r.body["device_id"].(string)
	r = h.do(t, http.MethodGet, "/dev/mfa/otp?device_id="+deviceID, "", nil)
	require.Equal(t, http.StatusOK, r.status)
	code, _ := h.srv.OTP(deviceID)
	assert.Equal(t, code, r.body["otp"])

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/dev/mfa/otp?device_id=nope", "", nil).status)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/dev/mail", "", nil).status)
}

func TestRouting(t *testing.T) {
	h := newHarness(t, nil)

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/v1/users/nothing/", "", nil).status)
	assert.Equal(t, "req-42", func() string {
		req, _ := http.NewRequest(http.MethodGet, h.ts.URL+"/health/", nil)
		req.Header.Set("X-Request-ID", "req-42")
		resp, err := h.ts.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.Header.Get("X-Request-ID")
	}())
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.AccessTTL = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.RefreshTTL = time.Second
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Secret = []byte("short")
	assert.Error(t, bad.Validate())
}
