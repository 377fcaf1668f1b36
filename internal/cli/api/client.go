package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/yndnr/calbook-go/internal/cli/connection"
	"github.com/yndnr/calbook-go/internal/core/domain"
)

// Validator is implemented by every request type.
type Validator interface {
	Validate() error
}

// Client calls the backend through the gateway.
type Client struct {
	http *connection.HTTPClient
}

// New creates a Client on top of the gateway.
func New(h *connection.HTTPClient) *Client {
	return &Client{http: h}
}

// HTTP returns the underlying gateway.
func (c *Client) HTTP() *connection.HTTPClient {
	return c.http
}

// Login exchanges credentials for a session. A 401 here means bad
// credentials, not an expired session.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out AuthResponse
	err := c.call(connection.WithoutAuthRecovery(ctx), http.MethodPost, PathLogin, req, &out, domain.ErrInvalidCredentials)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out AuthResponse
	if err := c.call(connection.WithoutAuthRecovery(ctx), http.MethodPost, PathRegister, req, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout invalidates the session on the backend.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	var body any
	if refreshToken != "" {
		body = RefreshRequest{RefreshToken: refreshToken}
	}
	return c.call(connection.WithoutAuthRecovery(ctx), http.MethodPost, PathLogout, body, nil, nil)
}

// Refresh exchanges a refresh token. Its signature matches
// connection.RefreshFunc.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (connection.RefreshResult, error) {
	var out AuthResponse
	err := c.call(connection.WithoutAuthRecovery(ctx), http.MethodPost, PathRefresh,
		RefreshRequest{RefreshToken: refreshToken}, &out, domain.ErrSessionExpired)
	if err != nil {
		return connection.RefreshResult{}, err
	}
	return connection.RefreshResult{Token: out.Token, RefreshToken: out.RefreshToken}, nil
}

// Profile fetches the current user.
func (c *Client) Profile(ctx context.Context) (*domain.User, error) {
	var out domain.User
	if err := c.call(ctx, http.MethodGet, PathProfile, nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile changes profile fields and returns the updated user.
func (c *Client) UpdateProfile(ctx context.Context, req ProfileUpdate) (*domain.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out domain.User
	if err := c.call(ctx, http.MethodPatch, PathProfile, req, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangePassword changes the password. The backend issues a new token.
func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) (*AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out AuthResponse
	if err := c.call(ctx, http.MethodPost, PathChangePassword, req, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForcePasswordChange replaces an expired password. With an email set the
// call authenticates by credentials, so a 401 means a wrong password.
func (c *Client) ForcePasswordChange(ctx context.Context, req ForcePasswordChangeRequest) (*AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var unauthorized *domain.DomainError
	if req.Email != "" {
		ctx = connection.WithoutAuthRecovery(ctx)
		unauthorized = domain.ErrInvalidCredentials
	}
	var out AuthResponse
	if err := c.call(ctx, http.MethodPost, PathForcePasswordChange, req, &out, unauthorized); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyEmail confirms an email address with the emailed token.
func (c *Client) VerifyEmail(ctx context.Context, req VerifyEmailRequest) (*MessageResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out MessageResponse
	if err := c.call(connection.WithoutAuthRecovery(ctx), http.MethodPost, PathVerifyEmail, req, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestPasswordReset asks the backend to email a reset link.
func (c *Client) RequestPasswordReset(ctx context.Context, req PasswordResetRequest) (*MessageResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out MessageResponse
	if err := c.call(connection.WithoutAuthRecovery(ctx), http.MethodPost, PathRequestPasswordReset, req, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmPasswordReset sets a new password with a reset token.
func (c *Client) ConfirmPasswordReset(ctx context.Context, req PasswordResetConfirm) (*MessageResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out MessageResponse
	if err := c.call(connection.WithoutAuthRecovery(ctx), http.MethodPost, PathConfirmPasswordReset, req, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetupMFA enrolls a second factor. It stays inactive until confirmed.
func (c *Client) SetupMFA(ctx context.Context, req MFASetupRequest) (*MFASetupResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out MFASetupResponse
	if err := c.call(ctx, http.MethodPost, PathMFASetup, req, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmMFASetup activates an enrolled device with a code from it.
func (c *Client) ConfirmMFASetup(ctx context.Context, req MFACodeRequest) (*MessageResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out MessageResponse
	if err := c.call(ctx, http.MethodPost, PathMFASetupVerify, req, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyMFA completes a login that stopped at the MFA challenge.
func (c *Client) VerifyMFA(ctx context.Context, req MFACodeRequest) (*AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out AuthResponse
	err := c.call(connection.WithoutAuthRecovery(ctx), http.MethodPost, PathMFAVerify, req, &out, domain.ErrMFAInvalidCode)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DisableMFA turns MFA off.
func (c *Client) DisableMFA(ctx context.Context, req MFADisableRequest) (*MessageResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out MessageResponse
	if err := c.call(ctx, http.MethodPost, PathMFADisable, req, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Integrations lists calendar, video and webhook integrations.
func (c *Client) Integrations(ctx context.Context) (*domain.Integrations, error) {
	var out domain.Integrations
	if err := c.call(ctx, http.MethodGet, PathCalendarIntegrations, nil, &out.Calendars, nil); err != nil {
		return nil, err
	}
	if err := c.call(ctx, http.MethodGet, PathVideoIntegrations, nil, &out.Video, nil); err != nil {
		return nil, err
	}
	if err := c.call(ctx, http.MethodGet, PathWebhookIntegrations, nil, &out.Webhooks, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// IntegrationHealth fetches the integration health report.
func (c *Client) IntegrationHealth(ctx context.Context) (*domain.HealthReport, error) {
	var out domain.HealthReport
	if err := c.call(ctx, http.MethodGet, PathIntegrationHealth, nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// call performs one request. on401 replaces the generic mapping of a 401
// for endpoints where it means something specific.
func (c *Client) call(ctx context.Context, method, path string, body, out any, on401 *domain.DomainError) error {
	resp, err := c.http.Do(ctx, method, path, body)
	if err != nil {
		return translate(err, on401)
	}
	if err := connection.ParseResponse(resp, out); err != nil {
		return translate(err, on401)
	}
	return nil
}

// translate turns a gateway failure into a domain error that wraps it.
func translate(err error, on401 *domain.DomainError) error {
	var apiErr *connection.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	de := domain.FromBackendCode(apiErr.Code)
	if de == nil {
		de = byStatus(apiErr, on401)
	}
	return de.WithMessage(apiErr.Message).WithCause(apiErr)
}

func byStatus(apiErr *connection.APIError, on401 *domain.DomainError) *domain.DomainError {
	switch {
	case apiErr.IsNetwork():
		return domain.ErrNetwork
	case apiErr.Status == http.StatusUnauthorized:
		if on401 != nil {
			return on401
		}
		return domain.ErrSessionExpired
	case apiErr.Status == http.StatusForbidden:
		return domain.ErrPermissionDenied
	case apiErr.Status == http.StatusNotFound:
		return domain.ErrUserNotFound
	case apiErr.Status == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case apiErr.Status == http.StatusServiceUnavailable:
		return domain.ErrServiceUnavailable
	case apiErr.Status >= 500:
		return domain.ErrInternalServer
	default:
		return domain.ErrBadRequest
	}
}

// APIErrorOf returns the gateway error behind err, if any.
func APIErrorOf(err error) (*connection.APIError, bool) {
	var apiErr *connection.APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
