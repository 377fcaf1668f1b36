package connection

import (
	"context"
	"net/http"

	"github.com/yndnr/calbook-go/internal/cli/notify"
)

type skipAuthRecoveryKey struct{}

// WithoutAuthRecovery marks a request whose 401 means bad credentials
// rather than an expired session (login, refresh). Such a 401 is returned
// as is: no refresh, no sign-out, no navigation.
func WithoutAuthRecovery(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipAuthRecoveryKey{}, true)
}

func skipAuthRecovery(ctx context.Context) bool {
	v, _ := ctx.Value(skipAuthRecoveryKey{}).(bool)
	return v
}

// applyPolicy surfaces the notification for a non-401 failure and returns
// the error unchanged.
func (c *HTTPClient) applyPolicy(apiErr *APIError) *APIError {
	switch {
	case isLoginCondition(apiErr.Code):
		// MFA and password expiry are login outcomes, not failures.

	case apiErr.Status == http.StatusForbidden:
		msg := "You do not have permission to perform this action."
		if apiErr.Message != "" {
			msg = apiErr.Message
		}
		c.notify(notify.TypeWarning, "Access denied", msg)

	case apiErr.Status == http.StatusTooManyRequests:
		msg := "Please try again later."
		if apiErr.RetryAfter > 0 {
			msg = "Please wait " + HumanizeWait(apiErr.RetryAfter) + " before trying again."
		}
		c.notify(notify.TypeWarning, "Too many requests", msg)

	case apiErr.Status >= 500:
		c.notify(notify.TypeError, "Server error", "Something went wrong on the server. Please try again later.")
	}
	return apiErr
}

func isLoginCondition(code string) bool {
	return code == "mfa_required" || code == "password_expired"
}

func (c *HTTPClient) networkFailure(method, path string, err error) *APIError {
	c.notify(notify.TypeError, "Network error", "Unable to reach the server. Check your connection.")
	return &APIError{Method: method, Path: path, Cause: err}
}

// refreshToken runs at most one refresh at a time. If another caller
// already replaced the token that failed, that token is reused.
func (c *HTTPClient) refreshToken(ctx context.Context, failedToken string) bool {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if current, ok := c.tokens.Get(); ok && current != failedToken {
		return true
	}

	c.mu.RLock()
	refresh, hooks := c.refresh, c.hooks
	c.mu.RUnlock()

	refreshToken, ok := c.tokens.RefreshToken()
	if refresh == nil || !ok {
		c.metrics.ObserveRefresh("skipped")
		return false
	}

	result, err := refresh(WithoutAuthRecovery(ctx), refreshToken)
	if err != nil || result.Token == "" {
		c.metrics.ObserveRefresh("failure")
		c.logger.Debug("token refresh failed", "error", err)
		return false
	}

	if err := c.tokens.Set(result.Token); err != nil {
		c.logger.Warn("store refreshed token", "error", err)
	}
	if result.RefreshToken != "" {
		if err := c.tokens.SetRefreshToken(result.RefreshToken); err != nil {
			c.logger.Warn("store rotated refresh token", "error", err)
		}
	}
	c.metrics.ObserveRefresh("success")

	if hooks.OnTokenRefreshed != nil {
		hooks.OnTokenRefreshed(result.Token)
	}
	return true
}

// authLost clears the session and forces navigation to the login route.
func (c *HTTPClient) authLost() {
	if err := c.tokens.Remove(); err != nil {
		c.logger.Warn("clear token after auth loss", "error", err)
	}

	c.mu.RLock()
	hooks, nav := c.hooks, c.navigator
	c.mu.RUnlock()

	if hooks.OnAuthLost != nil {
		hooks.OnAuthLost()
	}
	if nav != nil {
		nav.Navigate(LoginRoute)
	}
}

func (c *HTTPClient) notify(kind notify.Type, title, message string) {
	c.metrics.ObserveNotification(string(kind))
	c.notifier.Notify(notify.Notification{Type: kind, Title: title, Message: message})
}
