package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/calbook-go/internal/cli/notify"
	"github.com/yndnr/calbook-go/internal/cli/tokenstore"
	"github.com/yndnr/calbook-go/internal/infra/buildinfo"
	"github.com/yndnr/calbook-go/internal/infra/tlsroots"
	"github.com/yndnr/calbook-go/internal/telemetry/logger"
	"github.com/yndnr/calbook-go/internal/telemetry/metric"
)

// LoginRoute is where the client navigates after an unrecoverable 401.
const LoginRoute = "/login"

// Navigator performs forced navigation.
type Navigator interface {
	Navigate(route string)
}

// RefreshResult carries the credentials issued by a token refresh.
type RefreshResult struct {
	Token        string
	RefreshToken string
}

// RefreshFunc exchanges a refresh credential for a new token.
type RefreshFunc func(ctx context.Context, refreshToken string) (RefreshResult, error)

// Hooks are called by the gateway when the session changes underneath
// the caller.
type Hooks struct {
	OnTokenRefreshed func(token string)
	OnAuthLost       func()
}

// Options configures an HTTPClient.
type Options struct {
	Server   string
	Tokens   tokenstore.Store
	Notifier notify.Notifier
	Timezone string
	DeviceID string
	Timeout  time.Duration
	MaxRPS   float64
	Burst    int
	CAFile   string
	Metrics  *metric.ClientMetrics
	Logger   logger.Logger
}

// HTTPClient provides HTTP communication with the backend.
type HTTPClient struct {
	baseURL  string
	client   *http.Client
	tokens   tokenstore.Store
	notifier notify.Notifier
	deviceID string
	metrics  *metric.ClientMetrics
	logger   logger.Logger

	mu        sync.RWMutex
	timezone  string
	limiter   *rate.Limiter
	navigator Navigator
	refresh   RefreshFunc
	hooks     Hooks

	refreshMu sync.Mutex
}

// NewHTTPClient creates the gateway.
func NewHTTPClient(opts Options) (*HTTPClient, error) {
	// Ensure baseURL has http:// prefix
	baseURL := strings.TrimRight(opts.Server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	if opts.Tokens == nil {
		opts.Tokens = tokenstore.NewMemoryStore()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.CAFile != "" {
		tlsCfg, err := tlsroots.ClientConfig(opts.CAFile)
		if err != nil {
			return nil, fmt.Errorf("load ca file: %w", err)
		}
		transport.TLSClientConfig = tlsCfg
	}

	c := &HTTPClient{
		baseURL:  baseURL,
		client:   &http.Client{Timeout: opts.Timeout, Transport: transport},
		tokens:   opts.Tokens,
		notifier: opts.Notifier,
		deviceID: opts.DeviceID,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		timezone: ResolveTimezone(opts.Timezone),
	}
	c.SetRateLimit(opts.MaxRPS, opts.Burst)
	return c, nil
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Tokens returns the token store used for request decoration.
func (c *HTTPClient) Tokens() tokenstore.Store {
	return c.tokens
}

// Metrics returns the client metrics, which may be nil.
func (c *HTTPClient) Metrics() *metric.ClientMetrics {
	return c.metrics
}

// Timezone returns the zone sent in X-Timezone.
func (c *HTTPClient) Timezone() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timezone
}

// SetTimezone re-resolves the X-Timezone value.
func (c *HTTPClient) SetTimezone(configured string) {
	tz := ResolveTimezone(configured)
	c.mu.Lock()
	c.timezone = tz
	c.mu.Unlock()
}

// SetRateLimit throttles outgoing requests. maxRPS <= 0 disables throttling.
func (c *HTTPClient) SetRateLimit(maxRPS float64, burst int) {
	var limiter *rate.Limiter
	if maxRPS > 0 {
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(maxRPS), burst)
	}
	c.mu.Lock()
	c.limiter = limiter
	c.mu.Unlock()
}

// SetNavigator sets the target of forced navigation.
func (c *HTTPClient) SetNavigator(n Navigator) {
	c.mu.Lock()
	c.navigator = n
	c.mu.Unlock()
}

// SetRefreshFunc sets how the client refreshes an expired token.
func (c *HTTPClient) SetRefreshFunc(fn RefreshFunc) {
	c.mu.Lock()
	c.refresh = fn
	c.mu.Unlock()
}

// SetHooks installs session change callbacks.
func (c *HTTPClient) SetHooks(h Hooks) {
	c.mu.Lock()
	c.hooks = h
	c.mu.Unlock()
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Put performs a PUT request with JSON body.
func (c *HTTPClient) Put(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.Do(ctx, http.MethodPut, path, body)
}

// Patch performs a PATCH request with JSON body.
func (c *HTTPClient) Patch(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.Do(ctx, http.MethodPatch, path, body)
}

// Delete performs a DELETE request.
func (c *HTTPClient) Delete(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil)
}

// Do sends a request through the response policy. A nil error means a
// 2xx/3xx response whose body the caller must close. Any other outcome
// is an *APIError.
func (c *HTTPClient) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		payload = data
	}

	resp, sentToken, err := c.send(ctx, method, path, payload)
	if err != nil {
		return nil, c.networkFailure(method, path, err)
	}
	if resp.StatusCode < 400 {
		return resp, nil
	}

	apiErr := readAPIError(resp)
	if apiErr.Status != http.StatusUnauthorized || skipAuthRecovery(ctx) {
		return nil, c.applyPolicy(apiErr)
	}

	// 401: one refresh, one resend.
	if !c.refreshToken(ctx, sentToken) {
		c.authLost()
		return nil, apiErr
	}

	resp, _, err = c.send(ctx, method, path, payload)
	if err != nil {
		return nil, c.networkFailure(method, path, err)
	}
	if resp.StatusCode < 400 {
		return resp, nil
	}

	apiErr = readAPIError(resp)
	if apiErr.Status == http.StatusUnauthorized {
		c.authLost()
		return nil, apiErr
	}
	return nil, c.applyPolicy(apiErr)
}

// send performs one HTTP exchange and reports the token it carried.
func (c *HTTPClient) send(ctx context.Context, method, path string, payload []byte) (*http.Response, string, error) {
	c.mu.RLock()
	limiter, timezone := c.limiter, c.timezone
	c.mu.RUnlock()

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	token, _ := c.tokens.Get()
	requestID := ulid.Make().String()
	c.addHeaders(req, token, timezone, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	c.metrics.ObserveRequest(method, status, elapsed)
	c.logger.Debug("http request",
		"method", method,
		"path", path,
		"status", status,
		"elapsed", elapsed,
		"request_id", requestID,
	)
	return resp, token, err
}

// addHeaders adds authentication and common headers.
func (c *HTTPClient) addHeaders(req *http.Request, token, timezone, requestID string) {
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	req.Header.Set("X-Timezone", timezone)
	req.Header.Set("X-Request-ID", requestID)
	if c.deviceID != "" {
		req.Header.Set("X-Device-ID", c.deviceID)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "calbook-cli/"+buildinfo.Version)
}

// ParseResponse parses a JSON response body into the target struct.
func ParseResponse(resp *http.Response, target any) error {
	if resp.StatusCode >= 400 {
		return readAPIError(resp)
	}
	defer resp.Body.Close()

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil && err != io.EOF {
			return fmt.Errorf("parse response: %w", err)
		}
	}

	return nil
}
