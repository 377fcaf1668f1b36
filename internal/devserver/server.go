package devserver

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

// Server is the development backend.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
	store   *store
	otp     *otpStore
	signer  *signer
	handler http.Handler

	mu         sync.Mutex
	httpServer *http.Server
}

// New creates a Server. Seeded accounts are added when cfg.Seed is set.
func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if len(cfg.Secret) == 0 {
		cfg.Secret = make([]byte, 32)
		if _, err := rand.Read(cfg.Secret); err != nil {
			return nil, fmt.Errorf("generate secret: %w", err)
		}
	}

	s := &Server{
		cfg:    cfg,
		logger: cfg.Logger,
		now:    cfg.Now,
		store:  newStore(cfg.BcryptCost, cfg.Now),
		otp:    newOTPStore(cfg.Now),
		signer: &signer{secret: cfg.Secret, ttl: cfg.AccessTTL, now: cfg.Now},
	}
	if cfg.Seed {
		if err := s.seed(); err != nil {
			return nil, err
		}
	}

	middlewares := []Middleware{RequestID(), Contextual(s.logger), Recover(s.logger), Audit(s.logger)}
	if cfg.RequestsPerSecond > 0 {
		middlewares = append(middlewares, Throttle(cfg.RequestsPerSecond, cfg.Burst))
	}
	s.handler = Chain(s.routes(), middlewares...)
	return s, nil
}

// routes registers every endpoint. The backend requires trailing slashes.
func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, errorBody{Error: "Not found."})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, errorBody{Error: fmt.Sprintf("Method %q not allowed.", req.Method)})
	})

	r.HandleFunc("/health/", s.handleHealth).Methods(http.MethodGet)

	users := r.PathPrefix("/api/v1/users").Subrouter()
	users.HandleFunc("/login/", s.handleLogin).Methods(http.MethodPost)
	users.HandleFunc("/register/", s.handleRegister).Methods(http.MethodPost)
	users.HandleFunc("/logout/", s.handleLogout).Methods(http.MethodPost)
	users.HandleFunc("/token/refresh/", s.handleRefresh).Methods(http.MethodPost)
	users.HandleFunc("/verify-email/", s.handleVerifyEmail).Methods(http.MethodPost)
	users.HandleFunc("/request-password-reset/", s.handleRequestPasswordReset).Methods(http.MethodPost)
	users.HandleFunc("/confirm-password-reset/", s.handleConfirmPasswordReset).Methods(http.MethodPost)
	users.HandleFunc("/mfa/verify/", s.handleMFAVerify).Methods(http.MethodPost)

	users.Handle("/profile/", s.requireAuth(true, s.handleProfile)).Methods(http.MethodGet)
	users.Handle("/profile/", s.requireAuth(false, s.handleUpdateProfile)).Methods(http.MethodPatch, http.MethodPut)
	users.Handle("/change-password/", s.requireAuth(false, s.handleChangePassword)).Methods(http.MethodPost)
	users.Handle("/force-password-change/", s.forcePasswordChange()).Methods(http.MethodPost)
	users.Handle("/mfa/setup/", s.requireAuth(false, s.handleMFASetup)).Methods(http.MethodPost)
	users.Handle("/mfa/setup/verify/", s.requireAuth(false, s.handleMFASetupVerify)).Methods(http.MethodPost)
	users.Handle("/mfa/disable/", s.requireAuth(false, s.handleMFADisable)).Methods(http.MethodPost)

	integrations := r.PathPrefix("/api/v1/integrations").Subrouter()
	integrations.Handle("/calendar/", s.requireAuth(false, s.handleCalendarIntegrations)).Methods(http.MethodGet)
	integrations.Handle("/video/", s.requireAuth(false, s.handleVideoIntegrations)).Methods(http.MethodGet)
	integrations.Handle("/webhooks/", s.requireAuth(false, s.handleWebhookIntegrations)).Methods(http.MethodGet)
	integrations.Handle("/health/", s.requireAuth(false, s.handleIntegrationHealth)).Methods(http.MethodGet)

	dev := r.PathPrefix("/dev").Subrouter()
	dev.HandleFunc("/mfa/otp", s.handleDevOTP).Methods(http.MethodGet)
	dev.HandleFunc("/mail", s.handleDevMail).Methods(http.MethodGet)
	return r
}

// Handler returns the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// OTP returns the open one-time code for an MFA device.
func (s *Server) OTP(deviceID string) (string, bool) {
	c, ok := s.otp.get(deviceID)
	return c.code, ok
}

// Mail returns the messages sent to email.
func (s *Server) Mail(email string) []Mail {
	return s.store.mail(email)
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Info("devserver listening", "addr", l.Addr().String())
	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on addr and serves until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(l)
}

// Shutdown gracefully stops a server started with Serve.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
