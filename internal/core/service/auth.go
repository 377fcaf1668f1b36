package service

import (
	"context"
	"errors"
	"sync"

	"github.com/yndnr/calbook-go/internal/cli/api"
	"github.com/yndnr/calbook-go/internal/cli/tokenstore"
	"github.com/yndnr/calbook-go/internal/core/domain"
	"github.com/yndnr/calbook-go/internal/telemetry/logger"
)

// Backend is the subset of the backend API the service drives.
// *api.Client implements it.
type Backend interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	VerifyMFA(ctx context.Context, req api.MFACodeRequest) (*api.AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Profile(ctx context.Context) (*domain.User, error)
	UpdateProfile(ctx context.Context, req api.ProfileUpdate) (*domain.User, error)
	ChangePassword(ctx context.Context, req api.ChangePasswordRequest) (*api.AuthResponse, error)
	ForcePasswordChange(ctx context.Context, req api.ForcePasswordChangeRequest) (*api.AuthResponse, error)
	VerifyEmail(ctx context.Context, req api.VerifyEmailRequest) (*api.MessageResponse, error)
	RequestPasswordReset(ctx context.Context, req api.PasswordResetRequest) (*api.MessageResponse, error)
	ConfirmPasswordReset(ctx context.Context, req api.PasswordResetConfirm) (*api.MessageResponse, error)
	SetupMFA(ctx context.Context, req api.MFASetupRequest) (*api.MFASetupResponse, error)
	ConfirmMFASetup(ctx context.Context, req api.MFACodeRequest) (*api.MessageResponse, error)
	DisableMFA(ctx context.Context, req api.MFADisableRequest) (*api.MessageResponse, error)
}

// Listener receives every committed state.
type Listener func(State)

// AuthService is the authentication state machine.
//
// Each operation takes a new generation when it starts and commits its
// result only if that generation is still current. Listeners run outside
// the state lock, in commit order. A listener must not call an operation
// synchronously.
type AuthService struct {
	backend Backend
	tokens  tokenstore.Store
	logger  logger.Logger

	mu    sync.Mutex
	state State
	gen   uint64

	emitMu    sync.Mutex
	listeners map[int]Listener
	nextID    int
}

// AuthServiceConfig holds optional dependencies.
type AuthServiceConfig struct {
	Logger logger.Logger
}

// NewAuthService creates an AuthService in the anonymous state.
func NewAuthService(backend Backend, tokens tokenstore.Store, cfg *AuthServiceConfig) *AuthService {
	if cfg == nil {
		cfg = &AuthServiceConfig{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	return &AuthService{
		backend:   backend,
		tokens:    tokens,
		logger:    cfg.Logger,
		state:     initialState(0),
		listeners: make(map[int]Listener),
	}
}

// State returns the current snapshot.
func (s *AuthService) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn for every future transition and returns a
// function that removes it.
func (s *AuthService) Subscribe(fn Listener) func() {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.emitMu.Lock()
		defer s.emitMu.Unlock()
		delete(s.listeners, id)
	}
}

// ============================================================================
// Transition plumbing
// ============================================================================

// transition applies fn under the state lock and publishes the result.
// fn returns false to discard the change.
func (s *AuthService) transition(fn func(st *State) bool) (State, bool) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if !fn(&s.state) {
		snap := s.state.clone()
		s.mu.Unlock()
		return snap, false
	}
	snap := s.state.clone()
	s.mu.Unlock()

	for _, l := range s.sortedListeners() {
		l(snap)
	}
	return snap, true
}

func (s *AuthService) sortedListeners() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if l, ok := s.listeners[id]; ok {
			out = append(out, l)
		}
	}
	return out
}

// begin starts an operation: a new generation, the error cleared and
// Busy set. Login-like operations also enter PhaseAuthenticating.
func (s *AuthService) begin(authenticating bool) uint64 {
	var gen uint64
	s.transition(func(st *State) bool {
		s.gen++
		gen = s.gen
		st.Generation = gen
		st.Busy = true
		st.Error = ""
		if authenticating {
			st.Phase = PhaseAuthenticating
		}
		return true
	})
	return gen
}

// settle commits an operation's result if gen is still current. Busy is
// cleared with the same commit.
func (s *AuthService) settle(gen uint64, fn func(st *State)) (State, bool) {
	snap, ok := s.transition(func(st *State) bool {
		if st.Generation != gen {
			return false
		}
		fn(st)
		st.Busy = false
		return true
	})
	if !ok {
		s.logger.Debug("stale auth result discarded", "generation", gen, "current", snap.Generation)
	}
	return snap, ok
}

// errStale is returned when an operation's result was superseded.
var errStale = errors.New("operation superseded by a newer one")

// IsSuperseded reports whether err means the result was discarded
// because a newer operation started.
func IsSuperseded(err error) bool {
	return errors.Is(err, errStale)
}

// failWith settles gen as failed. It returns the committed snapshot with
// err, or the current snapshot when gen was superseded.
func (s *AuthService) failWith(gen uint64, err error) (State, error) {
	snap, _ := s.settle(gen, func(st *State) { st.setFailed(ErrorMessage(err)) })
	return snap, err
}

// noteError settles gen with only the error recorded.
func (s *AuthService) noteError(gen uint64, err error) (State, error) {
	snap, _ := s.settle(gen, func(st *State) { st.Error = ErrorMessage(err) })
	return snap, err
}

// ErrorMessage returns the human-readable part of err.
func ErrorMessage(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) {
		if de.Details != "" {
			return de.Message + ": " + de.Details
		}
		return de.Message
	}
	return err.Error()
}

// ============================================================================
// Credential operations
// ============================================================================

// Login signs in. MFA and an expired password are outcomes, not errors:
// the returned state is mfa_pending or password_expired with a nil error.
func (s *AuthService) Login(ctx context.Context, req api.LoginRequest) (State, error) {
	// 1. Validate before any transition
	if err := req.Validate(); err != nil {
		return s.State(), err
	}

	// 2. Call backend
	gen := s.begin(true)
	resp, err := s.backend.Login(ctx, req)
	if err != nil {
		return s.settleLoginError(gen, req.Email, err)
	}

	// 3. Commit
	return s.settleAuth(gen, resp)
}

// VerifyMFA completes a login stopped at the MFA challenge. A wrong code
// keeps the challenge open.
func (s *AuthService) VerifyMFA(ctx context.Context, code string) (State, error) {
	current := s.State()
	if !current.MFARequired {
		return current, domain.ErrMFANotPending
	}
	req := api.MFACodeRequest{DeviceID: current.MFADeviceID, Code: code}
	if err := req.Validate(); err != nil {
		return current, err
	}

	gen := s.begin(true)
	resp, err := s.backend.VerifyMFA(ctx, req)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrMFAInvalidCode.Code) {
			snap, ok := s.settle(gen, func(st *State) {
				st.setMFAPending(req.DeviceID, current.PendingEmail)
				st.Error = ErrorMessage(err)
			})
			if !ok {
				return snap, errStale
			}
			return snap, err
		}
		return s.settleLoginError(gen, current.PendingEmail, err)
	}
	return s.settleAuth(gen, resp)
}

// Register creates an account and signs it in.
func (s *AuthService) Register(ctx context.Context, req api.RegisterRequest) (State, error) {
	if err := req.Validate(); err != nil {
		return s.State(), err
	}

	gen := s.begin(true)
	resp, err := s.backend.Register(ctx, req)
	if err != nil {
		return s.failWith(gen, err)
	}
	return s.settleAuth(gen, resp)
}

// settleLoginError maps a failed credential exchange for email to its
// outcome. An expired password reported as an error leaves no token; the
// email is kept so a grace change can sign in with the old password.
func (s *AuthService) settleLoginError(gen uint64, email string, err error) (State, error) {
	apiErr, _ := api.APIErrorOf(err)

	switch {
	case domain.IsDomainError(err, domain.ErrMFARequired.Code):
		deviceID := ""
		if apiErr != nil {
			deviceID = apiErr.DeviceID
		}
		snap, ok := s.settle(gen, func(st *State) { st.setMFAPending(deviceID, email) })
		if !ok {
			return snap, errStale
		}
		return snap, nil

	case domain.IsDomainError(err, domain.ErrPasswordExpired.Code):
		grace := apiErr != nil && apiErr.GraceLoginAllowed
		snap, ok := s.settle(gen, func(st *State) {
			st.setPasswordExpired("", nil, grace)
			st.PendingEmail = email
		})
		if !ok {
			return snap, errStale
		}
		return snap, nil
	}

	return s.failWith(gen, err)
}

// settleAuth commits a successful credential exchange and persists the
// session with the same commit.
func (s *AuthService) settleAuth(gen uint64, resp *api.AuthResponse) (State, error) {
	var persistErr error
	snap, ok := s.settle(gen, func(st *State) {
		persistErr = s.persist(resp)
		if resp.PasswordExpired() {
			grace := resp.GraceLoginAllowed ||
				(resp.User != nil && resp.User.AccountStatus == domain.AccountPasswordExpiredGracePeriod)
			st.setPasswordExpired(resp.Token, resp.User.Clone(), grace)
			return
		}
		st.setAuthenticated(resp.Token, resp.User.Clone())
	})
	if !ok {
		return snap, errStale
	}
	if persistErr != nil {
		s.logger.Warn("persist session", "error", persistErr)
	}
	return snap, nil
}

// ChangePassword changes the password of the signed-in user. A failure
// only records the error: the session is still valid.
func (s *AuthService) ChangePassword(ctx context.Context, req api.ChangePasswordRequest) (State, error) {
	if err := req.Validate(); err != nil {
		return s.State(), err
	}

	gen := s.begin(false)
	resp, err := s.backend.ChangePassword(ctx, req)
	if err != nil {
		return s.noteError(gen, err)
	}
	return s.settleReplacedToken(gen, resp)
}

// ForcePasswordChange replaces an expired password during the grace
// period. It uses the grace token when one is held. Without one, the
// email and current password identify the account; the email defaults to
// the one of the expired login.
func (s *AuthService) ForcePasswordChange(ctx context.Context, req api.ForcePasswordChangeRequest) (State, error) {
	current := s.State()
	switch {
	case current.HasSession():
		req.Email, req.OldPassword = "", ""
	case current.PasswordExpired && current.GraceLoginAllowed:
		if req.Email == "" {
			req.Email = current.PendingEmail
		}
		if req.Email == "" || req.OldPassword == "" {
			return current, domain.ErrMissingArgument.WithDetails("email and current password")
		}
	default:
		return current, domain.ErrNotAuthenticated.WithDetails("no grace session; reset the password instead")
	}
	if err := req.Validate(); err != nil {
		return current, err
	}

	gen := s.begin(false)
	resp, err := s.backend.ForcePasswordChange(ctx, req)
	if err != nil {
		return s.noteError(gen, err)
	}
	return s.settleReplacedToken(gen, resp)
}

// settleReplacedToken commits a new token after a password change. The
// password_expired and grace flags are cleared.
func (s *AuthService) settleReplacedToken(gen uint64, resp *api.AuthResponse) (State, error) {
	var persistErr error
	snap, ok := s.settle(gen, func(st *State) {
		user := st.User
		if resp.User != nil {
			user = resp.User.Clone()
		}
		token := resp.Token
		if token == "" {
			token = st.Token
		}
		if token == "" {
			// Changed without a session: the user signs in afresh.
			*st = initialState(st.Generation)
			return
		}
		persistErr = s.persist(&api.AuthResponse{Token: token, RefreshToken: resp.RefreshToken, User: user})
		st.setAuthenticated(token, user)
	})
	if !ok {
		return snap, errStale
	}
	if persistErr != nil {
		s.logger.Warn("persist session", "error", persistErr)
	}
	return snap, nil
}

// VerifyEmail confirms the email address. The current user, if any, is
// marked verified and active.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (State, error) {
	req := api.VerifyEmailRequest{Token: token}
	if err := req.Validate(); err != nil {
		return s.State(), err
	}

	gen := s.begin(false)
	if _, err := s.backend.VerifyEmail(ctx, req); err != nil {
		return s.noteError(gen, err)
	}
	snap, ok := s.settle(gen, func(st *State) {
		if st.User != nil {
			st.User.MarkEmailVerified()
			s.cacheUser(st.User)
		}
	})
	if !ok {
		return snap, errStale
	}
	return snap, nil
}

// RequestPasswordReset asks for a reset email.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	req := api.PasswordResetRequest{Email: email}
	if err := req.Validate(); err != nil {
		return "", err
	}

	gen := s.begin(false)
	resp, err := s.backend.RequestPasswordReset(ctx, req)
	if err != nil {
		_, err = s.noteError(gen, err)
		return "", err
	}
	s.settle(gen, func(*State) {})
	return resp.Message, nil
}

// ConfirmPasswordReset sets a new password with the emailed token.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, req api.PasswordResetConfirm) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	gen := s.begin(false)
	resp, err := s.backend.ConfirmPasswordReset(ctx, req)
	if err != nil {
		_, err = s.noteError(gen, err)
		return "", err
	}
	s.settle(gen, func(*State) {})
	return resp.Message, nil
}

// ============================================================================
// Account operations
// ============================================================================

// UpdateProfile changes profile fields.
func (s *AuthService) UpdateProfile(ctx context.Context, req api.ProfileUpdate) (State, error) {
	if err := req.Validate(); err != nil {
		return s.State(), err
	}

	gen := s.begin(false)
	user, err := s.backend.UpdateProfile(ctx, req)
	if err != nil {
		return s.noteError(gen, err)
	}
	snap, ok := s.settle(gen, func(st *State) {
		st.User = user.Clone()
		s.cacheUser(user)
	})
	if !ok {
		return snap, errStale
	}
	return snap, nil
}

// SetupMFA enrolls a device. It stays inactive until ConfirmMFASetup.
func (s *AuthService) SetupMFA(ctx context.Context, req api.MFASetupRequest) (*api.MFASetupResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	gen := s.begin(false)
	resp, err := s.backend.SetupMFA(ctx, req)
	if err != nil {
		_, err = s.noteError(gen, err)
		return nil, err
	}
	s.settle(gen, func(*State) {})
	return resp, nil
}

// ConfirmMFASetup activates an enrolled device.
func (s *AuthService) ConfirmMFASetup(ctx context.Context, req api.MFACodeRequest) (State, error) {
	return s.toggleMFA(ctx, req, true, func(ctx context.Context) error {
		_, err := s.backend.ConfirmMFASetup(ctx, req)
		return err
	})
}

// DisableMFA turns MFA off.
func (s *AuthService) DisableMFA(ctx context.Context, req api.MFADisableRequest) (State, error) {
	return s.toggleMFA(ctx, req, false, func(ctx context.Context) error {
		_, err := s.backend.DisableMFA(ctx, req)
		return err
	})
}

func (s *AuthService) toggleMFA(ctx context.Context, req api.Validator, enabled bool, call func(context.Context) error) (State, error) {
	if err := req.Validate(); err != nil {
		return s.State(), err
	}

	gen := s.begin(false)
	if err := call(ctx); err != nil {
		return s.noteError(gen, err)
	}
	snap, ok := s.settle(gen, func(st *State) {
		if st.User != nil {
			st.User.IsMFAEnabled = enabled
			s.cacheUser(st.User)
		}
	})
	if !ok {
		return snap, errStale
	}
	return snap, nil
}
