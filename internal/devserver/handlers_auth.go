package devserver

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/yndnr/calbook-go/internal/core/domain"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	MFACode  string `json:"mfa_code"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		s.handleError(w, r, domain.ErrBadRequest.WithDetails("Email and password are required."))
		return
	}

	acct, err := s.store.authenticate(req.Email, req.Password, s.cfg.MaxFailedLogins, s.cfg.LockoutDuration)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			err = domain.ErrInvalidCredentials.WithDetails("Invalid email or password.")
		}
		s.handleError(w, r, err)
		return
	}
	u, err := s.store.user(acct.user.ID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if !u.AccountStatus.CanSignIn() {
		s.handleError(w, r, statusDenied(u.AccountStatus))
		return
	}

	if device := s.mfaDevice(u.ID); device != "" {
		if req.MFACode == "" {
			s.openChallenge(w, r, u.ID, device)
			return
		}
		if !s.codeMatches(device, u.ID, req.MFACode) {
			s.handleError(w, r, domain.ErrMFAInvalidCode.WithDetails("Invalid verification code."))
			return
		}
		s.otp.delete(device)
	}
	s.completeLogin(w, r, u)
}

// mfaDevice returns the id of the user's confirmed MFA device, or "".
func (s *Server) mfaDevice(userID string) string {
	var id string
	_, _ = s.store.update(userID, func(a *account) error {
		if d := a.activeDevice(); d != nil {
			id = d.id
		}
		return nil
	})
	return id
}

// openChallenge issues a one-time code for device and answers mfa_required.
func (s *Server) openChallenge(w http.ResponseWriter, r *http.Request, userID, device string) {
	code, err := newCode()
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.otp.put(device, userID, code, s.now().Add(s.cfg.OTPTTL))
	s.logger.Debug("mfa challenge opened", "user_id", userID, "device_id", device, "code", code)
	s.writeError(w, http.StatusBadRequest, errorBody{
		Error:    "MFA verification required.",
		Code:     "mfa_required",
		DeviceID: device,
	})
}

type mfaCodeRequest struct {
	DeviceID string `json:"device_id"`
	Code     string `json:"code"`
}

func (s *Server) handleMFAVerify(w http.ResponseWriter, r *http.Request) {
	var req mfaCodeRequest
	if err := decode(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	c, ok := s.otp.get(req.DeviceID)
	if !ok {
		s.handleError(w, r, domain.ErrMFANotPending.WithDetails("No verification is pending for this device."))
		return
	}
	if !s.codeMatches(req.DeviceID, c.userID, req.Code) {
		s.handleError(w, r, domain.ErrMFAInvalidCode.WithDetails("Invalid verification code."))
		return
	}
	s.otp.delete(req.DeviceID)

	u, err := s.store.user(c.userID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.completeLogin(w, r, u)
}

type registerRequest struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	Timezone        string `json:"timezone"`
	TermsAccepted   bool   `json:"terms_accepted"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	if !strings.Contains(req.Email, "@") {
		s.handleError(w, r, domain.ErrBadRequest.WithDetails("Enter a valid email address."))
		return
	}
	if !req.TermsAccepted {
		s.handleError(w, r, domain.ErrBadRequest.WithDetails("You must accept the terms and conditions."))
		return
	}
	if err := checkNewPassword(req.Password, req.PasswordConfirm); err != nil {
		s.handleError(w, r, err)
		return
	}
	tz := req.Timezone
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		s.handleError(w, r, domain.ErrBadRequest.WithDetails("Unknown timezone."))
		return
	}

	u, err := s.store.create(&domain.User{
		Email:         strings.TrimSpace(req.Email),
		Username:      req.Username,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Timezone:      tz,
		IsActive:      true,
		AccountStatus: domain.AccountPendingVerification,
		Roles:         []domain.Role{clientRole},
	}, req.Password)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if err := s.store.startVerification(u.ID, u.Email); err != nil {
		s.handleError(w, r, err)
		return
	}

	resp, err := s.issueSession(u)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	resp.Message = "Registration successful. Please check your email to verify your account."
	s.writeJSON(w, http.StatusCreated, resp)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// handleLogout always succeeds. It revokes what it can identify.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	_ = decode(r, &req)
	if req.RefreshToken != "" {
		_, _ = s.store.consumeRefresh(req.RefreshToken)
	}
	if id, _, err := s.authenticate(r); err == nil {
		s.store.revoke(id.jti, id.expiresAt)
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// handleRefresh rotates the refresh token.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decode(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	if req.RefreshToken == "" {
		s.handleError(w, r, domain.ErrBadRequest.WithDetails("refresh_token is required."))
		return
	}
	userID, err := s.store.consumeRefresh(req.RefreshToken)
	if err != nil {
		s.handleError(w, r, domain.ErrSessionExpired.WithDetails("Token is invalid or expired"))
		return
	}
	u, err := s.store.user(userID)
	if err != nil || !u.AccountStatus.CanSignIn() {
		s.handleError(w, r, domain.ErrSessionExpired.WithDetails("Token is invalid or expired"))
		return
	}
	resp, err := s.issueSession(u)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	resp.User = nil
	s.writeJSON(w, http.StatusOK, resp)
}

// checkNewPassword applies the backend password rules.
func checkNewPassword(password, confirm string) error {
	if len(password) < 8 {
		return domain.ErrPasswordWeak.WithDetails("This password is too short. It must contain at least 8 characters.")
	}
	if strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return domain.ErrPasswordWeak.WithDetails("This password is entirely numeric.")
	}
	if password != confirm {
		return domain.ErrPasswordMismatch.WithDetails("Passwords don't match.")
	}
	return nil
}
