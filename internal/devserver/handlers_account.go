package devserver

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/yndnr/calbook-go/internal/core/domain"
	"github.com/yndnr/calbook-go/pkg/token"
)

// resetTTL is the lifetime of password reset tokens.
const resetTTL = time.Hour

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.user(identityFrom(r.Context()).userID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, u)
}

type profileUpdate struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Username  *string `json:"username"`
	Timezone  *string `json:"timezone"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileUpdate
	if err := decode(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil || *req.Timezone == "" {
			s.handleError(w, r, domain.ErrBadRequest.WithDetails("Unknown timezone."))
			return
		}
	}

	u, err := s.store.update(identityFrom(r.Context()).userID, func(a *account) error {
		if req.FirstName != nil {
			a.user.FirstName = *req.FirstName
		}
		if req.LastName != nil {
			a.user.LastName = *req.LastName
		}
		if req.Username != nil {
			a.user.Username = *req.Username
		}
		if req.Timezone != nil {
			a.user.Timezone = *req.Timezone
		}
		return nil
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, u)
}

type changePasswordRequest struct {
	OldPassword        string `json:"old_password"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

// handleChangePassword replaces the password and the caller's session.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decode(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	id := identityFrom(r.Context())
	if err := s.store.checkPassword(id.userID, req.OldPassword); err != nil {
		s.handleError(w, r, withStatus(http.StatusBadRequest,
			domain.ErrInvalidCredentials.WithDetails("Current password is incorrect.")))
		return
	}
	if err := checkNewPassword(req.NewPassword, req.NewPasswordConfirm); err != nil {
		s.handleError(w, r, err)
		return
	}
	s.replacePassword(w, r, id, req.NewPassword, "Password changed successfully.")
}

type forcePasswordChangeRequest struct {
	Email              string `json:"email"`
	OldPassword        string `json:"old_password"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

// forcePasswordChange routes a forced change. A grace token authenticates
// the caller; without one the body carries the email and current password.
func (s *Server) forcePasswordChange() http.Handler {
	withToken := s.requireAuth(true, s.handleForcePasswordChange)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bearer(r) != "" {
			withToken.ServeHTTP(w, r)
			return
		}
		s.handleForcePasswordChangeByCredentials(w, r)
	})
}

func (s *Server) handleForcePasswordChange(w http.ResponseWriter, r *http.Request) {
	var req forcePasswordChangeRequest
	if err := decode(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	if err := checkNewPassword(req.NewPassword, req.NewPasswordConfirm); err != nil {
		s.handleError(w, r, err)
		return
	}
	s.replacePassword(w, r, identityFrom(r.Context()), req.NewPassword, "Password updated. Your account is active again.")
}

// handleForcePasswordChangeByCredentials serves grace logins that were
// answered without a token. Only accounts inside the grace period qualify.
func (s *Server) handleForcePasswordChangeByCredentials(w http.ResponseWriter, r *http.Request) {
	var req forcePasswordChangeRequest
	if err := decode(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	if req.Email == "" || req.OldPassword == "" {
		s.handleError(w, r, domain.ErrNotAuthenticated.WithDetails("Authentication credentials were not provided."))
		return
	}
	acct, err := s.store.authenticate(req.Email, req.OldPassword, s.cfg.MaxFailedLogins, s.cfg.LockoutDuration)
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
	switch {
	case !u.AccountStatus.CanSignIn():
		s.handleError(w, r, statusDenied(u.AccountStatus))
		return
	case u.AccountStatus == domain.AccountPasswordExpired:
		s.writeError(w, http.StatusBadRequest, errorBody{
			Error: "Your password has expired. Reset it to continue.",
			Code:  "password_expired",
		})
		return
	case u.AccountStatus != domain.AccountPasswordExpiredGracePeriod:
		s.handleError(w, r, domain.ErrBadRequest.WithDetails("The password has not expired."))
		return
	}
	if err := checkNewPassword(req.NewPassword, req.NewPasswordConfirm); err != nil {
		s.handleError(w, r, err)
		return
	}
	s.replacePassword(w, r, identity{userID: u.ID}, req.NewPassword, "Password updated. Your account is active again.")
}

// replacePassword stores the password, revokes the current token and
// issues a new session.
func (s *Server) replacePassword(w http.ResponseWriter, r *http.Request, id identity, password, message string) {
	u, err := s.store.setPassword(id.userID, password)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if id.jti != "" {
		s.store.revoke(id.jti, id.expiresAt)
	}
	resp, err := s.issueSession(u)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	resp.Message = message
	s.writeJSON(w, http.StatusOK, resp)
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decode(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	if err := s.store.confirmVerification(req.Token); err != nil {
		s.handleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Email verified successfully."})
}

type emailRequest struct {
	Email string `json:"email"`
}

// handleRequestPasswordReset answers the same way whether or not the
// email exists.
func (s *Server) handleRequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decode(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	if err := s.store.startReset(req.Email, resetTTL); err != nil {
		s.handleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": "If an account with that email exists, a password reset link has been sent.",
	})
}

type resetConfirmRequest struct {
	Token              string `json:"token"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

func (s *Server) handleConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if err := decode(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	if err := checkNewPassword(req.NewPassword, req.NewPasswordConfirm); err != nil {
		s.handleError(w, r, err)
		return
	}
	userID, err := s.store.consumeReset(req.Token)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if _, err := s.store.setPassword(userID, req.NewPassword); err != nil {
		s.handleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset. You can now sign in."})
}

type mfaSetupRequest struct {
	DeviceType  string `json:"device_type"`
	PhoneNumber string `json:"phone_number"`
}

type mfaSetupResponse struct {
	DeviceID        string   `json:"device_id"`
	Secret          string   `json:"secret,omitempty"`
	ProvisioningURI string   `json:"provisioning_uri,omitempty"`
	BackupCodes     []string `json:"backup_codes,omitempty"`
	Message         string   `json:"message"`
}

var phonePattern = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// handleMFASetup enrolls an unconfirmed device and opens a challenge so
// the code can be read from /dev/mfa/otp.
func (s *Server) handleMFASetup(w http.ResponseWriter, r *http.Request) {
	var req mfaSetupRequest
	if err := decode(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	switch req.DeviceType {
	case "totp":
	case "sms":
		if !phonePattern.MatchString(req.PhoneNumber) {
			s.handleError(w, r, domain.ErrBadRequest.WithDetails("Enter a valid phone number in E.164 format."))
			return
		}
	default:
		s.handleError(w, r, domain.ErrBadRequest.WithDetails("device_type must be totp or sms."))
		return
	}

	id := identityFrom(r.Context())
	raw, err := token.Random(9)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	device := &mfaDevice{id: "dev_" + raw, kind: req.DeviceType, phone: req.PhoneNumber}
	resp := mfaSetupResponse{DeviceID: device.id}
	if req.DeviceType == "totp" {
		secret := make([]byte, 20)
		if _, err := rand.Read(secret); err != nil {
			s.handleError(w, r, err)
			return
		}
		device.secret = base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(secret)
		resp.Secret = device.secret
		resp.Message = "Scan the QR code with your authenticator app, then confirm with a code."
	} else {
		resp.Message = fmt.Sprintf("A verification code has been sent to %s.", req.PhoneNumber)
	}
	for range 8 {
		code, err := newCode()
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		resp.BackupCodes = append(resp.BackupCodes, code)
	}

	u, err := s.store.update(id.userID, func(a *account) error {
		a.devices[device.id] = device
		return nil
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if device.secret != "" {
		resp.ProvisioningURI = provisioningURI(u.Email, device.secret)
	}

	code, err := newCode()
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.otp.put(device.id, id.userID, code, s.now().Add(s.cfg.OTPTTL))
	s.writeJSON(w, http.StatusOK, resp)
}

func provisioningURI(email, secret string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", "CalBook")
	return "otpauth://totp/" + url.PathEscape("CalBook:"+email) + "?" + v.Encode()
}

func (s *Server) handleMFASetupVerify(w http.ResponseWriter, r *http.Request) {
	var req mfaCodeRequest
	if err := decode(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	id := identityFrom(r.Context())
	if !s.codeMatches(req.DeviceID, id.userID, req.Code) {
		s.handleError(w, r, domain.ErrMFAInvalidCode.WithDetails("Invalid verification code."))
		return
	}
	_, err := s.store.update(id.userID, func(a *account) error {
		d, ok := a.devices[req.DeviceID]
		if !ok {
			return domain.ErrMFANotPending.WithDetails("Unknown MFA device.")
		}
		d.confirmed = true
		a.user.IsMFAEnabled = true
		return nil
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.otp.delete(req.DeviceID)
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "MFA has been enabled."})
}

type mfaDisableRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleMFADisable(w http.ResponseWriter, r *http.Request) {
	var req mfaDisableRequest
	if err := decode(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	id := identityFrom(r.Context())
	if err := s.store.checkPassword(id.userID, req.Password); err != nil {
		s.handleError(w, r, withStatus(http.StatusBadRequest,
			domain.ErrInvalidCredentials.WithDetails("Password is incorrect.")))
		return
	}
	_, err := s.store.update(id.userID, func(a *account) error {
		clear(a.devices)
		a.user.IsMFAEnabled = false
		return nil
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "MFA has been disabled."})
}
