package api

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/yndnr/calbook-go/internal/core/domain"
)

// MinPasswordLength is the shortest password accepted client-side.
const MinPasswordLength = 8

// AuthResponse is the backend's success payload for credential exchanges.
// A grace login succeeds with a token but carries Code password_expired.
type AuthResponse struct {
	Token             string       `json:"token"`
	RefreshToken      string       `json:"refresh_token,omitempty"`
	User              *domain.User `json:"user,omitempty"`
	Message           string       `json:"message,omitempty"`
	Code              string       `json:"code,omitempty"`
	GraceLoginAllowed bool         `json:"grace_login_allowed,omitempty"`
}

// PasswordExpired reports whether a successful login still requires a
// password change.
func (r *AuthResponse) PasswordExpired() bool {
	if r.Code == "password_expired" {
		return true
	}
	return r.User != nil && r.User.AccountStatus.PasswordExpired()
}

// MessageResponse is a bare acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginRequest signs in with email and password, optionally with a
// one-time code when the account has MFA.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	MFACode  string `json:"mfa_code,omitempty"`
}

func (r LoginRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.Password == "" {
		return domain.ErrMissingArgument.WithDetails("password")
	}
	if r.MFACode != "" {
		return validateCode(r.MFACode)
	}
	return nil
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	Email           string `json:"email"`
	Username        string `json:"username,omitempty"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	Timezone        string `json:"timezone,omitempty"`
	TermsAccepted   bool   `json:"terms_accepted"`
}

func (r RegisterRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if strings.TrimSpace(r.FirstName) == "" {
		return domain.ErrMissingArgument.WithDetails("first_name")
	}
	if strings.TrimSpace(r.LastName) == "" {
		return domain.ErrMissingArgument.WithDetails("last_name")
	}
	if err := validateNewPassword(r.Password, r.PasswordConfirm); err != nil {
		return err
	}
	if r.Timezone != "" {
		if err := validateTimezone(r.Timezone); err != nil {
			return err
		}
	}
	if !r.TermsAccepted {
		return domain.ErrInvalidArgument.WithDetails("terms must be accepted")
	}
	return nil
}

// ProfileUpdate changes profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Username  *string `json:"username,omitempty"`
	Timezone  *string `json:"timezone,omitempty"`
}

func (r ProfileUpdate) Validate() error {
	if r.FirstName == nil && r.LastName == nil && r.Username == nil && r.Timezone == nil {
		return domain.ErrMissingArgument.WithDetails("nothing to update")
	}
	if r.Timezone != nil {
		return validateTimezone(*r.Timezone)
	}
	return nil
}

// ChangePasswordRequest changes the password of a signed-in user.
type ChangePasswordRequest struct {
	OldPassword        string `json:"old_password"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

func (r ChangePasswordRequest) Validate() error {
	if r.OldPassword == "" {
		return domain.ErrMissingArgument.WithDetails("old_password")
	}
	if r.OldPassword == r.NewPassword {
		return domain.ErrPasswordWeak.WithDetails("new password must differ from the current one")
	}
	return validateNewPassword(r.NewPassword, r.NewPasswordConfirm)
}

// ForcePasswordChangeRequest replaces an expired password. Email and
// OldPassword identify the account when no grace token is sent.
type ForcePasswordChangeRequest struct {
	Email              string `json:"email,omitempty"`
	OldPassword        string `json:"old_password,omitempty"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

func (r ForcePasswordChangeRequest) Validate() error {
	if r.Email != "" {
		if err := validateEmail(r.Email); err != nil {
			return err
		}
		if r.OldPassword == "" {
			return domain.ErrMissingArgument.WithDetails("current password")
		}
	}
	return validateNewPassword(r.NewPassword, r.NewPasswordConfirm)
}

// VerifyEmailRequest confirms an email address.
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

func (r VerifyEmailRequest) Validate() error {
	if strings.TrimSpace(r.Token) == "" {
		return domain.ErrMissingArgument.WithDetails("token")
	}
	return nil
}

// PasswordResetRequest asks for a reset email.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

func (r PasswordResetRequest) Validate() error {
	return validateEmail(r.Email)
}

// PasswordResetConfirm sets a new password with a reset token.
type PasswordResetConfirm struct {
	Token              string `json:"token"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

func (r PasswordResetConfirm) Validate() error {
	if strings.TrimSpace(r.Token) == "" {
		return domain.ErrMissingArgument.WithDetails("token")
	}
	return validateNewPassword(r.NewPassword, r.NewPasswordConfirm)
}

// MFA device types.
const (
	MFADeviceTOTP = "totp"
	MFADeviceSMS  = "sms"
)

// MFASetupRequest enrolls a second factor.
type MFASetupRequest struct {
	DeviceType  string `json:"device_type"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

var phonePattern = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

func (r MFASetupRequest) Validate() error {
	switch r.DeviceType {
	case MFADeviceTOTP:
		return nil
	case MFADeviceSMS:
		if !phonePattern.MatchString(r.PhoneNumber) {
			return domain.ErrInvalidArgument.WithDetails("phone number must be in E.164 form, e.g. +14155550100")
		}
		return nil
	default:
		return domain.ErrInvalidArgument.WithDetails("device type must be totp or sms")
	}
}

// MFASetupResponse is returned by MFA enrollment.
type MFASetupResponse struct {
	DeviceID        string   `json:"device_id"`
	Secret          string   `json:"secret,omitempty"`
	ProvisioningURI string   `json:"provisioning_uri,omitempty"`
	BackupCodes     []string `json:"backup_codes,omitempty"`
	Message         string   `json:"message,omitempty"`
}

// MFACodeRequest carries a one-time code, either to finish a pending login
// or to confirm an enrollment.
type MFACodeRequest struct {
	DeviceID string `json:"device_id,omitempty"`
	Code     string `json:"code"`
}

func (r MFACodeRequest) Validate() error {
	return validateCode(r.Code)
}

// MFADisableRequest turns MFA off; it requires the current password.
type MFADisableRequest struct {
	Password string `json:"password"`
}

func (r MFADisableRequest) Validate() error {
	if r.Password == "" {
		return domain.ErrMissingArgument.WithDetails("password")
	}
	return nil
}

// RefreshRequest exchanges a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

var codePattern = regexp.MustCompile(`^[0-9]{6,8}$`)

func validateCode(code string) error {
	if !codePattern.MatchString(code) {
		return domain.ErrInvalidArgument.WithDetails("code must be 6 to 8 digits")
	}
	return nil
}

func validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return domain.ErrMissingArgument.WithDetails("email")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return domain.ErrInvalidArgument.WithDetails("invalid email address")
	}
	return nil
}

func validateNewPassword(password, confirm string) error {
	if len(password) < MinPasswordLength {
		return domain.ErrPasswordWeak.WithDetails("at least 8 characters required")
	}
	if strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return domain.ErrPasswordWeak.WithDetails("password cannot be entirely numeric")
	}
	if password != confirm {
		return domain.ErrPasswordMismatch
	}
	return nil
}

func validateTimezone(tz string) error {
	if _, err := time.LoadLocation(tz); err != nil || tz == "" || tz == "Local" {
		return domain.ErrInvalidArgument.WithDetails("unknown timezone " + tz)
	}
	return nil
}
