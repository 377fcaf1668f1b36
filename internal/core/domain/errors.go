package domain

import "errors"

// DomainError is an error with a stable code of the form CB-<AREA>-<NNNN>.
// Two DomainErrors match under errors.Is when their codes are equal, so
// a message taken from the backend does not break comparisons.
type DomainError struct {
	Code    string
	Message string
	Details string
	Cause   error
}

func (e *DomainError) Error() string {
	msg := "[" + e.Code + "] " + e.Message
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}

func (e *DomainError) Unwrap() error { return e.Cause }

func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && e.Code == t.Code
}

// NewDomainError creates a DomainError.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// WithDetails returns a copy carrying details.
func (e *DomainError) WithDetails(details string) *DomainError {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy wrapping cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := *e
	c.Cause = cause
	return &c
}

// WithMessage returns a copy with the message replaced, typically by the
// text the backend sent. An empty message returns e unchanged.
func (e *DomainError) WithMessage(message string) *DomainError {
	if message == "" {
		return e
	}
	c := *e
	c.Message = message
	return &c
}

// IsDomainError reports whether err wraps a DomainError with code. An
// empty code matches any DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if !errors.As(err, &de) {
		return false
	}
	return code == "" || de.Code == code
}

// GetErrorCode returns the code of the DomainError in err's chain, or "".
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Authentication errors (AUTH)
var (
	// ErrInvalidCredentials indicates a wrong email or password.
	ErrInvalidCredentials = NewDomainError("CB-AUTH-4010", "invalid email or password")

	// ErrSessionExpired indicates the token was rejected and could not be refreshed.
	ErrSessionExpired = NewDomainError("CB-AUTH-4011", "session expired")

	// ErrNotAuthenticated indicates an operation needs a signed-in user.
	ErrNotAuthenticated = NewDomainError("CB-AUTH-4012", "not signed in")

	// ErrPermissionDenied indicates the backend refused the action.
	ErrPermissionDenied = NewDomainError("CB-AUTH-4030", "permission denied")

	// ErrAccountSuspended indicates a suspended account.
	ErrAccountSuspended = NewDomainError("CB-AUTH-4031", "account suspended")

	// ErrAccountInactive indicates a deactivated or unverified account.
	ErrAccountInactive = NewDomainError("CB-AUTH-4032", "account inactive")
)

// Multi-factor errors (MFA)
var (
	// ErrMFARequired is an expected condition: the login needs a second factor.
	ErrMFARequired = NewDomainError("CB-MFA-4010", "multi-factor verification required")

	// ErrMFAInvalidCode indicates a wrong or expired one-time code.
	ErrMFAInvalidCode = NewDomainError("CB-MFA-4011", "invalid verification code")

	// ErrMFANotPending indicates verification was attempted with no login pending.
	ErrMFANotPending = NewDomainError("CB-MFA-4090", "no verification pending")
)

// Password errors (PWD)
var (
	// ErrPasswordExpired is an expected condition: the password must be changed.
	ErrPasswordExpired = NewDomainError("CB-PWD-4010", "password expired")

	// ErrPasswordWeak indicates the new password failed the policy.
	ErrPasswordWeak = NewDomainError("CB-PWD-4001", "password does not meet requirements")

	// ErrPasswordMismatch indicates the confirmation differs from the password.
	ErrPasswordMismatch = NewDomainError("CB-PWD-4002", "passwords do not match")

	// ErrResetTokenInvalid indicates an invalid or used reset token.
	ErrResetTokenInvalid = NewDomainError("CB-PWD-4003", "invalid or expired reset token")
)

// User errors (USER)
var (
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = NewDomainError("CB-USER-4090", "email already registered")

	// ErrUserNotFound indicates the user does not exist.
	ErrUserNotFound = NewDomainError("CB-USER-4040", "user not found")

	// ErrVerificationInvalid indicates an invalid email verification token.
	ErrVerificationInvalid = NewDomainError("CB-USER-4001", "invalid or expired verification token")
)

// System errors (SYS)
var (
	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("CB-SYS-4000", "bad request")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("CB-SYS-4290", "too many requests")

	// ErrInternalServer indicates a backend failure.
	ErrInternalServer = NewDomainError("CB-SYS-5000", "internal server error")

	// ErrServiceUnavailable indicates the backend is temporarily unavailable.
	ErrServiceUnavailable = NewDomainError("CB-SYS-5030", "service unavailable")

	// ErrNetwork indicates the backend could not be reached.
	ErrNetwork = NewDomainError("CB-SYS-5031", "network error")
)

// Argument errors (ARG)
var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("CB-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("CB-ARG-1002", "missing required argument")

	// ErrArgumentConflict indicates conflicting arguments.
	ErrArgumentConflict = NewDomainError("CB-ARG-1003", "argument conflict")
)

// backendCodes maps the backend's machine-readable error codes.
var backendCodes = map[string]*DomainError{
	"mfa_required":          ErrMFARequired,
	"password_expired":      ErrPasswordExpired,
	"invalid_credentials":   ErrInvalidCredentials,
	"authentication_failed": ErrInvalidCredentials,
	"not_authenticated":     ErrNotAuthenticated,
	"token_not_valid":       ErrSessionExpired,
	"permission_denied":     ErrPermissionDenied,
	"account_suspended":     ErrAccountSuspended,
	"account_inactive":      ErrAccountInactive,
	"invalid_mfa_code":      ErrMFAInvalidCode,
	"mfa_not_pending":       ErrMFANotPending,
	"password_too_weak":     ErrPasswordWeak,
	"password_mismatch":     ErrPasswordMismatch,
	"invalid_reset_token":   ErrResetTokenInvalid,
	"duplicate_email":       ErrEmailTaken,
	"user_not_found":        ErrUserNotFound,
	"invalid_verification":  ErrVerificationInvalid,
	"throttled":             ErrRateLimited,
}

// FromBackendCode returns the DomainError for a backend error code, or
// nil if the code is unknown.
func FromBackendCode(code string) *DomainError {
	return backendCodes[code]
}

// BackendCode returns the backend's code for a DomainError, or "".
func BackendCode(err *DomainError) string {
	for code, de := range backendCodes {
		if de.Code == err.Code && code != "authentication_failed" {
			return code
		}
	}
	return ""
}

// IsExpectedCondition reports whether err is a login outcome that is
// modelled as a state (MFA required, password expired) rather than a failure.
func IsExpectedCondition(err error) bool {
	return IsDomainError(err, ErrMFARequired.Code) || IsDomainError(err, ErrPasswordExpired.Code)
}
