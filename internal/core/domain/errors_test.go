package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	if got := ErrUserNotFound.Error(); got != "[CB-USER-4040] user not found" {
		t.Errorf("Error() = %q", got)
	}
	got := ErrBadRequest.WithDetails("Unknown timezone.").Error()
	if got != "[CB-SYS-4000] bad request: Unknown timezone." {
		t.Errorf("Error() with details = %q", got)
	}
}

func TestDomainError_MatchesByCode(t *testing.T) {
	fromBackend := ErrInvalidCredentials.WithMessage("Unable to log in with provided credentials.")
	wrapped := fmt.Errorf("login: %w", fromBackend)

	if !errors.Is(wrapped, ErrInvalidCredentials) {
		t.Error("a rewritten message should still match by code")
	}
	if errors.Is(wrapped, ErrSessionExpired) {
		t.Error("different codes must not match")
	}
	if errors.Is(ErrNetwork, errors.New("network error")) {
		t.Error("plain errors never match a DomainError")
	}
}

func TestDomainError_CopiesLeaveOriginal(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := ErrNetwork.WithDetails("http://localhost:8000").WithCause(cause)

	if ErrNetwork.Details != "" || ErrNetwork.Cause != nil {
		t.Fatal("With* must not modify the shared sentinel")
	}
	if err.Code != ErrNetwork.Code || err.Message != ErrNetwork.Message {
		t.Errorf("code or message lost: %+v", err)
	}
	if err.Details != "http://localhost:8000" {
		t.Errorf("Details = %q", err.Details)
	}
	if !errors.Is(err, cause) || errors.Unwrap(err) != cause {
		t.Error("the cause should unwrap")
	}
	if errors.Unwrap(ErrNetwork) != nil {
		t.Error("a sentinel has no cause")
	}
	if ErrNetwork.WithMessage("") != ErrNetwork {
		t.Error("an empty message returns the receiver")
	}
}

func TestIsDomainErrorAndGetErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"sentinel", ErrSessionExpired, "CB-AUTH-4011"},
		{"wrapped", fmt.Errorf("verify: %w", ErrMFAInvalidCode), "CB-MFA-4011"},
		{"plain", errors.New("boom"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.code {
				t.Errorf("GetErrorCode() = %q, want %q", got, tt.code)
			}
			isDomain := tt.code != ""
			if got := IsDomainError(tt.err, ""); got != isDomain {
				t.Errorf("IsDomainError(any) = %v, want %v", got, isDomain)
			}
			if isDomain && !IsDomainError(tt.err, tt.code) {
				t.Error("IsDomainError should match its own code")
			}
			if IsDomainError(tt.err, "CB-USER-9999") {
				t.Error("IsDomainError matched an unknown code")
			}
		})
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	all := []*DomainError{
		ErrInvalidCredentials, ErrSessionExpired, ErrNotAuthenticated, ErrPermissionDenied,
		ErrAccountSuspended, ErrAccountInactive,
		ErrMFARequired, ErrMFAInvalidCode, ErrMFANotPending,
		ErrPasswordExpired, ErrPasswordWeak, ErrPasswordMismatch, ErrResetTokenInvalid,
		ErrEmailTaken, ErrUserNotFound, ErrVerificationInvalid,
		ErrBadRequest, ErrRateLimited, ErrInternalServer, ErrServiceUnavailable, ErrNetwork,
		ErrInvalidArgument, ErrMissingArgument, ErrArgumentConflict,
	}
	seen := make(map[string]bool)
	for _, e := range all {
		if !strings.HasPrefix(e.Code, "CB-") || e.Message == "" {
			t.Errorf("malformed error %q: %q", e.Code, e.Message)
		}
		if seen[e.Code] {
			t.Errorf("duplicate code %s", e.Code)
		}
		seen[e.Code] = true
	}
}

func TestBackendCodes(t *testing.T) {
	tests := []struct {
		code string
		want *DomainError
	}{
		{"mfa_required", ErrMFARequired},
		{"password_expired", ErrPasswordExpired},
		{"invalid_credentials", ErrInvalidCredentials},
		{"authentication_failed", ErrInvalidCredentials},
		{"duplicate_email", ErrEmailTaken},
		{"throttled", ErrRateLimited},
		{"something_else", nil},
		{"", nil},
	}
	for _, tt := range tests {
		if got := FromBackendCode(tt.code); got != tt.want {
			t.Errorf("FromBackendCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}

	// The alias never wins the reverse lookup.
	if got := BackendCode(ErrInvalidCredentials); got != "invalid_credentials" {
		t.Errorf("BackendCode(ErrInvalidCredentials) = %q", got)
	}
	if got := BackendCode(ErrNetwork); got != "" {
		t.Errorf("BackendCode(ErrNetwork) = %q, want none", got)
	}
}

func TestIsExpectedCondition(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrMFARequired, true},
		{fmt.Errorf("login: %w", ErrPasswordExpired.WithMessage("expired")), true},
		{ErrInvalidCredentials, false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsExpectedCondition(tt.err); got != tt.want {
			t.Errorf("IsExpectedCondition(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
