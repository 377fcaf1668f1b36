package service

import (
	"github.com/yndnr/calbook-go/internal/core/domain"
)

// Phase is the state of the authentication machine.
type Phase string

const (
	PhaseAnonymous       Phase = "anonymous"
	PhaseAuthenticating  Phase = "authenticating"
	PhaseAuthenticated   Phase = "authenticated"
	PhaseMFAPending      Phase = "mfa_pending"
	PhasePasswordExpired Phase = "password_expired"
	PhaseFailed          Phase = "failed"
)

// Settled reports whether p is an outcome of a login attempt.
func (p Phase) Settled() bool {
	switch p {
	case PhaseAuthenticated, PhaseMFAPending, PhasePasswordExpired, PhaseFailed:
		return true
	}
	return false
}

// State is a snapshot of the session. Snapshots are values: mutating one
// never affects the service.
//
// IsAuthenticated is only true in PhaseAuthenticated, and then
// MFARequired and PasswordExpired are false. A grace login holds a Token
// while PasswordExpired is set; that token only serves the forced
// password change. When the backend reported the expiry as an error
// there is no token, and PendingEmail names the account instead.
type State struct {
	Phase             Phase        `json:"phase"`
	Token             string       `json:"-"`
	User              *domain.User `json:"user,omitempty"`
	IsAuthenticated   bool         `json:"is_authenticated"`
	MFARequired       bool         `json:"mfa_required"`
	MFADeviceID       string       `json:"mfa_device_id,omitempty"`
	PasswordExpired   bool         `json:"password_expired"`
	GraceLoginAllowed bool         `json:"grace_login_allowed"`
	PendingEmail      string       `json:"pending_email,omitempty"`
	Busy              bool         `json:"busy"`
	Error             string       `json:"error,omitempty"`
	Generation        uint64       `json:"generation"`
}

// initialState is the anonymous state for generation gen.
func initialState(gen uint64) State {
	return State{Phase: PhaseAnonymous, Generation: gen}
}

// IsInitial reports whether s equals the initial anonymous state, ignoring
// the generation.
func (s State) IsInitial() bool {
	s.Generation = 0
	return s == initialState(0)
}

// clone returns a copy that shares nothing mutable with s.
func (s State) clone() State {
	s.User = s.User.Clone()
	return s
}

// HasSession reports whether a token is held, including a grace token.
func (s State) HasSession() bool {
	return s.Token != ""
}

// setAuthenticated moves to the authenticated phase.
func (s *State) setAuthenticated(token string, u *domain.User) {
	s.Phase = PhaseAuthenticated
	s.Token = token
	s.User = u
	s.IsAuthenticated = true
	s.MFARequired = false
	s.MFADeviceID = ""
	s.PasswordExpired = false
	s.GraceLoginAllowed = false
	s.PendingEmail = ""
}

// setMFAPending records an MFA challenge for email.
func (s *State) setMFAPending(deviceID, email string) {
	s.Phase = PhaseMFAPending
	s.Token = ""
	s.User = nil
	s.IsAuthenticated = false
	s.MFARequired = true
	s.MFADeviceID = deviceID
	s.PasswordExpired = false
	s.GraceLoginAllowed = false
	s.PendingEmail = email
}

// setPasswordExpired records an expired password. token is empty unless
// a grace login was granted.
func (s *State) setPasswordExpired(token string, u *domain.User, grace bool) {
	s.Phase = PhasePasswordExpired
	s.Token = token
	s.User = u
	s.IsAuthenticated = false
	s.MFARequired = false
	s.MFADeviceID = ""
	s.PasswordExpired = true
	s.GraceLoginAllowed = grace
	s.PendingEmail = ""
}

// setFailed records a failed attempt. The session is anonymous again.
func (s *State) setFailed(message string) {
	gen := s.Generation
	*s = initialState(gen)
	s.Phase = PhaseFailed
	s.Error = message
}
