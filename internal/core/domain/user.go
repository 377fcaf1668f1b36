package domain

import (
	"slices"
	"strings"
)

// AccountStatus is the lifecycle state of an account on the backend.
type AccountStatus string

const (
	AccountActive                     AccountStatus = "active"
	AccountInactive                   AccountStatus = "inactive"
	AccountSuspended                  AccountStatus = "suspended"
	AccountPendingVerification        AccountStatus = "pending_verification"
	AccountPasswordExpired            AccountStatus = "password_expired"
	AccountPasswordExpiredGracePeriod AccountStatus = "password_expired_grace_period"
)

// Valid reports whether s is a known status.
func (s AccountStatus) Valid() bool {
	switch s {
	case AccountActive, AccountInactive, AccountSuspended, AccountPendingVerification,
		AccountPasswordExpired, AccountPasswordExpiredGracePeriod:
		return true
	}
	return false
}

// PasswordExpired reports whether the status forces a password change.
func (s AccountStatus) PasswordExpired() bool {
	return s == AccountPasswordExpired || s == AccountPasswordExpiredGracePeriod
}

// CanSignIn reports whether a login can succeed in this status, possibly
// into a forced password change.
func (s AccountStatus) CanSignIn() bool {
	return s != AccountSuspended && s != AccountInactive
}

// Permission is a named capability granted through a role.
type Permission struct {
	Codename    string `json:"codename"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

// Role groups permissions.
type Role struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	RoleType    string       `json:"role_type,omitempty"`
	Permissions []Permission `json:"role_permissions,omitempty"`
}

// User is the read-mostly projection of the backend user record. Roles and
// permissions are for display and navigation only; the backend enforces
// authorization on every request.
type User struct {
	ID              string        `json:"id"`
	Email           string        `json:"email"`
	Username        string        `json:"username,omitempty"`
	FirstName       string        `json:"first_name"`
	LastName        string        `json:"last_name"`
	Timezone        string        `json:"timezone,omitempty"`
	IsEmailVerified bool          `json:"is_email_verified"`
	IsActive        bool          `json:"is_active"`
	IsMFAEnabled    bool          `json:"is_mfa_enabled"`
	AccountStatus   AccountStatus `json:"account_status"`
	Roles           []Role        `json:"roles,omitempty"`
}

// FullName returns "First Last", or the email when both are empty.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// HasRole reports whether the user holds a role with the given name.
func (u *User) HasRole(name string) bool {
	return slices.ContainsFunc(u.Roles, func(r Role) bool {
		return strings.EqualFold(r.Name, name)
	})
}

// HasPermission reports whether any role grants codename.
func (u *User) HasPermission(codename string) bool {
	for _, r := range u.Roles {
		for _, p := range r.Permissions {
			if p.Codename == codename {
				return true
			}
		}
	}
	return false
}

// PermissionCodenames returns the distinct permission codenames, sorted.
func (u *User) PermissionCodenames() []string {
	var out []string
	for _, r := range u.Roles {
		for _, p := range r.Permissions {
			if !slices.Contains(out, p.Codename) {
				out = append(out, p.Codename)
			}
		}
	}
	slices.Sort(out)
	return out
}

// RoleNames returns role names in backend order.
func (u *User) RoleNames() []string {
	out := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		out = append(out, r.Name)
	}
	return out
}

// MarkEmailVerified applies a successful email verification.
func (u *User) MarkEmailVerified() {
	u.IsEmailVerified = true
	u.IsActive = true
	if u.AccountStatus == AccountPendingVerification || u.AccountStatus == "" {
		u.AccountStatus = AccountActive
	}
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = make([]Role, len(u.Roles))
	for i, r := range u.Roles {
		r.Permissions = slices.Clone(r.Permissions)
		c.Roles[i] = r
	}
	return &c
}
