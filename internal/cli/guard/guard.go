package guard

import (
	"strings"

	"github.com/yndnr/calbook-go/internal/core/service"
)

// Route is a navigation target.
type Route string

const (
	RouteLogin               Route = "/login"
	RouteRegister            Route = "/register"
	RouteMFA                 Route = "/login/mfa"
	RouteForcePasswordChange Route = "/force-password-change"
	RouteResetPassword       Route = "/reset-password"
	RouteVerifyEmail         Route = "/verify-email"

	// RouteDashboard is the landing route after sign-in.
	RouteDashboard      Route = "/dashboard"
	RouteProfile        Route = "/profile"
	RouteIntegrations   Route = "/integrations"
	RoutePasswordChange Route = "/password/change"
	RouteMFASettings    Route = "/mfa"
)

var protectedPrefixes = []Route{
	RouteDashboard,
	RouteProfile,
	RouteIntegrations,
	RoutePasswordChange,
	RouteMFASettings,
}

// Kind classifies a route for guarding.
type Kind int

const (
	// KindOpen routes are shown in every state.
	KindOpen Kind = iota
	// KindPublic routes are the sign-in pages.
	KindPublic
	// KindProtected routes need a completed sign-in.
	KindProtected
	// KindChallenge routes belong to an unfinished sign-in.
	KindChallenge
)

// KindOf returns the kind of r. A protected prefix matches on a path
// segment boundary: /profile/edit is protected, /profiles is not.
func KindOf(r Route) Kind {
	switch r {
	case RouteLogin, RouteRegister:
		return KindPublic
	case RouteMFA, RouteForcePasswordChange:
		return KindChallenge
	}
	for _, p := range protectedPrefixes {
		if r == p || strings.HasPrefix(string(r), string(p)+"/") {
			return KindProtected
		}
	}
	return KindOpen
}

// Reason tells why a guard redirected.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonNotSignedIn     Reason = "not_signed_in"
	ReasonMFAPending      Reason = "mfa_pending"
	ReasonPasswordExpired Reason = "password_expired"
	ReasonSignedIn        Reason = "signed_in"
)

// Decision is the outcome of a guard. A zero Redirect means the
// destination may be shown.
type Decision struct {
	Redirect Route
	Reason   Reason
}

// Allowed reports whether the destination may be shown.
func (d Decision) Allowed() bool {
	return d.Redirect == ""
}

var allow = Decision{}

func redirect(to Route, why Reason) Decision {
	return Decision{Redirect: to, Reason: why}
}

// Protected guards routes that need a completed sign-in.
//
// An unfinished MFA challenge counts as not signed in. An expired password
// is checked before the authenticated flag because a grace login holds a
// token without being authenticated.
func Protected(st service.State, dest Route) Decision {
	switch {
	case st.MFARequired:
		return redirect(RouteLogin, ReasonMFAPending)
	case st.PasswordExpired:
		return redirect(expiredRoute(st), ReasonPasswordExpired)
	case !st.IsAuthenticated:
		return redirect(RouteLogin, ReasonNotSignedIn)
	}
	return allow
}

// Public guards the sign-in pages: a fully signed-in user is sent to the
// landing route.
func Public(st service.State, dest Route) Decision {
	if st.IsAuthenticated && !st.MFARequired && !st.PasswordExpired {
		return redirect(RouteDashboard, ReasonSignedIn)
	}
	return allow
}

// Challenge guards the pages that finish a sign-in. They are shown only
// while their condition holds; otherwise the user goes where AfterLogin
// points.
func Challenge(st service.State, dest Route) Decision {
	switch dest {
	case RouteMFA:
		if st.MFARequired {
			return allow
		}
	case RouteForcePasswordChange:
		if st.PasswordExpired && st.GraceLoginAllowed {
			return allow
		}
	default:
		return allow
	}
	next := AfterLogin(st)
	if next == dest {
		return allow
	}
	return redirect(next, reasonFor(st))
}

// Check applies the guard for dest's kind.
func Check(st service.State, dest Route) Decision {
	switch KindOf(dest) {
	case KindProtected:
		return Protected(st, dest)
	case KindPublic:
		return Public(st, dest)
	case KindChallenge:
		return Challenge(st, dest)
	}
	return allow
}

// AfterLogin returns where a settled sign-in attempt leads.
func AfterLogin(st service.State) Route {
	switch {
	case st.MFARequired:
		return RouteMFA
	case st.PasswordExpired:
		return expiredRoute(st)
	case st.IsAuthenticated:
		return RouteDashboard
	}
	return RouteLogin
}

// expiredRoute picks the forced change during a grace period, with or
// without a grace token, and the emailed reset otherwise.
func expiredRoute(st service.State) Route {
	if st.GraceLoginAllowed {
		return RouteForcePasswordChange
	}
	return RouteResetPassword
}

func reasonFor(st service.State) Reason {
	switch {
	case st.MFARequired:
		return ReasonMFAPending
	case st.PasswordExpired:
		return ReasonPasswordExpired
	case st.IsAuthenticated:
		return ReasonSignedIn
	}
	return ReasonNotSignedIn
}
