package devserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/calbook-go/internal/core/domain"
)

// identity is the authenticated caller.
type identity struct {
	userID    string
	jti       string
	expiresAt time.Time
}

func identityFrom(ctx context.Context) identity {
	id, _ := ctx.Value(contextKeyIdentity).(identity)
	return id
}

// bearer extracts the token from "Token <t>" or "Bearer <t>".
func bearer(r *http.Request) string {
	scheme, tok, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok {
		return ""
	}
	if !strings.EqualFold(scheme, "Token") && !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}

// authenticate resolves the caller from the Authorization header.
func (s *Server) authenticate(r *http.Request) (identity, *domain.User, error) {
	raw := bearer(r)
	if raw == "" {
		return identity{}, nil, domain.ErrNotAuthenticated.WithDetails("Authentication credentials were not provided.")
	}
	claims, err := s.signer.verify(raw)
	if err != nil || s.store.isRevoked(claims.ID) {
		return identity{}, nil, domain.ErrSessionExpired.WithDetails("Given token not valid for any token type")
	}
	u, err := s.store.user(claims.UserID)
	if err != nil {
		return identity{}, nil, domain.ErrSessionExpired.WithDetails("User not found")
	}
	return identity{userID: u.ID, jti: claims.ID, expiresAt: claims.ExpiresAt.Time}, u, nil
}

// requireAuth rejects anonymous callers. Accounts with an expired password
// only reach handlers that allow it.
func (s *Server) requireAuth(allowExpired bool, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, u, err := s.authenticate(r)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		if !u.AccountStatus.CanSignIn() {
			s.handleError(w, r, statusDenied(u.AccountStatus))
			return
		}
		if u.AccountStatus.PasswordExpired() && !allowExpired {
			s.writeError(w, http.StatusForbidden, errorBody{
				Error:             "Your password has expired. Change it to continue.",
				Code:              "password_expired",
				GraceLoginAllowed: u.AccountStatus == domain.AccountPasswordExpiredGracePeriod,
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKeyIdentity, id)))
	})
}

func statusDenied(status domain.AccountStatus) error {
	if status == domain.AccountSuspended {
		return domain.ErrAccountSuspended.WithDetails("This account has been suspended.")
	}
	return domain.ErrAccountInactive.WithDetails("This account is inactive.")
}

// authResponse is the success payload of credential exchanges.
type authResponse struct {
	Token             string       `json:"token"`
	RefreshToken      string       `json:"refresh_token,omitempty"`
	User              *domain.User `json:"user,omitempty"`
	Message           string       `json:"message,omitempty"`
	Code              string       `json:"code,omitempty"`
	GraceLoginAllowed bool         `json:"grace_login_allowed,omitempty"`
}

// issueSession signs an access token and a refresh token for u.
func (s *Server) issueSession(u *domain.User) (authResponse, error) {
	tok, err := s.signer.sign(u)
	if err != nil {
		return authResponse{}, err
	}
	refresh, err := s.store.issueRefresh(u.ID, s.cfg.RefreshTTL)
	if err != nil {
		return authResponse{}, err
	}
	return authResponse{Token: tok, RefreshToken: refresh, User: u}, nil
}

// completeLogin answers a login whose credentials (and code, if any) were
// accepted. Expired passwords are answered per grace policy.
func (s *Server) completeLogin(w http.ResponseWriter, r *http.Request, u *domain.User) {
	switch u.AccountStatus {
	case domain.AccountPasswordExpired:
		s.writeError(w, http.StatusBadRequest, errorBody{
			Error: "Your password has expired. Reset it to continue.",
			Code:  "password_expired",
		})
		return
	case domain.AccountPasswordExpiredGracePeriod:
		if s.cfg.GraceViaError {
			s.writeError(w, http.StatusBadRequest, errorBody{
				Error:             "Your password has expired. Change it now to keep access.",
				Code:              "password_expired",
				GraceLoginAllowed: true,
			})
			return
		}
		resp, err := s.issueSession(u)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		resp.Code = "password_expired"
		resp.GraceLoginAllowed = true
		resp.Message = "Your password has expired. Change it now to keep access."
		s.writeJSON(w, http.StatusOK, resp)
		return
	}

	resp, err := s.issueSession(u)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	resp.Message = "Login successful"
	s.writeJSON(w, http.StatusOK, resp)
}

// codeMatches checks a one-time code against the open challenge for
// deviceID and the static development code.
func (s *Server) codeMatches(deviceID, userID, code string) bool {
	if s.cfg.StaticMFACode != "" && code == s.cfg.StaticMFACode {
		return true
	}
	c, ok := s.otp.get(deviceID)
	return ok && c.userID == userID && c.code == code
}
