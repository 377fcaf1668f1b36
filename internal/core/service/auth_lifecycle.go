package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yndnr/calbook-go/internal/cli/api"
	"github.com/yndnr/calbook-go/internal/core/domain"
)

// ============================================================================
// Session lifecycle: hydrate, refresh, logout, reset
// ============================================================================

// Hydrate restores the session persisted by a previous run. A token whose
// hinted expiry has passed is dropped when there is no refresh credential
// to renew it. The profile is then fetched as a best effort; a 401 there
// is handled by the gateway.
func (s *AuthService) Hydrate(ctx context.Context) State {
	token, ok := s.tokens.Get()
	if !ok {
		return s.State()
	}

	// 1. Short-circuit on a token that can no longer work
	if claims, err := domain.DecodeClaims(token); err == nil && claims.Expired(time.Now()) {
		if _, ok := s.tokens.RefreshToken(); !ok {
			s.logger.Debug("persisted token expired, clearing", "expired_at", claims.ExpiresAt)
			if err := s.tokens.Remove(); err != nil {
				s.logger.Warn("clear expired token", "error", err)
			}
			return s.State()
		}
	}

	// 2. Restore from the cache
	user := s.cachedUser()
	gen := s.begin(false)
	s.settle(gen, func(st *State) {
		if user != nil && user.AccountStatus.PasswordExpired() {
			st.setPasswordExpired(token, user, user.AccountStatus == domain.AccountPasswordExpiredGracePeriod)
			return
		}
		st.setAuthenticated(token, user)
	})

	// 3. Best-effort profile fetch
	if _, err := s.RefreshProfile(ctx); err != nil {
		s.logger.Debug("profile refresh after hydrate failed", "error", err)
	}
	return s.State()
}

// RefreshProfile re-reads the current user. It does not take a new
// generation: the result is dropped if any operation started meanwhile.
func (s *AuthService) RefreshProfile(ctx context.Context) (State, error) {
	current := s.State()
	if !current.HasSession() {
		return current, domain.ErrNotAuthenticated
	}

	user, err := s.backend.Profile(ctx)
	if err != nil {
		return s.State(), err
	}

	snap, ok := s.transition(func(st *State) bool {
		if st.Generation != current.Generation || !st.HasSession() {
			return false
		}
		st.User = user.Clone()
		s.cacheUser(user)

		expired := user.AccountStatus.PasswordExpired()
		switch {
		case expired && st.Phase == PhaseAuthenticated:
			st.setPasswordExpired(st.Token, st.User, user.AccountStatus == domain.AccountPasswordExpiredGracePeriod)
		case !expired && st.Phase == PhasePasswordExpired:
			st.setAuthenticated(st.Token, st.User)
		}
		return true
	})
	if !ok {
		s.logger.Debug("stale profile discarded", "generation", current.Generation)
		return snap, errStale
	}
	return snap, nil
}

// Logout signs out. Local state and token storage are cleared before the
// remote call, and a remote failure is only logged: Logout always
// succeeds for the caller.
func (s *AuthService) Logout(ctx context.Context) State {
	refresh, _ := s.tokens.RefreshToken()
	_, hadToken := s.tokens.Get()

	snap := s.Reset()
	if err := s.tokens.Remove(); err != nil {
		s.logger.Warn("clear token storage on logout", "error", err)
	}

	if hadToken || refresh != "" {
		if err := s.backend.Logout(ctx, refresh); err != nil {
			s.logger.Debug("remote logout failed", "error", err)
		}
	}
	return snap
}

// Reset re-initializes the state under a fresh generation. In-flight
// operations will find their generation stale and discard their results.
func (s *AuthService) Reset() State {
	snap, _ := s.transition(func(st *State) bool {
		s.gen++
		*st = initialState(s.gen)
		return true
	})
	return snap
}

// OnTokenRefreshed is the gateway hook for a silent token refresh.
func (s *AuthService) OnTokenRefreshed(token string) {
	s.transition(func(st *State) bool {
		if !st.HasSession() || st.Token == token {
			return false
		}
		st.Token = token
		return true
	})
}

// OnAuthLost is the gateway hook for an unrecoverable 401. The gateway
// has already cleared token storage.
func (s *AuthService) OnAuthLost() {
	s.logger.Info("session lost, signing out")
	s.Reset()
}

// persist writes a session to token storage.
func (s *AuthService) persist(resp *api.AuthResponse) error {
	var errs []error
	if err := s.tokens.Set(resp.Token); err != nil {
		errs = append(errs, fmt.Errorf("token: %w", err))
	}
	if resp.RefreshToken != "" {
		if err := s.tokens.SetRefreshToken(resp.RefreshToken); err != nil {
			errs = append(errs, fmt.Errorf("refresh token: %w", err))
		}
	}
	if resp.User != nil {
		if err := s.cacheUser(resp.User); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// cacheUser stores the user for the next Hydrate. Failures are logged.
func (s *AuthService) cacheUser(u *domain.User) error {
	data, err := json.Marshal(u)
	if err == nil {
		err = s.tokens.SetCachedUser(data)
	}
	if err != nil {
		s.logger.Warn("cache user", "error", err)
		return fmt.Errorf("cached user: %w", err)
	}
	return nil
}

func (s *AuthService) cachedUser() *domain.User {
	data, ok := s.tokens.CachedUser()
	if !ok {
		return nil
	}
	var u domain.User
	if err := json.Unmarshal(data, &u); err != nil {
		s.logger.Debug("ignore unreadable cached user", "error", err)
		return nil
	}
	return &u
}
