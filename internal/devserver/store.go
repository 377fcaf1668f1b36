package devserver

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yndnr/calbook-go/internal/core/domain"
	"github.com/yndnr/calbook-go/pkg/token"
)

// Mail kinds recorded in the outbox.
const (
	MailVerification  = "verification"
	MailPasswordReset = "password_reset"
)

// Mail is a message the backend would have sent.
type Mail struct {
	Kind   string    `json:"kind"`
	To     string    `json:"to"`
	Token  string    `json:"token"`
	SentAt time.Time `json:"sent_at"`
}

type mfaDevice struct {
	id        string
	kind      string
	secret    string
	phone     string
	confirmed bool
}

type account struct {
	user         *domain.User
	hash         []byte
	failures     int
	lockedUntil  time.Time
	devices      map[string]*mfaDevice
	integrations domain.Integrations
}

// activeDevice returns the first confirmed MFA device.
func (a *account) activeDevice() *mfaDevice {
	for _, d := range a.devices {
		if d.confirmed {
			return d
		}
	}
	return nil
}

type expiring struct {
	userID    string
	expiresAt time.Time
}

// store is the in-memory backend state. All methods are safe for
// concurrent use. Refresh, verification and reset tokens are kept by
// hash only.
type store struct {
	mu       sync.Mutex
	cost     int
	now      func() time.Time
	nextID   int
	accounts map[string]*account
	byEmail  map[string]string
	refresh  map[string]expiring
	revoked  map[string]time.Time
	verify   map[string]string
	reset    map[string]expiring
	outbox   map[string][]Mail
}

func newStore(cost int, now func() time.Time) *store {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &store{
		cost:     cost,
		now:      now,
		accounts: make(map[string]*account),
		byEmail:  make(map[string]string),
		refresh:  make(map[string]expiring),
		revoked:  make(map[string]time.Time),
		verify:   make(map[string]string),
		reset:    make(map[string]expiring),
		outbox:   make(map[string][]Mail),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// create adds an account. The user's ID is assigned here.
func (s *store) create(u *domain.User, password string) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeEmail(u.Email)
	if _, ok := s.byEmail[key]; ok {
		return nil, domain.ErrEmailTaken
	}
	s.nextID++
	u = u.Clone()
	u.ID = fmt.Sprintf("usr_%04d", s.nextID)
	s.accounts[u.ID] = &account{user: u, hash: hash, devices: make(map[string]*mfaDevice)}
	s.byEmail[key] = u.ID
	return u.Clone(), nil
}

// authenticate checks credentials and applies the lockout policy.
func (s *store) authenticate(email, password string, maxFailures int, lockout time.Duration) (*account, error) {
	s.mu.Lock()
	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		s.mu.Unlock()
		return nil, domain.ErrInvalidCredentials
	}
	acct := s.accounts[id]
	now := s.now()
	if now.Before(acct.lockedUntil) {
		wait := acct.lockedUntil.Sub(now)
		s.mu.Unlock()
		return nil, &lockedError{wait: wait}
	}
	hash := acct.hash
	s.mu.Unlock()

	// bcrypt runs outside the lock.
	err := bcrypt.CompareHashAndPassword(hash, []byte(password))

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		acct.failures++
		if maxFailures > 0 && acct.failures >= maxFailures {
			acct.failures = 0
			acct.lockedUntil = now.Add(lockout)
		}
		return nil, domain.ErrInvalidCredentials
	}
	acct.failures = 0
	return acct, nil
}

// lockedError reports a temporarily locked account.
type lockedError struct {
	wait time.Duration
}

func (e *lockedError) Error() string {
	return fmt.Sprintf("too many failed attempts, retry in %s", e.wait.Round(time.Second))
}

func (s *store) checkPassword(userID, password string) error {
	s.mu.Lock()
	acct, ok := s.accounts[userID]
	s.mu.Unlock()
	if !ok {
		return domain.ErrUserNotFound
	}
	if bcrypt.CompareHashAndPassword(acct.hash, []byte(password)) != nil {
		return domain.ErrInvalidCredentials
	}
	return nil
}

// setPassword replaces the hash and clears an expired-password status.
func (s *store) setPassword(userID, password string) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	acct.hash = hash
	acct.lockedUntil = time.Time{}
	if acct.user.AccountStatus.PasswordExpired() {
		acct.user.AccountStatus = domain.AccountActive
	}
	return acct.user.Clone(), nil
}

// user returns a copy of the user.
func (s *store) user(userID string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return acct.user.Clone(), nil
}

// update applies fn to the stored user and returns a copy.
func (s *store) update(userID string, fn func(*account) error) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if err := fn(acct); err != nil {
		return nil, err
	}
	return acct.user.Clone(), nil
}

func (s *store) integrations(userID string) (domain.Integrations, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[userID]
	if !ok {
		return domain.Integrations{}, domain.ErrUserNotFound
	}
	in := acct.integrations
	return domain.Integrations{
		Calendars: append([]domain.CalendarIntegration{}, in.Calendars...),
		Video:     append([]domain.VideoIntegration{}, in.Video...),
		Webhooks:  append([]domain.WebhookIntegration{}, in.Webhooks...),
	}, nil
}

func (s *store) setIntegrations(userID string, in domain.Integrations) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.accounts[userID]; ok {
		acct.integrations = in
	}
}

// issueRefresh records a new refresh token for userID.
func (s *store) issueRefresh(userID string, ttl time.Duration) (string, error) {
	tok, err := token.Generate(token.PrefixRefresh)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[token.Hash(tok)] = expiring{userID: userID, expiresAt: s.now().Add(ttl)}
	return tok, nil
}

// consumeRefresh validates and removes a refresh token. Refresh tokens
// rotate on every use.
func (s *store) consumeRefresh(tok string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := token.Hash(tok)
	e, ok := s.refresh[key]
	if !ok {
		return "", domain.ErrSessionExpired
	}
	delete(s.refresh, key)
	if !e.expiresAt.After(s.now()) {
		return "", domain.ErrSessionExpired
	}
	return e.userID, nil
}

// revoke blocks an access token id until its expiry.
func (s *store) revoke(jti string, until time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, id)
		}
	}
	s.revoked[jti] = until
}

func (s *store) isRevoked(jti string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[jti]
	return ok
}

// send records a mail for email.
func (s *store) send(kind, email, tok string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normalizeEmail(email)
	s.outbox[key] = append(s.outbox[key], Mail{Kind: kind, To: email, Token: tok, SentAt: s.now()})
}

func (s *store) mail(email string) []Mail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Mail{}, s.outbox[normalizeEmail(email)]...)
}

// startVerification issues an email verification token.
func (s *store) startVerification(userID, email string) error {
	tok, err := token.Generate(token.PrefixVerification)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.verify[token.Hash(tok)] = userID
	s.mu.Unlock()
	s.send(MailVerification, email, tok)
	return nil
}

func (s *store) confirmVerification(tok string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := token.Hash(tok)
	id, ok := s.verify[key]
	if !ok {
		return domain.ErrVerificationInvalid
	}
	delete(s.verify, key)
	if acct, ok := s.accounts[id]; ok {
		acct.user.MarkEmailVerified()
	}
	return nil
}

// startReset issues a reset token. Unknown emails are silently ignored.
func (s *store) startReset(email string, ttl time.Duration) error {
	s.mu.Lock()
	id, ok := s.byEmail[normalizeEmail(email)]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	tok, err := token.Generate(token.PrefixReset)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.reset[token.Hash(tok)] = expiring{userID: id, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	s.send(MailPasswordReset, email, tok)
	return nil
}

func (s *store) consumeReset(tok string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := token.Hash(tok)
	e, ok := s.reset[key]
	if !ok {
		return "", domain.ErrResetTokenInvalid
	}
	delete(s.reset, key)
	if !e.expiresAt.After(s.now()) {
		return "", domain.ErrResetTokenInvalid
	}
	return e.userID, nil
}
