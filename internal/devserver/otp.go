package devserver

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/yndnr/calbook-go/pkg/cmap"
)

// challenge is an open MFA challenge keyed by device id.
type challenge struct {
	userID    string
	code      string
	expiresAt time.Time
}

// otpStore holds plain one-time codes for dev-only retrieval.
type otpStore struct {
	m   *cmap.Map[challenge]
	now func() time.Time
}

func newOTPStore(now func() time.Time) *otpStore {
	return &otpStore{m: cmap.New[challenge](cmap.DefaultShardCount), now: now}
}

// put opens or replaces the challenge for deviceID. Expired challenges of
// other devices are dropped on the way.
func (s *otpStore) put(deviceID, userID, code string, expiresAt time.Time) {
	now := s.now()
	s.m.Sweep(func(_ string, c challenge) bool { return !c.expiresAt.After(now) })
	s.m.Set(deviceID, challenge{userID: userID, code: code, expiresAt: expiresAt})
}

// get returns the open challenge for deviceID. Expired challenges are
// dropped.
func (s *otpStore) get(deviceID string) (challenge, bool) {
	now := s.now()
	if s.m.DeleteIf(deviceID, func(c challenge) bool { return !c.expiresAt.After(now) }) {
		return challenge{}, false
	}
	return s.m.Get(deviceID)
}

func (s *otpStore) delete(deviceID string) {
	s.m.Delete(deviceID)
}

// newCode returns a random six digit code.
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
