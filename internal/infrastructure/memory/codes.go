// Package memory holds process-local implementations of the domain stores.
// State is lost on restart.
package memory

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/nft-voting-api/internal/domain"
	"github.com/nft-voting-api/internal/pkg/otp"
)

// CodeStore keeps one pending login code per email.
type CodeStore struct {
	mu    sync.Mutex
	codes map[string]domain.VerificationCode
	ttl   time.Duration
	now   func() time.Time
}

type CodeStoreOption func(*CodeStore)

// WithClock overrides the time source.
func WithClock(now func() time.Time) CodeStoreOption {
	return func(s *CodeStore) { s.now = now }
}

func NewCodeStore(ttl time.Duration, opts ...CodeStoreOption) *CodeStore {
	s := &CodeStore{
		codes: make(map[string]domain.VerificationCode),
		ttl:   ttl,
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *CodeStore) Issue(_ context.Context, email string) (string, error) {
	code, err := otp.New()
	if err != nil {
		return "", err
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)
	s.codes[email] = domain.NewVerificationCode(email, code, now.Add(s.ttl))
	return code, nil
}

func (s *CodeStore) Verify(_ context.Context, email, candidate string) (bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.codes[email]
	if !ok {
		return false, nil
	}
	if v.Expired(now) {
		delete(s.codes, email)
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(v.Code), []byte(candidate)) != 1 {
		return false, nil
	}
	delete(s.codes, email)
	return true, nil
}

// Len returns the number of pending codes, expired ones included.
func (s *CodeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

func (s *CodeStore) sweepLocked(now time.Time) {
	for k, v := range s.codes {
		if v.Expired(now) {
			delete(s.codes, k)
		}
	}
}
