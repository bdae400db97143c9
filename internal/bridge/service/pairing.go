package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"github.com/ArcheWizard/Password-Manager/internal/bridge/domain"
	"github.com/ArcheWizard/Password-Manager/pkg/cryptox"
)

var (
	ErrNoActiveSession = errors.New("no_active_session")
	ErrInvalidCode     = errors.New("invalid_code")
)

const pairingCodeDigits = 6

// PairingService holds the single in-memory pairing session. The session is
// deliberately not persisted; losing it on crash just means the user
// generates a new code.
type PairingService struct {
	Tokens *TokenService
	Window time.Duration

	mu      sync.Mutex
	session *domain.PairingSession
}

// StartPairing creates a new 6-digit code, replacing any prior session.
func (s *PairingService) StartPairing() (domain.PairingSession, error) {
	code, err := cryptox.GenerateNumericCode(pairingCodeDigits)
	if err != nil {
		return domain.PairingSession{}, err
	}

	session := domain.PairingSession{
		Code:      code,
		ExpiresAt: time.Now().Add(s.Window),
	}

	s.mu.Lock()
	s.session = &session
	s.mu.Unlock()

	return session, nil
}

// Complete exchanges a valid code for a bearer token. The session is
// consumed on success and stays live on a wrong code so the user can retype
// it within the window.
func (s *PairingService) Complete(ctx context.Context, code, fingerprint, label string) (domain.TokenRecord, error) {
	s.mu.Lock()
	session := s.session
	if session == nil || session.Expired(time.Now()) {
		s.session = nil
		s.mu.Unlock()
		return domain.TokenRecord{}, ErrNoActiveSession
	}
	if subtle.ConstantTimeCompare([]byte(session.Code), []byte(code)) != 1 {
		s.mu.Unlock()
		return domain.TokenRecord{}, ErrInvalidCode
	}
	s.session = nil
	s.mu.Unlock()

	return s.Tokens.Issue(ctx, fingerprint, label)
}

// Active reports whether an unexpired session exists without consuming it.
func (s *PairingService) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil && !s.session.Expired(time.Now())
}
