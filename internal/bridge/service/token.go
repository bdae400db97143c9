package service

import (
	"context"
	"errors"
	"time"

	"github.com/ArcheWizard/Password-Manager/internal/bridge/domain"
	"github.com/ArcheWizard/Password-Manager/internal/bridge/store"
	"github.com/ArcheWizard/Password-Manager/pkg/cryptox"
)

var (
	ErrTokenInvalid = errors.New("invalid_token")
)

// TokenService issues and validates the opaque bearer tokens browser clients
// present after pairing. Tokens are persisted so they survive restarts and
// are revocable at any time.
type TokenService struct {
	Store store.Store
	TTL   time.Duration
}

// Issue mints a fresh random token for a paired client and persists it.
func (s *TokenService) Issue(ctx context.Context, fingerprint, label string) (domain.TokenRecord, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenRecord{}, err
	}

	now := time.Now().UTC()
	record := domain.TokenRecord{
		Token:             token,
		ClientFingerprint: fingerprint,
		ClientLabel:       label,
		IssuedAt:          now,
		ExpiresAt:         now.Add(s.TTL),
	}
	if err := s.Store.Tokens().PutToken(ctx, record); err != nil {
		return domain.TokenRecord{}, err
	}
	return record, nil
}

// Validate returns the record for a live token. An absent token and an
// expired one are rejected identically; an expired record found here is
// deleted so the store cannot grow without bound.
func (s *TokenService) Validate(ctx context.Context, token string) (domain.TokenRecord, error) {
	record, err := s.Store.Tokens().GetToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenRecord{}, ErrTokenInvalid
		}
		return domain.TokenRecord{}, err
	}

	if record.Expired(time.Now()) {
		if _, err := s.Store.Tokens().DeleteToken(ctx, token); err != nil {
			return domain.TokenRecord{}, err
		}
		return domain.TokenRecord{}, ErrTokenInvalid
	}
	return record, nil
}

// Revoke removes a token; reports whether it existed.
func (s *TokenService) Revoke(ctx context.Context, token string) (bool, error) {
	return s.Store.Tokens().DeleteToken(ctx, token)
}

// ListActive returns only unexpired records, pruning any expired ones it
// walks past.
func (s *TokenService) ListActive(ctx context.Context) ([]domain.TokenRecord, error) {
	records, err := s.Store.Tokens().ListTokens(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	active := make([]domain.TokenRecord, 0, len(records))
	for _, r := range records {
		if r.Expired(now) {
			if _, err := s.Store.Tokens().DeleteToken(ctx, r.Token); err != nil {
				return nil, err
			}
			continue
		}
		active = append(active, r)
	}
	return active, nil
}
