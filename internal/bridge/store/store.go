package store

import (
	"context"
	"errors"
	"time"

	"github.com/ArcheWizard/Password-Manager/internal/bridge/domain"
)

var ErrNotFound = errors.New("store: not found")

// Store is the root data access interface for the bridge's durable state.
// Concrete drivers (jsonfile) implement this. Both sub-stores must tolerate
// absent or corrupt backing data by starting empty rather than failing.
type Store interface {
	Tokens() Tokens
	Decisions() Decisions

	// Close releases any underlying resources.
	Close() error
}

// Tokens persists issued bearer token records.
type Tokens interface {
	// PutToken inserts or replaces a record keyed by its token value.
	PutToken(ctx context.Context, record domain.TokenRecord) error

	// GetToken returns the record for a token value, or ErrNotFound.
	GetToken(ctx context.Context, token string) (domain.TokenRecord, error)

	// DeleteToken removes a record; reports whether it was present.
	DeleteToken(ctx context.Context, token string) (bool, error)

	// ListTokens returns all records, expired ones included.
	ListTokens(ctx context.Context) ([]domain.TokenRecord, error)

	// DeleteExpiredTokens removes records expired as of now; returns the count.
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int, error)
}

// Decisions persists remembered approval outcomes keyed by
// (origin, fingerprint).
type Decisions interface {
	// PutDecision upserts a remembered decision, denials included.
	PutDecision(ctx context.Context, decision domain.RememberedDecision) error

	// GetDecision returns the remembered decision for the pair, or ErrNotFound.
	GetDecision(ctx context.Context, origin, fingerprint string) (domain.RememberedDecision, error)

	// DeleteDecision removes one remembered pair; reports whether it existed.
	DeleteDecision(ctx context.Context, origin, fingerprint string) (bool, error)

	// ListDecisions returns all remembered decisions.
	ListDecisions(ctx context.Context) ([]domain.RememberedDecision, error)

	// ClearDecisions removes everything; returns the count removed.
	ClearDecisions(ctx context.Context) (int, error)
}
