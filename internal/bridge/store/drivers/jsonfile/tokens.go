package jsonfile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ArcheWizard/Password-Manager/internal/bridge/domain"
	"github.com/ArcheWizard/Password-Manager/internal/bridge/store"
)

type tokensRepo struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	records map[string]domain.TokenRecord
}

func newTokensRepo(path string, logger *slog.Logger) *tokensRepo {
	r := &tokensRepo{
		path:    path,
		logger:  logger,
		records: make(map[string]domain.TokenRecord),
	}
	loadJSONFile(path, &r.records, logger)
	return r
}

func (r *tokensRepo) PutToken(_ context.Context, record domain.TokenRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[record.Token] = record
	return saveJSONFile(r.path, r.records)
}

func (r *tokensRepo) GetToken(_ context.Context, token string) (domain.TokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[token]
	if !ok {
		return domain.TokenRecord{}, store.ErrNotFound
	}
	return record, nil
}

func (r *tokensRepo) DeleteToken(_ context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[token]; !ok {
		return false, nil
	}
	delete(r.records, token)
	return true, saveJSONFile(r.path, r.records)
}

func (r *tokensRepo) ListTokens(_ context.Context) ([]domain.TokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := make([]domain.TokenRecord, 0, len(r.records))
	for _, record := range r.records {
		records = append(records, record)
	}
	return records, nil
}

func (r *tokensRepo) DeleteExpiredTokens(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for token, record := range r.records {
		if record.Expired(now) {
			delete(r.records, token)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, saveJSONFile(r.path, r.records)
}
