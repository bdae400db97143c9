package jsonfile

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ArcheWizard/Password-Manager/internal/bridge/domain"
	"github.com/ArcheWizard/Password-Manager/internal/bridge/store"
)

type decisionsRepo struct {
	path   string
	logger *slog.Logger

	mu        sync.Mutex
	decisions map[string]domain.RememberedDecision
}

func newDecisionsRepo(path string, logger *slog.Logger) *decisionsRepo {
	r := &decisionsRepo{
		path:      path,
		logger:    logger,
		decisions: make(map[string]domain.RememberedDecision),
	}
	loadJSONFile(path, &r.decisions, logger)
	return r
}

func decisionKey(origin, fingerprint string) string {
	return origin + ":" + fingerprint
}

func (r *decisionsRepo) PutDecision(_ context.Context, decision domain.RememberedDecision) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.decisions[decisionKey(decision.Origin, decision.Fingerprint)] = decision
	return saveJSONFile(r.path, r.decisions)
}

func (r *decisionsRepo) GetDecision(_ context.Context, origin, fingerprint string) (domain.RememberedDecision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	decision, ok := r.decisions[decisionKey(origin, fingerprint)]
	if !ok {
		return domain.RememberedDecision{}, store.ErrNotFound
	}
	return decision, nil
}

func (r *decisionsRepo) DeleteDecision(_ context.Context, origin, fingerprint string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := decisionKey(origin, fingerprint)
	if _, ok := r.decisions[key]; !ok {
		return false, nil
	}
	delete(r.decisions, key)
	return true, saveJSONFile(r.path, r.decisions)
}

func (r *decisionsRepo) ListDecisions(_ context.Context) ([]domain.RememberedDecision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	decisions := make([]domain.RememberedDecision, 0, len(r.decisions))
	for _, decision := range r.decisions {
		decisions = append(decisions, decision)
	}
	return decisions, nil
}

func (r *decisionsRepo) ClearDecisions(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := len(r.decisions)
	if count == 0 {
		return 0, nil
	}
	r.decisions = make(map[string]domain.RememberedDecision)
	return count, saveJSONFile(r.path, r.decisions)
}
