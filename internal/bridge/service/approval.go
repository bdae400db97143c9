package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ArcheWizard/Password-Manager/internal/bridge/domain"
	"github.com/ArcheWizard/Password-Manager/internal/bridge/store"
	"github.com/ArcheWizard/Password-Manager/pkg/idx"
)

var ErrUnknownRequest = errors.New("unknown_request")

// PromptHandler presents an approval request to the user and returns their
// decision. It runs synchronously on the calling worker; a handler that
// needs to hand off to another goroutine can publish the request and block
// in Await until someone calls Respond.
type PromptHandler func(req domain.ApprovalRequest) (domain.ApprovalResponse, error)

// ApprovalService gates every credential release behind a human decision.
// Remembered decisions, approvals and denials alike, bypass the prompt until
// revoked. With no handler registered every request times out; the engine
// never fails open.
type ApprovalService struct {
	Store  store.Store
	Logger *slog.Logger

	mu       sync.Mutex
	handler  PromptHandler
	pending  map[string]*pendingApproval
	history  map[string]domain.ApprovalResponse
	recorded map[string]time.Time
}

type pendingApproval struct {
	request domain.ApprovalRequest
	ch      chan domain.ApprovalResponse
}

func NewApprovalService(st store.Store, logger *slog.Logger) *ApprovalService {
	return &ApprovalService{
		Store:    st,
		Logger:   logger,
		pending:  make(map[string]*pendingApproval),
		history:  make(map[string]domain.ApprovalResponse),
		recorded: make(map[string]time.Time),
	}
}

// SetPromptHandler registers the handler invoked for un-remembered requests.
// Passing nil unregisters it, after which every request times out.
func (s *ApprovalService) SetPromptHandler(h PromptHandler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// RequestApproval resolves whether credentials for origin may be released to
// the identified client. Blocks until the handler decides or fails.
func (s *ApprovalService) RequestApproval(ctx context.Context, origin, label, fingerprint string, entryCount int, usernamePreview string) (domain.ApprovalResponse, error) {
	now := time.Now().UTC()

	if remembered, err := s.Store.Decisions().GetDecision(ctx, origin, fingerprint); err == nil {
		decision := domain.DecisionDenied
		if remembered.Approved {
			decision = domain.DecisionApproved
		}
		s.Logger.Info("approval resolved from remembered decision",
			"origin", origin, "decision", decision)
		return domain.ApprovalResponse{
			Decision:  decision,
			Remember:  true,
			Timestamp: now,
		}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.ApprovalResponse{}, err
	}

	request := domain.ApprovalRequest{
		RequestID:         idx.New().String(),
		Origin:            origin,
		ClientLabel:       label,
		ClientFingerprint: fingerprint,
		CreatedAt:         now,
		EntryCount:        entryCount,
		UsernamePreview:   usernamePreview,
	}

	s.mu.Lock()
	handler := s.handler
	s.pending[request.RequestID] = &pendingApproval{
		request: request,
		ch:      make(chan domain.ApprovalResponse, 1),
	}
	s.mu.Unlock()

	response := s.invokePrompt(handler, request)
	response.RequestID = request.RequestID
	if response.Timestamp.IsZero() {
		response.Timestamp = time.Now().UTC()
	}

	if response.Remember && response.Decision != domain.DecisionTimeout {
		err := s.Store.Decisions().PutDecision(ctx, domain.RememberedDecision{
			Origin:      origin,
			Fingerprint: fingerprint,
			Approved:    response.Decision == domain.DecisionApproved,
			Timestamp:   response.Timestamp,
		})
		if err != nil {
			s.Logger.Error("failed to remember approval decision",
				"origin", origin, "error", err)
		}
	}

	s.mu.Lock()
	delete(s.pending, request.RequestID)
	s.history[request.RequestID] = response
	s.recorded[request.RequestID] = response.Timestamp
	s.mu.Unlock()

	s.Logger.Info("approval request resolved",
		"request_id", request.RequestID,
		"origin", origin,
		"decision", response.Decision,
		"remember", response.Remember)

	return response, nil
}

// invokePrompt runs the handler outside the service lock. No handler, a
// handler error, or a handler panic all resolve to TIMEOUT.
func (s *ApprovalService) invokePrompt(handler PromptHandler, request domain.ApprovalRequest) (response domain.ApprovalResponse) {
	timeout := domain.ApprovalResponse{
		RequestID: request.RequestID,
		Decision:  domain.DecisionTimeout,
		Timestamp: time.Now().UTC(),
	}

	if handler == nil {
		s.Logger.Warn("no prompt handler registered, timing out approval",
			"request_id", request.RequestID, "origin", request.Origin)
		return timeout
	}

	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("prompt handler panicked",
				"request_id", request.RequestID, "panic", fmt.Sprint(r))
			response = timeout
		}
	}()

	resp, err := handler(request)
	if err != nil {
		s.Logger.Error("prompt handler failed",
			"request_id", request.RequestID, "error", err)
		return timeout
	}
	return resp
}

// Pending returns a snapshot of requests awaiting a decision.
func (s *ApprovalService) Pending() []domain.ApprovalRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.ApprovalRequest, 0, len(s.pending))
	for _, p := range s.pending {
		out = append(out, p.request)
	}
	return out
}

// Respond delivers a decision for a pending request from another goroutine.
// Pairs with Await inside a prompt handler for the polling flow.
func (s *ApprovalService) Respond(requestID string, decision domain.Decision, remember bool) error {
	s.mu.Lock()
	p, ok := s.pending[requestID]
	s.mu.Unlock()
	if !ok {
		return ErrUnknownRequest
	}

	select {
	case p.ch <- domain.ApprovalResponse{
		RequestID: requestID,
		Decision:  decision,
		Remember:  remember,
		Timestamp: time.Now().UTC(),
	}:
	default:
		return ErrUnknownRequest
	}
	return nil
}

// Await blocks until Respond delivers a decision for the request. Intended
// for use inside a prompt handler that defers to another goroutine.
func (s *ApprovalService) Await(requestID string) (domain.ApprovalResponse, error) {
	s.mu.Lock()
	p, ok := s.pending[requestID]
	s.mu.Unlock()
	if !ok {
		return domain.ApprovalResponse{}, ErrUnknownRequest
	}
	return <-p.ch, nil
}

// CleanupOldResponses drops response history older than maxAge and returns
// how many entries were removed.
func (s *ApprovalService) CleanupOldResponses(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int
	for id, at := range s.recorded {
		if at.Before(cutoff) {
			delete(s.recorded, id)
			delete(s.history, id)
			removed++
		}
	}
	return removed
}

// Response returns the recorded outcome for a finished request, if still in
// the history window.
func (s *ApprovalService) Response(requestID string) (domain.ApprovalResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.history[requestID]
	return resp, ok
}

// RevokeRemembered forgets one (origin, fingerprint) decision so the next
// request for that pair prompts again.
func (s *ApprovalService) RevokeRemembered(ctx context.Context, origin, fingerprint string) (bool, error) {
	return s.Store.Decisions().DeleteDecision(ctx, origin, fingerprint)
}

// ClearRemembered wipes the entire remembered decision store.
func (s *ApprovalService) ClearRemembered(ctx context.Context) (int, error) {
	return s.Store.Decisions().ClearDecisions(ctx)
}

// ListRemembered returns every remembered decision.
func (s *ApprovalService) ListRemembered(ctx context.Context) ([]domain.RememberedDecision, error) {
	return s.Store.Decisions().ListDecisions(ctx)
}
