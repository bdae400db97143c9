package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/ArcheWizard/Password-Manager/internal/bridge/store"
)

// HousekeepingService periodically prunes expired bearer tokens and stale
// approval response history so neither grows without bound.
type HousekeepingService struct {
	Store          store.Store
	Approvals      *ApprovalService
	Logger         *slog.Logger
	Interval       time.Duration
	ResponseMaxAge time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping worker. A non-positive
// interval defaults to 1 hour; a non-positive response max age to 24 hours.
func NewHousekeepingService(st store.Store, approvals *ApprovalService, logger *slog.Logger, interval, responseMaxAge time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if responseMaxAge <= 0 {
		responseMaxAge = 24 * time.Hour
	}

	return &HousekeepingService{
		Store:          st,
		Approvals:      approvals,
		Logger:         logger,
		Interval:       interval,
		ResponseMaxAge: responseMaxAge,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts down the worker, blocking until any in-progress cleanup ends.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup runs each task independently; one failing does not stop the rest.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()

	deleted, err := s.Store.Tokens().DeleteExpiredTokens(ctx, time.Now())
	if err != nil {
		s.Logger.Error("failed to delete expired tokens", "error", err)
	} else if deleted > 0 {
		s.Logger.Info("deleted expired tokens", "count", deleted)
	}

	if s.Approvals != nil {
		if removed := s.Approvals.CleanupOldResponses(s.ResponseMaxAge); removed > 0 {
			s.Logger.Info("pruned approval response history", "count", removed)
		}
	}
}
