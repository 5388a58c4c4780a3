package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/clearcomply/membership/internal/membership/store"
)

// HousekeepingService periodically purges pending invitations that were
// never accepted within their time-to-live, preventing unbounded growth of
// the members table. Accepted memberships are untouched.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// InviteTTL is how long a pending invitation stays claimable. Zero or
	// negative disables purging.
	InviteTTL time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. If interval is 0
// or negative, defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval, inviteTTL time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:     st,
		Logger:    logger,
		Interval:  interval,
		InviteTTL: inviteTTL,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop() to shut
// it down.
func (s *HousekeepingService) Start() {
	if s.InviteTTL <= 0 {
		close(s.doneCh)
		s.Logger.Info("housekeeping disabled, invite TTL not set")
		return
	}

	go s.run()
	s.Logger.Info("housekeeping service started",
		"interval", s.Interval,
		"invite_ttl", s.InviteTTL,
	)
}

// Stop gracefully shuts down the background worker. Blocks until any
// in-progress purge has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run a purge immediately on startup
	s.purge()

	for {
		select {
		case <-ticker.C:
			s.purge()
		case <-s.stopCh:
			return
		}
	}
}

// purge deletes pending invitations older than the TTL.
func (s *HousekeepingService) purge() {
	ctx := context.Background()
	cutoff := time.Now().UTC().Add(-s.InviteTTL)

	n, err := s.Store.Members().DeleteStalePendingInvites(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to purge stale invites", "error", err)
		return
	}
	if n > 0 {
		s.Logger.Info("purged stale invites", "count", n)
	}
}
