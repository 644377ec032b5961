package background

import (
	"context"
	"log/slog"
	"time"
)

// SessionStore is the slice of the session repository the sweeper needs.
type SessionStore interface {
	DeactivateIdleSince(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionSweeper periodically flags sessions as inactive once they have gone
// too long without activity. Rows are flipped, never deleted, so the device
// history stays intact.
type SessionSweeper struct {
	sessions    SessionStore
	logger      *slog.Logger
	idleTimeout time.Duration
	interval    time.Duration
	stopCh      chan struct{}
}

// NewSessionSweeper creates a new session sweeper
func NewSessionSweeper(sessions SessionStore, logger *slog.Logger, idleTimeout, interval time.Duration) *SessionSweeper {
	return &SessionSweeper{
		sessions:    sessions,
		logger:      logger,
		idleTimeout: idleTimeout,
		interval:    interval,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the periodic sweep. Blocks until Stop is called or ctx ends.
func (s *SessionSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on startup
	s.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopCh:
			s.logger.Info("session sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("session sweeper context cancelled")
			return
		}
	}
}

func (s *SessionSweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-s.idleTimeout)
	flagged, err := s.sessions.DeactivateIdleSince(sweepCtx, cutoff)
	if err != nil {
		s.logger.Error("failed to sweep idle sessions", slog.Any("error", err))
		return
	}

	if flagged > 0 {
		s.logger.Info("idle sessions deactivated",
			slog.Int64("count", flagged),
			slog.Time("cutoff", cutoff))
	}
}

// Stop signals the sweeper to stop
func (s *SessionSweeper) Stop() {
	close(s.stopCh)
}
