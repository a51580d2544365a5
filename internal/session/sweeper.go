// Package session holds the background purge of expired sessions.
package session

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredDeleter is the part of the session store the sweeper needs.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Sweeper periodically deletes expired sessions. Expired sessions are already rejected on
// lookup; sweeping only reclaims storage.
type Sweeper struct {
	store    ExpiredDeleter
	interval time.Duration
	logger   *slog.Logger
	onSweep  func(n int64)
}

// NewSweeper returns a Sweeper that runs every interval. onSweep, if non-nil, receives the
// number of sessions removed by each successful pass.
func NewSweeper(store ExpiredDeleter, interval time.Duration, logger *slog.Logger, onSweep func(n int64)) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: store, interval: interval, logger: logger, onSweep: onSweep}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.SweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single purge. Failures are logged and retried on the next tick.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	n, err := s.store.DeleteExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.ErrorContext(ctx, "session: sweep failed", "error", err)
		}
		return
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "session: expired sessions deleted", "count", n)
	}
	if s.onSweep != nil {
		s.onSweep(n)
	}
}
