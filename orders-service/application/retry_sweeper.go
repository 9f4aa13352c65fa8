package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
)

// DefaultSweepInterval is how often the sweeper looks for eligible dead letters
const DefaultSweepInterval = 15 * time.Second

// RetrySweeper runs the automatic retry sweep periodically and purges expired dedup keys
type RetrySweeper struct {
	manager   *RetryManager
	dedup     domain.DedupStore
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewRetrySweeper creates a new RetrySweeper
func NewRetrySweeper(manager *RetryManager, dedup domain.DedupStore, interval, retention time.Duration, opts ...Option) *RetrySweeper {
	o := newOptions(opts)
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if retention <= 0 {
		retention = domain.DedupRetention
	}
	return &RetrySweeper{
		manager:   manager,
		dedup:     dedup,
		interval:  interval,
		retention: retention,
		logger:    o.logger,
		now:       o.now,
	}
}

// Start blocks until ctx is done
func (s *RetrySweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("retry sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retry sweeper stopped")
			return nil
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep and purge
func (s *RetrySweeper) RunOnce(ctx context.Context) *SweepResult {
	result, err := s.manager.Sweep(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "retry sweep failed", "error", err)
	} else if result.Scanned > 0 {
		s.logger.InfoContext(ctx, "retry sweep finished",
			"scanned", result.Scanned,
			"retried", result.Retried,
			"resolved", result.Resolved,
			"permanently_failed", result.PermanentlyFailed,
			"errors", result.Errors,
		)
	}

	purged, err := s.dedup.Purge(ctx, s.now().Add(-s.retention))
	if err != nil {
		s.logger.WarnContext(ctx, "dedup purge failed", "error", err)
	} else if purged > 0 {
		s.logger.InfoContext(ctx, "dedup keys purged", "count", purged)
	}
	return result
}
