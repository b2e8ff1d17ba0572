package lifecycle

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often the sweeper scans for overdue alerts.
const DefaultSweepInterval = 1 * time.Minute

// Expirer expires overdue alerts in bulk.
type Expirer interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

// Sweeper periodically expires ACTIVE alerts past their expires_at. Reads
// already apply the same predicate lazily, so the sweeper only keeps the
// table tidy and the metrics honest.
type Sweeper struct {
	store    Expirer
	interval time.Duration
	metrics  MetricsRecorder
}

// NewSweeper creates a sweeper. A non-positive interval falls back to
// DefaultSweepInterval.
func NewSweeper(store Expirer, interval time.Duration, m MetricsRecorder) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if m == nil {
		m = &NoOpMetrics{}
	}
	return &Sweeper{store: store, interval: interval, metrics: m}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	slog.Info("Starting expiry sweeper", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Expiry sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.store.ExpireOverdue(ctx)
	if err != nil {
		slog.Error("Expiry sweep failed", "error", err)
		s.metrics.RecordError()
		return
	}
	if n > 0 {
		slog.Info("Expired overdue alerts", "count", n)
		for i := int64(0); i < n; i++ {
			s.metrics.IncrementCustom("alerts_expired")
		}
	}
}
