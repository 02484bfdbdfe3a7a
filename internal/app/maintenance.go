package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hauke92/mindgate/internal/platform/correlation"
	"github.com/hauke92/mindgate/internal/platform/retry"
	"github.com/hauke92/mindgate/internal/session"
)

// Maintenance runs the periodic reconciliation sweep and retention
// cleanup. The repository's sweep is idempotent and race-safe, so the
// cadence here is pure policy.
type Maintenance struct {
	sessions        *session.Repository
	clock           clockwork.Clock
	sweepInterval   time.Duration
	cleanupInterval time.Duration
	stopCh          chan struct{}
}

func NewMaintenance(sessions *session.Repository, clock clockwork.Clock, sweepInterval, cleanupInterval time.Duration) *Maintenance {
	return &Maintenance{
		sessions:        sessions,
		clock:           clock,
		sweepInterval:   sweepInterval,
		cleanupInterval: cleanupInterval,
		stopCh:          make(chan struct{}),
	}
}

// Run blocks until Stop is called or ctx is cancelled.
func (m *Maintenance) Run(ctx context.Context) {
	sweep := m.clock.NewTicker(m.sweepInterval)
	defer sweep.Stop()
	cleanup := m.clock.NewTicker(m.cleanupInterval)
	defer cleanup.Stop()

	for {
		select {
		case <-sweep.Chan():
			m.runSweep(ctx)
		case <-cleanup.Chan():
			m.runCleanup(ctx)
		case <-m.stopCh:
			slog.Info("Maintenance loop stopped")
			return
		case <-ctx.Done():
			slog.Info("Maintenance loop context cancelled")
			return
		}
	}
}

// Stop gracefully stops the loop.
func (m *Maintenance) Stop() {
	close(m.stopCh)
}

var maintenancePolicy = retry.Policy{
	MaxAttempts:      3,
	InitialBackoff:   500 * time.Millisecond,
	RateLimitBackoff: 5 * time.Second,
	OnRetry: func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Maintenance task retrying", "attempt", attempt, "backoff", backoff, "error", err)
	},
}

func retryAlways(error) retry.Action { return retry.Retry }

func (m *Maintenance) runSweep(ctx context.Context) {
	taskCtx := correlation.WithID(ctx, correlation.NewID())

	err := retry.DoVoid(taskCtx, maintenancePolicy, retryAlways, func() error {
		_, err := m.sessions.EmitExpiredSessions(taskCtx)
		return err
	})
	if err != nil {
		slog.ErrorContext(taskCtx, "Reconciliation sweep failed", "error", err)
	}
}

func (m *Maintenance) runCleanup(ctx context.Context) {
	taskCtx := correlation.WithID(ctx, correlation.NewID())

	err := retry.DoVoid(taskCtx, maintenancePolicy, retryAlways, func() error {
		_, err := m.sessions.CleanupOldSessions(taskCtx)
		return err
	})
	if err != nil {
		slog.ErrorContext(taskCtx, "Retention cleanup failed", "error", err)
	}
}
