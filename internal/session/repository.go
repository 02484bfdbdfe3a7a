package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hauke92/mindgate/internal/domain"
	"github.com/hauke92/mindgate/internal/metrics"
)

// DefaultRetention is how long ended sessions are kept before the retention
// sweep purges them.
const DefaultRetention = 7 * 24 * time.Hour

// End reasons recorded in metrics.
const (
	reasonManual     = "manual"
	reasonExpired    = "expired"
	reasonSuperseded = "superseded"
	reasonReconciled = "reconciled"
)

// armedTimer is one entry in the expiry registration map.
type armedTimer struct {
	timer  clockwork.Timer
	cancel chan struct{}
}

// Repository is the single authority for session creation, termination, and
// expiry notification. One mutex guards the registration map and every
// terminal transition, which totally orders start/end/timer-fire for a
// given package. Store I/O happens under the lock; expected concurrency is
// one timer per currently-timed app.
type Repository struct {
	store     domain.SessionStore
	clock     clockwork.Clock
	retention time.Duration
	events    *Broadcaster

	mu          sync.Mutex
	timers      map[int64]*armedTimer
	initialized bool

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRepository creates a repository on top of the given store. Call
// Initialize before trusting expiry timers; until then pre-existing active
// sessions never auto-expire.
func NewRepository(store domain.SessionStore, clock clockwork.Clock, retention time.Duration) *Repository {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Repository{
		store:     store,
		clock:     clock,
		retention: retention,
		events:    NewBroadcaster(),
		timers:    make(map[int64]*armedTimer),
		stopCh:    make(chan struct{}),
	}
}

// Initialize loads all active sessions from the store and arms an expiry
// timer for each, computed from remaining time so a process restart does
// not lose track of running sessions. Calling it more than once is a no-op.
func (r *Repository) Initialize(ctx context.Context) error {
	sessions, err := r.store.ActiveSessions(ctx)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("active_sessions").Inc()
		return fmt.Errorf("failed to load active sessions: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		slog.Warn("Session repository already initialized, ignoring")
		return nil
	}
	for _, s := range sessions {
		r.armLocked(s.ID, s.Package, r.RemainingTime(s))
	}
	r.initialized = true

	slog.Info("Session repository initialized", "active_sessions", len(sessions))
	return nil
}

// StartSession creates and persists a new active session for pkg and arms
// its expiry timer. An existing active session for the same package is
// ended first; its end time is persisted before the new session starts.
// Returns the new session's store-assigned id. Fails with
// domain.ErrNotInitialized until Initialize has recovered persisted
// sessions.
func (r *Repository) StartSession(ctx context.Context, pkg string, planned time.Duration) (int64, error) {
	if pkg == "" {
		return 0, fmt.Errorf("package identifier must not be empty")
	}
	if planned < 0 {
		planned = 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return 0, domain.ErrNotInitialized
	}

	old, err := r.store.ActiveSessionForPackage(ctx, pkg)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("active_session_for_package").Inc()
		return 0, fmt.Errorf("failed to look up active session for %s: %w", pkg, err)
	}
	if old != nil {
		if err := r.endLocked(ctx, old.ID, reasonSuperseded); err != nil {
			return 0, fmt.Errorf("failed to end superseded session %d: %w", old.ID, err)
		}
		slog.Info("Superseded active session", "session_id", old.ID, "package", pkg)
	}

	s := domain.Session{
		Package:   pkg,
		Planned:   planned,
		StartedAt: r.clock.Now(),
		Active:    true,
	}
	id, err := r.store.Insert(ctx, s)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("insert").Inc()
		return 0, fmt.Errorf("failed to persist session for %s: %w", pkg, err)
	}

	r.armLocked(id, pkg, planned)
	metrics.SessionsStartedTotal.Inc()
	slog.Info("Session started", "session_id", id, "package", pkg, "planned", planned)
	return id, nil
}

// EndSession cancels any armed timer for id and persists the end.
// Idempotent: ending an already-ended session is a no-op. Once EndSession
// returns, the session's timer will never emit an expiry event.
func (r *Repository) EndSession(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.endLocked(ctx, id, reasonManual)
}

// EndSessionForApp ends the active session for pkg, if any.
func (r *Repository) EndSessionForApp(ctx context.Context, pkg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.store.ActiveSessionForPackage(ctx, pkg)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("active_session_for_package").Inc()
		return fmt.Errorf("failed to look up active session for %s: %w", pkg, err)
	}
	if s == nil {
		return nil
	}
	return r.endLocked(ctx, s.ID, reasonManual)
}

// Extend adds extra to the session's planned duration and re-arms its
// timer from the new remaining time. The active flag is untouched; ended
// sessions can be extended on the books without resurrecting them.
func (r *Repository) Extend(ctx context.Context, id int64, extra time.Duration) (domain.Session, error) {
	if extra <= 0 {
		return domain.Session{}, fmt.Errorf("extension must be positive, got %v", extra)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.store.GetSession(ctx, id)
	if err != nil {
		return domain.Session{}, fmt.Errorf("failed to load session %d: %w", id, err)
	}
	s.Planned += extra
	if err := r.store.Update(ctx, *s); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("update").Inc()
		return domain.Session{}, fmt.Errorf("failed to persist extension for session %d: %w", id, err)
	}

	if s.Active {
		r.cancelTimerLocked(id)
		r.armLocked(id, s.Package, r.RemainingTime(*s))
	}

	metrics.SessionsExtendedTotal.Inc()
	slog.Info("Session extended", "session_id", id, "extra", extra, "planned", s.Planned)
	return *s, nil
}

// ActiveSessions lists all currently active sessions.
func (r *Repository) ActiveSessions(ctx context.Context) ([]domain.Session, error) {
	return r.store.ActiveSessions(ctx)
}

// ActiveSession returns the active session for pkg, or nil when none.
func (r *Repository) ActiveSession(ctx context.Context, pkg string) (*domain.Session, error) {
	return r.store.ActiveSessionForPackage(ctx, pkg)
}

// Session loads a session by id.
func (r *Repository) Session(ctx context.Context, id int64) (*domain.Session, error) {
	return r.store.GetSession(ctx, id)
}

// RemainingTime reports how much of the session's planned duration is
// left, clamped at zero. Pure computation; the session need not be active.
func (r *Repository) RemainingTime(s domain.Session) time.Duration {
	remaining := s.Planned - r.clock.Now().Sub(s.StartedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsExpired reports whether the session's planned duration has elapsed,
// regardless of the active flag. Pure predicate, no side effects.
func (r *Repository) IsExpired(s domain.Session) bool {
	return r.clock.Now().Sub(s.StartedAt) >= s.Planned
}

// EmitExpiredSessions scans active sessions and force-expires any whose
// planned duration has elapsed, emitting the usual expiry event for each.
// Compensates for timers lost to process kills or suspended clocks.
// Invocation cadence is the caller's policy; the scan itself is idempotent
// and race-safe against concurrently firing timers. Returns how many
// sessions were force-expired.
func (r *Repository) EmitExpiredSessions(ctx context.Context) (int, error) {
	start := r.clock.Now()
	defer func() {
		metrics.SweepRunsTotal.Inc()
		metrics.SweepDurationSeconds.Observe(r.clock.Since(start).Seconds())
	}()

	actives, err := r.store.ActiveSessions(ctx)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("active_sessions").Inc()
		return 0, fmt.Errorf("failed to list active sessions: %w", err)
	}

	expired := 0
	for _, s := range actives {
		if !r.IsExpired(s) {
			continue
		}

		r.mu.Lock()
		// Remove any armed timer first so it cannot fire concurrently,
		// then run the same verify-and-end sequence the timer path uses.
		r.cancelTimerLocked(s.ID)
		if r.finishExpiredLocked(ctx, s.ID, s.Package, reasonReconciled) {
			expired++
		}
		r.mu.Unlock()
	}

	if expired > 0 {
		metrics.SweepForcedExpiriesTotal.Add(float64(expired))
		slog.Info("Reconciliation sweep force-expired sessions", "count", expired)
	}
	return expired, nil
}

// CleanupOldSessions deletes ended sessions older than the retention
// window. Pure maintenance, no correctness dependency.
func (r *Repository) CleanupOldSessions(ctx context.Context) (int64, error) {
	cutoff := r.clock.Now().Add(-r.retention)
	deleted, err := r.store.DeleteEndedBefore(ctx, cutoff)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("delete_ended_before").Inc()
		return 0, fmt.Errorf("failed to purge old sessions: %w", err)
	}
	if deleted > 0 {
		metrics.RetentionDeletedTotal.Add(float64(deleted))
		slog.Info("Purged old sessions", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}

// Subscribe returns a channel of just-ended sessions and an unsubscribe
// function. Multi-subscriber, non-replaying: exactly one event is emitted
// per natural or reconciled expiry, delivered to all current subscribers.
func (r *Repository) Subscribe() (<-chan domain.Session, func()) {
	return r.events.Subscribe()
}

// Stop cancels all armed timers, waits for in-flight timer callbacks, and
// closes the expiry stream.
func (r *Repository) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		for id := range r.timers {
			r.cancelTimerLocked(id)
		}
		r.mu.Unlock()

		close(r.stopCh)
		r.wg.Wait()
		r.events.Close()
		slog.Info("Session repository stopped")
	})
}

// --- internals (mu held) ---

// armLocked registers an expiry timer for the session. Each timer is an
// independently-failing unit of work: a failure in one session's callback
// never cancels sibling timers.
func (r *Repository) armLocked(id int64, pkg string, d time.Duration) {
	if _, exists := r.timers[id]; exists {
		return
	}
	if d < 0 {
		d = 0
	}

	at := &armedTimer{
		timer:  r.clock.NewTimer(d),
		cancel: make(chan struct{}),
	}
	r.timers[id] = at
	metrics.ArmedTimers.Set(float64(len(r.timers)))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		select {
		case <-at.timer.Chan():
			r.expireFromTimer(id, pkg, at)
		case <-at.cancel:
		case <-r.stopCh:
		}
	}()
}

// cancelTimerLocked removes the registration and stops the timer. Once the
// registration is gone, a timer callback that already fired finds nothing
// and no-ops.
func (r *Repository) cancelTimerLocked(id int64) {
	at, ok := r.timers[id]
	if !ok {
		return
	}
	delete(r.timers, id)
	at.timer.Stop()
	close(at.cancel)
	metrics.ArmedTimers.Set(float64(len(r.timers)))
}

// endLocked is the manual termination path: remove the timer registration,
// then persist the end. SetInactive is a store-level no-op for sessions
// that are already ended.
func (r *Repository) endLocked(ctx context.Context, id int64, reason string) error {
	r.cancelTimerLocked(id)

	if err := r.store.SetInactive(ctx, id, r.clock.Now()); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("set_inactive").Inc()
		return fmt.Errorf("failed to persist end of session %d: %w", id, err)
	}
	metrics.SessionsEndedTotal.WithLabelValues(reason).Inc()
	return nil
}

// expireFromTimer runs when a session's timer fires. The registration
// removal is the arbitration point: if a manual end already removed it,
// the timer silently loses the race. Ownership is checked by handle, not
// by id alone: a fired timer that was cancelled and replaced while it
// waited for the lock must not consume its successor's registration.
func (r *Repository) expireFromTimer(id int64, pkg string, at *armedTimer) {
	ctx := context.Background()

	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.timers[id]; !ok || cur != at {
		return
	}
	delete(r.timers, id)
	metrics.ArmedTimers.Set(float64(len(r.timers)))

	r.finishExpiredLocked(ctx, id, pkg, reasonExpired)
}

// finishExpiredLocked re-fetches the session's persisted state, verifies it
// is still the active session for its package and still past its deadline,
// and only then persists the end and emits the expiry event. A session that
// gained remaining time since the expiry trigger gets a fresh timer instead.
// Reports whether an event was emitted.
//
// Persistence failures here have no caller to propagate to: they are
// logged, the consumed timer is not re-armed, and the next reconciliation
// sweep picks the session up.
func (r *Repository) finishExpiredLocked(ctx context.Context, id int64, pkg string, reason string) bool {
	cur, err := r.store.ActiveSessionForPackage(ctx, pkg)
	if err != nil {
		slog.Error("Expiry re-check failed", "session_id", id, "package", pkg, "error", err)
		metrics.StoreErrorsTotal.WithLabelValues("active_session_for_package").Inc()
		metrics.TimerPersistFailuresTotal.Inc()
		return false
	}
	if cur == nil || cur.ID != id {
		// Already ended or superseded; the expected outcome of the race
		// protocol, not an error.
		slog.Debug("Session no longer active at expiry", "session_id", id, "package", pkg)
		return false
	}
	if !r.IsExpired(*cur) {
		// Extended between the expiry trigger and this re-check. The old
		// registration is already gone, so arm a fresh timer for the new
		// deadline.
		r.armLocked(id, pkg, r.RemainingTime(*cur))
		slog.Debug("Session no longer expired at re-check, timer re-armed", "session_id", id, "package", pkg)
		return false
	}

	now := r.clock.Now()
	if err := r.store.SetInactive(ctx, id, now); err != nil {
		slog.Error("Failed to persist session end at expiry", "session_id", id, "package", pkg, "error", err)
		metrics.TimerPersistFailuresTotal.Inc()
		return false
	}

	ended := *cur
	ended.Active = false
	ended.EndedAt = &now
	r.events.Publish(ended)

	metrics.ExpiryEmissionsTotal.Inc()
	metrics.SessionsEndedTotal.WithLabelValues(reason).Inc()
	slog.Info("Session expired", "session_id", id, "package", pkg, "reason", reason)
	return true
}
