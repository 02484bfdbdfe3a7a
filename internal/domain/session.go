package domain

import (
	"context"
	"time"
)

// Session is one timed usage window for a single app. It is created active
// and ends exactly once, either by explicit caller action or when its
// planned duration elapses.
type Session struct {
	// ID is assigned by the store on insert. Monotonic, never reused.
	ID        int64         `json:"id"`
	Package   string        `json:"package"`
	Planned   time.Duration `json:"planned_duration"`
	StartedAt time.Time     `json:"started_at"`
	// EndedAt is set exactly once when the session ends.
	// Invariant: EndedAt != nil iff Active == false.
	EndedAt *time.Time `json:"ended_at,omitempty"`
	Active  bool       `json:"active"`
}

// SessionStore is the durable persistence contract the session repository
// builds on. All operations are durable on return.
type SessionStore interface {
	// ActiveSessions returns every session with Active == true.
	ActiveSessions(ctx context.Context) ([]Session, error)

	// ActiveSessionForPackage returns the active session for pkg, or nil
	// when there is none.
	ActiveSessionForPackage(ctx context.Context, pkg string) (*Session, error)

	// GetSession returns the session with the given id, or a not-found
	// error when no such session exists.
	GetSession(ctx context.Context, id int64) (*Session, error)

	// Insert persists a new session and returns its store-assigned id.
	Insert(ctx context.Context, s Session) (int64, error)

	// Update persists changed session attributes (planned duration).
	Update(ctx context.Context, s Session) error

	// SetInactive marks the session ended. Calling it for an already-ended
	// session is a no-op, not an error.
	SetInactive(ctx context.Context, id int64, endedAt time.Time) error

	// DeleteEndedBefore purges ended sessions whose end time is older than
	// cutoff and reports how many were removed.
	DeleteEndedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
