package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hauke92/mindgate/internal/domain"
	apperrors "github.com/hauke92/mindgate/internal/platform/errors"
)

// SessionStore is the durable session table behind the session repository.
type SessionStore struct {
	pool *pgxpool.Pool
}

var _ domain.SessionStore = (*SessionStore)(nil)

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

const sessionColumns = "id, package, planned_ms, started_at, ended_at, active"

func scanSession(row pgx.Row) (domain.Session, error) {
	var s domain.Session
	var plannedMS int64
	if err := row.Scan(&s.ID, &s.Package, &plannedMS, &s.StartedAt, &s.EndedAt, &s.Active); err != nil {
		return domain.Session{}, err
	}
	s.Planned = time.Duration(plannedMS) * time.Millisecond
	return s, nil
}

func (r *SessionStore) ActiveSessions(ctx context.Context) ([]domain.Session, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE active ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read active sessions: %w", err)
	}
	return sessions, nil
}

func (r *SessionStore) ActiveSessionForPackage(ctx context.Context, pkg string) (*domain.Session, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE package = $1 AND active", pkg)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active session for %s: %w", pkg, err)
	}
	return &s, nil
}

func (r *SessionStore) GetSession(ctx context.Context, id int64) (*domain.Session, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE id = $1", id)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFoundError("session not found").WithField("session_id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %d: %w", id, err)
	}
	return &s, nil
}

func (r *SessionStore) Insert(ctx context.Context, s domain.Session) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO sessions (package, planned_ms, started_at, ended_at, active)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		s.Package, s.Planned.Milliseconds(), s.StartedAt, s.EndedAt, s.Active,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert session for %s: %w", s.Package, err)
	}
	return id, nil
}

func (r *SessionStore) Update(ctx context.Context, s domain.Session) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions
		 SET package = $2, planned_ms = $3, started_at = $4, ended_at = $5, active = $6
		 WHERE id = $1`,
		s.ID, s.Package, s.Planned.Milliseconds(), s.StartedAt, s.EndedAt, s.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to update session %d: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundError("session not found").WithField("session_id", s.ID)
	}
	return nil
}

// SetInactive ends a session. Unknown ids and already-ended sessions are
// deliberate no-ops so double termination stays harmless.
func (r *SessionStore) SetInactive(ctx context.Context, id int64, endedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE sessions SET active = FALSE, ended_at = $2 WHERE id = $1 AND active",
		id, endedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to end session %d: %w", id, err)
	}
	return nil
}

func (r *SessionStore) DeleteEndedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		"DELETE FROM sessions WHERE NOT active AND ended_at < $1",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
