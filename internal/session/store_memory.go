package session

import (
	"context"
	"sync"
	"time"

	"github.com/hauke92/mindgate/internal/domain"
	apperrors "github.com/hauke92/mindgate/internal/platform/errors"
)

// MemoryStore is an in-memory SessionStore for single-instance deployments
// and tests. Ids are monotonic and never reused within a process lifetime.
type MemoryStore struct {
	mu          sync.RWMutex
	sessions    map[int64]domain.Session
	activeByPkg map[string]int64
	nextID      int64
}

var _ domain.SessionStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[int64]domain.Session),
		activeByPkg: make(map[string]int64),
		nextID:      1,
	}
}

func (m *MemoryStore) ActiveSessions(_ context.Context) ([]domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Session, 0, len(m.activeByPkg))
	for _, id := range m.activeByPkg {
		out = append(out, m.sessions[id])
	}
	return out, nil
}

func (m *MemoryStore) ActiveSessionForPackage(_ context.Context, pkg string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.activeByPkg[pkg]
	if !ok {
		return nil, nil
	}
	s := m.sessions[id]
	return &s, nil
}

func (m *MemoryStore) GetSession(_ context.Context, id int64) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, apperrors.NotFoundError("session not found").WithField("session_id", id)
	}
	return &s, nil
}

func (m *MemoryStore) Insert(_ context.Context, s domain.Session) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.Active {
		if _, exists := m.activeByPkg[s.Package]; exists {
			return 0, apperrors.ConflictError("package already has an active session").
				WithField("package", s.Package)
		}
	}

	s.ID = m.nextID
	m.nextID++
	m.sessions[s.ID] = s
	if s.Active {
		m.activeByPkg[s.Package] = s.ID
	}
	return s.ID, nil
}

func (m *MemoryStore) Update(_ context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.sessions[s.ID]
	if !ok {
		return apperrors.NotFoundError("session not found").WithField("session_id", s.ID)
	}
	if old.Active && !s.Active {
		delete(m.activeByPkg, old.Package)
	}
	if !old.Active && s.Active {
		if other, exists := m.activeByPkg[s.Package]; exists && other != s.ID {
			return apperrors.ConflictError("package already has an active session").
				WithField("package", s.Package)
		}
		m.activeByPkg[s.Package] = s.ID
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *MemoryStore) SetInactive(_ context.Context, id int64, endedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || !s.Active {
		// Unknown or already ended, both intentionally a no-op so that
		// double termination is harmless.
		return nil
	}

	s.Active = false
	s.EndedAt = &endedAt
	m.sessions[id] = s
	delete(m.activeByPkg, s.Package)
	return nil
}

func (m *MemoryStore) DeleteEndedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, s := range m.sessions {
		if !s.Active && s.EndedAt != nil && s.EndedAt.Before(cutoff) {
			delete(m.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}
