package gate

import (
	"context"
	"sync"

	"github.com/hauke92/mindgate/internal/domain"
)

// MemoryPolicyStore is an in-memory PolicyRepository for single-instance
// deployments and tests. Unknown packages yield a zero policy, same as the
// database-backed repository.
type MemoryPolicyStore struct {
	mu       sync.RWMutex
	policies map[string]domain.AppPolicy
}

var _ domain.PolicyRepository = (*MemoryPolicyStore)(nil)

func NewMemoryPolicyStore() *MemoryPolicyStore {
	return &MemoryPolicyStore{policies: make(map[string]domain.AppPolicy)}
}

func (m *MemoryPolicyStore) GetPolicy(_ context.Context, pkg string) (domain.AppPolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p, ok := m.policies[pkg]; ok {
		return p, nil
	}
	return domain.AppPolicy{Package: pkg}, nil
}

func (m *MemoryPolicyStore) SetTimeLimit(_ context.Context, pkg string, minutes *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.policies[pkg]
	p.Package = pkg
	if minutes != nil {
		v := *minutes
		p.TimeLimitMinutes = &v
	} else {
		p.TimeLimitMinutes = nil
	}
	m.policies[pkg] = p
	return nil
}

func (m *MemoryPolicyStore) SetFlags(_ context.Context, pkg string, distracting, hidden bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.policies[pkg]
	p.Package = pkg
	p.Distracting = distracting
	p.Hidden = hidden
	m.policies[pkg] = p
	return nil
}

// MemorySettingsStore holds the settings record in memory, seeded with the
// install defaults.
type MemorySettingsStore struct {
	mu       sync.RWMutex
	settings domain.Settings
}

var (
	_ domain.SettingsSource = (*MemorySettingsStore)(nil)
	_ domain.SettingsWriter = (*MemorySettingsStore)(nil)
)

func NewMemorySettingsStore() *MemorySettingsStore {
	return &MemorySettingsStore{settings: domain.DefaultSettings()}
}

func (m *MemorySettingsStore) Settings(_ context.Context) (domain.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings, nil
}

func (m *MemorySettingsStore) UpdateSettings(_ context.Context, s domain.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = s.Clamped()
	return nil
}
