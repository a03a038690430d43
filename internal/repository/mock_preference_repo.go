package repository

import (
	"context"
	"sync"

	"github.com/lexops/notify/internal/domain"
)

// MockPreferenceRepository is a hand-written, in-memory implementation of
// PreferenceRepository used in unit tests.
type MockPreferenceRepository struct {
	mu    sync.RWMutex
	prefs []*domain.Preference

	FindErr error
}

func NewMockPreferenceRepository() *MockPreferenceRepository {
	return &MockPreferenceRepository{}
}

func (m *MockPreferenceRepository) FindByEventTypes(_ context.Context, tenantID, userID string, eventTypes []string) ([]*domain.Preference, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	wanted := make(map[string]bool, len(eventTypes))
	for _, et := range eventTypes {
		wanted[et] = true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Preference
	for _, p := range m.prefs {
		if p.TenantID == tenantID && p.UserID == userID && wanted[p.EventType] {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *MockPreferenceRepository) Upsert(_ context.Context, p *domain.Preference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.prefs {
		if existing.TenantID == p.TenantID && existing.UserID == p.UserID && existing.EventType == p.EventType {
			clone := *p
			m.prefs[i] = &clone
			return nil
		}
	}
	clone := *p
	m.prefs = append(m.prefs, &clone)
	return nil
}
