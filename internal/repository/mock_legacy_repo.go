package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/lexops/notify/internal/domain"
)

// MockLegacyRepository is a hand-written, in-memory implementation of
// LegacyRepository used in unit tests.
type MockLegacyRepository struct {
	mu            sync.RWMutex
	notifications []*domain.LegacyNotification
	recipients    map[string][]*domain.LegacyRecipient // key: notification id

	CreateErr error
}

func NewMockLegacyRepository() *MockLegacyRepository {
	return &MockLegacyRepository{
		recipients: make(map[string][]*domain.LegacyRecipient),
	}
}

func (m *MockLegacyRepository) Create(_ context.Context, n *domain.LegacyNotification, recipients []*domain.LegacyRecipient) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *n
	m.notifications = append(m.notifications, &clone)
	for _, rec := range recipients {
		rc := *rec
		m.recipients[n.ID] = append(m.recipients[n.ID], &rc)
	}
	return nil
}

func (m *MockLegacyRepository) FindBatch(_ context.Context, tenantID string, offset, limit int) ([]*domain.LegacyNotification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matching []*domain.LegacyNotification
	for _, n := range m.notifications {
		if n.TenantID == tenantID {
			clone := *n
			matching = append(matching, &clone)
		}
	}
	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].CreatedAt.Before(matching[j].CreatedAt)
	})
	if offset >= len(matching) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matching) {
		end = len(matching)
	}
	return matching[offset:end], nil
}

func (m *MockLegacyRepository) FindRecipients(_ context.Context, notificationID string) ([]*domain.LegacyRecipient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := m.recipients[notificationID]
	out := make([]*domain.LegacyRecipient, len(recs))
	for i, rec := range recs {
		clone := *rec
		out[i] = &clone
	}
	return out, nil
}

// All returns every stored header row, for test assertions.
func (m *MockLegacyRepository) All() []*domain.LegacyNotification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.LegacyNotification, len(m.notifications))
	for i, n := range m.notifications {
		clone := *n
		out[i] = &clone
	}
	return out
}
