package repository

import (
	"context"
	"sync"
	"time"

	"github.com/lexops/notify/internal/domain"
)

// MockNotificationRepository is a hand-written, in-memory implementation of
// NotificationRepository used in unit tests. No mock-generation library needed.
type MockNotificationRepository struct {
	mu            sync.RWMutex
	notifications map[string]*domain.Notification

	// Optional error overrides — set in tests to simulate failure paths.
	CreateErr  error
	GetByIDErr error
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{
		notifications: make(map[string]*domain.Notification),
	}
}

func (m *MockNotificationRepository) Create(_ context.Context, n *domain.Notification) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *n
	m.notifications[n.ID] = &clone
	return nil
}

func (m *MockNotificationRepository) GetByID(_ context.Context, tenantID, id string) (*domain.Notification, error) {
	if m.GetByIDErr != nil {
		return nil, m.GetByIDErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.notifications[id]
	if !ok || n.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	clone := *n
	return &clone, nil
}

func (m *MockNotificationRepository) List(_ context.Context, f domain.ListFilter) ([]*domain.Notification, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []*domain.Notification
	for _, n := range m.notifications {
		if n.TenantID != f.TenantID || n.UserID != f.UserID {
			continue
		}
		if f.Type != nil && n.Type != *f.Type {
			continue
		}
		if f.UnreadOnly && n.ReadAt != nil {
			continue
		}
		clone := *n
		matched = append(matched, &clone)
	}
	return matched, len(matched), nil
}

func (m *MockNotificationRepository) MarkRead(_ context.Context, tenantID, id string, readAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok || n.TenantID != tenantID {
		return domain.ErrNotFound
	}
	if n.ReadAt == nil {
		at := readAt
		n.ReadAt = &at
	}
	return nil
}

func (m *MockNotificationRepository) FindByLegacyID(_ context.Context, tenantID, legacyID string) (*domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, n := range m.notifications {
		if n.TenantID != tenantID {
			continue
		}
		if v, ok := n.Payload["legacyId"].(string); ok && v == legacyID {
			clone := *n
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockNotificationRepository) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for id, n := range m.notifications {
		if !n.ExpiresAt.After(now) {
			delete(m.notifications, id)
			removed++
		}
	}
	return removed, nil
}

// All returns a snapshot of every stored notification, for test assertions.
func (m *MockNotificationRepository) All() []*domain.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Notification, 0, len(m.notifications))
	for _, n := range m.notifications {
		clone := *n
		out = append(out, &clone)
	}
	return out
}
