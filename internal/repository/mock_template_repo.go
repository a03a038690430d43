package repository

import (
	"context"
	"sync"

	"github.com/lexops/notify/internal/domain"
)

// MockTemplateRepository is a hand-written, in-memory implementation of
// TemplateRepository used in unit tests.
type MockTemplateRepository struct {
	mu        sync.RWMutex
	templates map[string]*domain.Template // key: tenantID + "/" + eventType
}

func NewMockTemplateRepository() *MockTemplateRepository {
	return &MockTemplateRepository{templates: make(map[string]*domain.Template)}
}

// Add registers a tenant template row.
func (m *MockTemplateRepository) Add(tenantID, eventType string, t domain.Template) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[tenantID+"/"+eventType] = &t
}

func (m *MockTemplateRepository) Find(_ context.Context, tenantID, eventType string) (*domain.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[tenantID+"/"+eventType]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *t
	return &clone, nil
}
