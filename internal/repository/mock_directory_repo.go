package repository

import (
	"context"
	"sync"

	"github.com/lexops/notify/internal/domain"
)

// MockDirectoryRepository is a hand-written, in-memory implementation of
// DirectoryRepository used in unit tests. Users are keyed tenant+id;
// client links map a client record to its portal user.
type MockDirectoryRepository struct {
	mu          sync.RWMutex
	users       map[string]*domain.User // key: tenantID + "/" + userID
	clientLinks map[string]string       // key: tenantID + "/" + clientID -> userID
}

func NewMockDirectoryRepository() *MockDirectoryRepository {
	return &MockDirectoryRepository{
		users:       make(map[string]*domain.User),
		clientLinks: make(map[string]string),
	}
}

// AddUser registers a user for lookups.
func (m *MockDirectoryRepository) AddUser(tenantID string, u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[tenantID+"/"+u.ID] = &u
}

// LinkClient maps a client record to the given portal user.
func (m *MockDirectoryRepository) LinkClient(tenantID, clientID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clientLinks[tenantID+"/"+clientID] = userID
}

func (m *MockDirectoryRepository) FindUser(_ context.Context, tenantID, userID string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[tenantID+"/"+userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *MockDirectoryRepository) FindAdmins(ctx context.Context, tenantID string) ([]*domain.User, error) {
	return m.FindByRole(ctx, tenantID, "ADMIN")
}

func (m *MockDirectoryRepository) FindByRole(_ context.Context, tenantID, role string) ([]*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.User
	for key, u := range m.users {
		if len(key) > len(tenantID) && key[:len(tenantID)] == tenantID && u.Role == role && u.Active {
			clone := *u
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *MockDirectoryRepository) FindClientUser(ctx context.Context, tenantID, clientID string) (*domain.User, error) {
	m.mu.RLock()
	userID, ok := m.clientLinks[tenantID+"/"+clientID]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.FindUser(ctx, tenantID, userID)
}
