package repository

import (
	"context"
	"sync"

	"github.com/lexops/notify/internal/domain"
)

// MockBillingSource is a hand-written, in-memory implementation of
// BillingSource used in unit tests.
type MockBillingSource struct {
	mu           sync.RWMutex
	installments map[string]*Installment // key: tenantID + "/" + paymentID
}

func NewMockBillingSource() *MockBillingSource {
	return &MockBillingSource{installments: make(map[string]*Installment)}
}

// AddInstallment registers an installment under a provider payment id.
func (m *MockBillingSource) AddInstallment(tenantID, paymentID string, inst Installment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.installments[tenantID+"/"+paymentID] = &inst
}

func (m *MockBillingSource) FindInstallmentByPaymentID(_ context.Context, tenantID, paymentID string) (*Installment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.installments[tenantID+"/"+paymentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *inst
	return &clone, nil
}
