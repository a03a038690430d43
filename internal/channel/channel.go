// Package channel holds the delivery adapters. Each adapter pushes a
// stored notification out over one transport; the worker fans out across
// them and isolates their failures from each other.
package channel

import (
	"context"

	"github.com/lexops/notify/internal/domain"
)

// Sender delivers a notification to one recipient over one transport.
// Mocking this interface in tests gives full control over delivery
// behaviour without making real HTTP calls.
type Sender interface {
	Name() domain.Channel
	Send(ctx context.Context, user *domain.User, n *domain.Notification) error
}
