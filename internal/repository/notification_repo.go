// Package repository defines the persistence interfaces of the service
// and their pgx implementations. Tests use the hand-written mocks in the
// mock_*.go files.
package repository

import (
	"context"
	"time"

	"github.com/lexops/notify/internal/domain"
)

// NotificationRepository defines all persistence operations for stored
// notifications. The pgx implementation is in pg_notification_repo.go.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Notification, error)
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.Notification, int, error)
	MarkRead(ctx context.Context, tenantID, id string, readAt time.Time) error

	// FindByLegacyID resolves a notification by the payload.legacyId
	// stamped during migration. Returns ErrNotFound on miss.
	FindByLegacyID(ctx context.Context, tenantID, legacyID string) (*domain.Notification, error)

	// PurgeExpired deletes rows whose expiry has passed and reports how
	// many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
