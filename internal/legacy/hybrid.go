package legacy

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lexops/notify/internal/domain"
	"github.com/lexops/notify/internal/policy"
	"github.com/lexops/notify/internal/repository"
	"github.com/lexops/notify/internal/service"
)

// Publisher is the new-system entry point the hybrid decorator wraps.
// *service.NotificationService satisfies it.
type Publisher interface {
	Publish(
		ctx context.Context,
		eventType, tenantID, userID string,
		payload domain.Payload,
		opts *service.PublishOptions,
	) (*domain.Job, bool, error)
}

// HybridPublisher dual-writes every publish: the new pipeline is
// authoritative, the legacy store is best-effort and its failures are
// swallowed. A mode toggle routes exclusively through the legacy store
// during a rollback.
type HybridPublisher struct {
	next       Publisher
	store      repository.LegacyRepository
	logger     *zap.Logger
	legacyOnly atomic.Bool
}

func NewHybridPublisher(next Publisher, store repository.LegacyRepository, logger *zap.Logger) *HybridPublisher {
	return &HybridPublisher{next: next, store: store, logger: logger}
}

// SetLegacyOnly flips routing between dual-write and legacy-only.
func (h *HybridPublisher) SetLegacyOnly(on bool) {
	h.legacyOnly.Store(on)
	mode := "dual-write"
	if on {
		mode = "legacy-only"
	}
	h.logger.Info("notification routing changed", zap.String("mode", mode))
}

func (h *HybridPublisher) LegacyOnly() bool { return h.legacyOnly.Load() }

// Publish routes per the current mode. In dual-write mode the legacy
// replica never fails the call; in legacy-only mode the legacy write is
// the only write and its error surfaces.
func (h *HybridPublisher) Publish(
	ctx context.Context,
	eventType, tenantID, userID string,
	payload domain.Payload,
	opts *service.PublishOptions,
) (*domain.Job, bool, error) {
	if h.legacyOnly.Load() {
		if err := h.writeLegacy(ctx, eventType, tenantID, userID, payload, opts); err != nil {
			return nil, false, fmt.Errorf("legacy publish: %w", err)
		}
		return nil, false, nil
	}

	job, suppressed, err := h.next.Publish(ctx, eventType, tenantID, userID, payload, opts)
	if err != nil || suppressed {
		return job, suppressed, err
	}

	// Rows that came out of the legacy store must not go back in: a
	// replica write here would hand the next migration run a fresh row
	// to migrate again.
	if _, migrated := payload["migrationSource"]; migrated {
		return job, false, nil
	}

	if legacyErr := h.writeLegacy(ctx, eventType, tenantID, userID, payload, opts); legacyErr != nil {
		h.logger.Error("legacy replica write failed",
			zap.String("event_type", eventType),
			zap.String("tenant_id", tenantID),
			zap.Error(legacyErr))
	}
	return job, false, nil
}

func (h *HybridPublisher) writeLegacy(
	ctx context.Context,
	eventType, tenantID, userID string,
	payload domain.Payload,
	opts *service.PublishOptions,
) error {
	urgency := policy.DefaultUrgency(eventType)
	var channels []domain.Channel
	if opts != nil {
		if opts.Urgency != "" {
			urgency = opts.Urgency
		}
		channels = opts.Channels
	}

	titulo, mensagem := legacyContent(domain.Event{Type: eventType, Payload: payload})
	canais := mapChannels(channels)

	n := &domain.LegacyNotification{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		Titulo:     titulo,
		Mensagem:   mensagem,
		Tipo:       mapType(eventType),
		Prioridade: mapPriority(urgency),
		Canais:     canais,
		Dados:      payload,
		CreatedAt:  time.Now(),
	}
	recipients := []*domain.LegacyRecipient{{
		ID:            uuid.NewString(),
		NotificacaoID: n.ID,
		TenantID:      tenantID,
		UsuarioID:     userID,
		Canal:         canais[0],
		Status:        domain.LegacyStatusNaoLida,
	}}
	return h.store.Create(ctx, n, recipients)
}
