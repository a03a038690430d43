package legacy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lexops/notify/internal/domain"
	"github.com/lexops/notify/internal/repository"
	"github.com/lexops/notify/internal/service"
)

const defaultBatchSize = 100

// MigrationResult summarizes one migration run.
type MigrationResult struct {
	Migrated int `json:"migrated"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// Migrator drains the old notification store into the new pipeline.
// Runs are idempotent: a legacy row whose id already appears as
// payload.legacyId in the new store is skipped.
type Migrator struct {
	store     repository.LegacyRepository
	notifs    repository.NotificationRepository
	pub       Publisher
	batchSize int
	logger    *zap.Logger
}

func NewMigrator(
	store repository.LegacyRepository,
	notifs repository.NotificationRepository,
	pub Publisher,
	batchSize int,
	logger *zap.Logger,
) *Migrator {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Migrator{
		store: store, notifs: notifs, pub: pub,
		batchSize: batchSize, logger: logger,
	}
}

// Migrate re-publishes every unmigrated legacy notification of the
// tenant through the new pipeline, one event per original recipient.
// Per-row failures are counted and do not stop the run.
func (m *Migrator) Migrate(ctx context.Context, tenantID string) (MigrationResult, error) {
	var result MigrationResult

	for offset := 0; ; offset += m.batchSize {
		batch, err := m.store.FindBatch(ctx, tenantID, offset, m.batchSize)
		if err != nil {
			return result, fmt.Errorf("read legacy batch at offset %d: %w", offset, err)
		}
		if len(batch) == 0 {
			break
		}

		for _, n := range batch {
			switch err := m.migrateOne(ctx, n); {
			case err == nil:
				result.Migrated++
			case errors.Is(err, errAlreadyMigrated):
				result.Skipped++
			default:
				result.Errors++
				m.logger.Error("legacy notification migration failed",
					zap.String("legacy_id", n.ID),
					zap.Error(err))
			}
		}
	}

	m.logger.Info("legacy migration finished",
		zap.String("tenant_id", tenantID),
		zap.Int("migrated", result.Migrated),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors))
	return result, nil
}

var errAlreadyMigrated = errors.New("already migrated")

func (m *Migrator) migrateOne(ctx context.Context, n *domain.LegacyNotification) error {
	_, err := m.notifs.FindByLegacyID(ctx, n.TenantID, n.ID)
	if err == nil {
		return errAlreadyMigrated
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("check migration state: %w", err)
	}

	recipients, err := m.store.FindRecipients(ctx, n.ID)
	if err != nil {
		return fmt.Errorf("load recipients: %w", err)
	}

	opts := &service.PublishOptions{
		Urgency:  mapLegacyPriority(n.Prioridade),
		Channels: mapLegacyChannels(n.Canais),
	}
	migratedAt := time.Now().Format(time.RFC3339)

	for _, rec := range recipients {
		payload := domain.Payload{
			"legacyId":        n.ID,
			"legacyDestinoId": rec.ID,
			"titulo":          n.Titulo,
			"mensagem":        n.Mensagem,
			"migratedAt":      migratedAt,
			"migrationSource": "legacy_system",
		}
		if len(n.Dados) > 0 {
			payload["dados"] = n.Dados
		}

		if _, _, err := m.pub.Publish(ctx, mapLegacyType(n.Tipo), n.TenantID, rec.UsuarioID, payload, opts); err != nil {
			return fmt.Errorf("republish for user %s: %w", rec.UsuarioID, err)
		}
	}
	return nil
}
