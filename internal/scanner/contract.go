package scanner

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/lexops/notify/internal/dedup"
	"github.com/lexops/notify/internal/domain"
	"github.com/lexops/notify/internal/repository"
)

const (
	contractHorizon     = 7 * 24 * time.Hour
	contractLookback    = 24 * time.Hour
	contractSuppressTTL = 24 * time.Hour
)

// ContractScanner alerts on contracts already past their end date and
// on contracts ending within the next week. Recipients are the tenant
// admins, the responsible attorney, and the client's portal user when
// one exists.
type ContractScanner struct {
	src      repository.ContractSource
	dir      repository.DirectoryRepository
	pub      Publisher
	cache    *dedup.Cache
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewContractScanner(
	src repository.ContractSource,
	dir repository.DirectoryRepository,
	pub Publisher,
	cache *dedup.Cache,
	interval time.Duration,
	logger *zap.Logger,
) *ContractScanner {
	return &ContractScanner{
		src: src, dir: dir, pub: pub, cache: cache,
		interval: interval, logger: logger,
		now: time.Now,
	}
}

func (s *ContractScanner) Run(ctx context.Context) {
	runEvery(ctx, s.interval, "contract", s.logger, func(ctx context.Context) {
		s.Scan(ctx)
	})
}

// Scan covers one window: contracts that expired within the last day
// plus those ending inside the coming week.
func (s *ContractScanner) Scan(ctx context.Context) {
	now := s.now()
	contracts, err := s.src.FindContractsExpiringBetween(ctx, now.Add(-contractLookback), now.Add(contractHorizon))
	if err != nil {
		s.logger.Error("contract window query failed", zap.Error(err))
		return
	}
	s.logger.Debug("contract candidates", zap.Int("count", len(contracts)))

	for _, c := range contracts {
		daysLeft := int(math.Ceil(c.EndsAt.Sub(now).Hours() / 24))

		eventType := "contrato.expiring"
		payload := domain.Payload{
			"contratoId":    c.ID,
			"clienteId":     c.ClienteID,
			"clienteNome":   c.ClienteNome,
			"numero":        c.Numero,
			"dataFim":       c.EndsAt.Format(time.RFC3339),
			"diasRestantes": daysLeft,
		}
		if c.EndsAt.Before(now) {
			eventType = "contrato.expired"
			delete(payload, "diasRestantes")
			payload["diasAtraso"] = int(now.Sub(c.EndsAt).Hours() / 24)
		}

		for _, userID := range s.recipients(ctx, c) {
			semantic := fmt.Sprintf("contrato:%s:%s", c.ID, eventType)
			if !s.cache.Acquire(ctx, dedupKey(c.TenantID, userID, semantic), contractSuppressTTL) {
				continue
			}
			if _, _, err := s.pub.Publish(ctx, eventType, c.TenantID, userID, payload, nil); err != nil {
				s.logger.Error("contract alert publish failed",
					zap.String("contrato_id", c.ID),
					zap.String("event_type", eventType),
					zap.Error(err))
			}
		}
	}
}

func (s *ContractScanner) recipients(ctx context.Context, c *repository.DueContract) []string {
	seen := map[string]bool{}
	var out []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	admins, err := s.dir.FindAdmins(ctx, c.TenantID)
	if err != nil {
		s.logger.Warn("admin lookup failed",
			zap.String("tenant_id", c.TenantID), zap.Error(err))
	}
	for _, a := range admins {
		add(a.ID)
	}

	add(c.ResponsavelID)

	if c.ClienteID != "" {
		client, err := s.dir.FindClientUser(ctx, c.TenantID, c.ClienteID)
		if err == nil {
			add(client.ID)
		}
	}
	return out
}
